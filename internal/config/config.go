package config

import (
	"os"
)

// Config holds the process configuration, read once at startup.
// Provider credentials may legitimately be absent in partial deployments;
// handlers degrade to spoken-apology responses rather than failing callbacks.
type Config struct {
	Port          string
	PublicBaseURL string // public HTTPS base for provider callback URLs

	// Telephony provider credentials
	AccountSID   string
	AuthToken    string
	APIKeySID    string
	APIKeySecret string
	TwimlAppSID  string
	CallerID     string // outbound caller-ID number, E.164

	// External record store (call outcomes keyed by lead reference)
	RecordsBaseURL    string
	RecordsServiceKey string
}

// Load reads configuration from the environment. The .env file, if any,
// is loaded by main before this runs.
func Load() *Config {
	return &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", ""),

		AccountSID:   getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		AuthToken:    getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		APIKeySID:    getEnvOrDefault("TWILIO_API_KEY", ""),
		APIKeySecret: getEnvOrDefault("TWILIO_API_SECRET", ""),
		TwimlAppSID:  getEnvOrDefault("TWILIO_TWIML_APP_SID", ""),
		CallerID:     getEnvOrDefault("TWILIO_PHONE_NUMBER", ""),

		RecordsBaseURL:    getEnvOrDefault("RECORDS_BASE_URL", ""),
		RecordsServiceKey: getEnvOrDefault("RECORDS_SERVICE_KEY", ""),
	}
}

// HasAccountCredentials reports whether provider REST calls can be made at all.
func (c *Config) HasAccountCredentials() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// HasCallerID reports whether an outbound caller-ID number is configured.
func (c *Config) HasCallerID() bool {
	return c.CallerID != ""
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
