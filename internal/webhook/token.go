package webhook

import (
	"encoding/json"
	"net/http"
	"time"

	twiliojwt "github.com/twilio/twilio-go/client/jwt"
	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// TokenRequest asks for a browser softphone access token.
type TokenRequest struct {
	Identity string `json:"identity"`
}

// TokenResponse carries the signed access token the browser registers with.
type TokenResponse struct {
	Success  bool   `json:"success"`
	Identity string `json:"identity,omitempty"`
	Token    string `json:"token,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleToken mints a voice access token so the in-browser softphone can
// register and originate client: calls. Outgoing dials are routed through
// the configured application, which points back at the call webhook.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Base().Warn("invalid token request body", zap.Error(err))
	}
	identity := req.Identity
	if identity == "" {
		identity = "browser-agent"
	}

	if h.cfg.AccountSID == "" || h.cfg.APIKeySID == "" || h.cfg.APIKeySecret == "" || h.cfg.TwimlAppSID == "" {
		logger.Base().Error("token requested without API key configuration")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TokenResponse{Success: false, Error: "voice tokens are not configured"})
		return
	}

	params := twiliojwt.AccessTokenParams{
		AccountSid:    h.cfg.AccountSID,
		SigningKeySid: h.cfg.APIKeySID,
		Secret:        h.cfg.APIKeySecret,
		Identity:      identity,
		Ttl:           time.Hour.Seconds(),
	}
	accessToken := twiliojwt.CreateAccessToken(params)
	accessToken.AddGrant(&twiliojwt.VoiceGrant{
		Incoming: twiliojwt.Incoming{Allow: true},
		Outgoing: twiliojwt.Outgoing{ApplicationSid: h.cfg.TwimlAppSID},
	})

	token, err := accessToken.ToJwt()
	if err != nil {
		logger.Base().Error("failed to sign voice access token", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TokenResponse{Success: false, Error: "failed to sign token"})
		return
	}

	logger.Base().Info("voice access token issued", zap.String("identity", identity))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(TokenResponse{Success: true, Identity: identity, Token: token})
}
