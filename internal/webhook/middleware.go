package webhook

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	twilioclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every HTTP request with a correlation ID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logger.Base().Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

// CORSMiddleware adds permissive CORS headers and answers preflight requests
// with no body. The browser softphone calls the webhook cross-origin.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Twilio-Signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SignatureMiddleware checks the provider's request signature when an auth
// token is configured. A mismatch is logged and the request still proceeds:
// rejecting it with a non-2xx would make the provider retry or abandon the
// call leg, which is worse than processing an unverified callback.
func SignatureMiddleware(authToken, publicBaseURL string) func(http.Handler) http.Handler {
	var validator twilioclient.RequestValidator
	if authToken != "" {
		validator = twilioclient.NewRequestValidator(authToken)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authToken == "" || publicBaseURL == "" {
				next.ServeHTTP(w, r)
				return
			}

			signature := r.Header.Get("X-Twilio-Signature")
			if signature == "" {
				// Browser-client requests carry no provider signature.
				next.ServeHTTP(w, r)
				return
			}

			// Read and restore the body; the handler still needs it.
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fullURL := publicBaseURL + r.URL.RequestURI()
			params := map[string]string{}
			if values, err := url.ParseQuery(string(body)); err == nil {
				for key, vals := range values {
					if len(vals) > 0 {
						params[key] = vals[0]
					}
				}
			}
			if !validator.Validate(fullURL, params, signature) {
				logger.Base().Warn("webhook signature mismatch",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}

			next.ServeHTTP(w, r)
		})
	}
}
