package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/internal/call"
	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// Bodies beyond this are ignored; provider callbacks are small.
const maxBodyBytes = 1 << 20

// ParseRequest normalizes an inbound request of unknown content type into a
// flat parameter map. Query parameters are populated first; body fields
// augment without overwriting, so a URL-supplied action always wins. Every
// decode strategy is a total fallback for the previous one: an unparseable
// body yields the query-only map, never an error.
func ParseRequest(r *http.Request) call.Params {
	params := call.Params{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if r.Body == nil {
		return params
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
	if err != nil {
		logger.Base().Warn("failed to read webhook body", zap.Error(err))
		return params
	}
	// Take an exclusive copy so later strategies (and the signature check)
	// can re-read the body.
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return params
	}

	fields := parseBody(r, body)
	for key, value := range fields {
		if _, exists := params[key]; !exists {
			params[key] = value
		}
	}
	return params
}

func parseBody(r *http.Request, body []byte) map[string]string {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		if fields := parseJSONBody(body); fields != nil {
			return fields
		}
		return parseFormBody(body)
	case strings.Contains(contentType, "multipart/form-data"):
		if fields := parseMultipartBody(r); fields != nil {
			return fields
		}
		return parseFormBody(body)
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return parseFormBody(body)
	default:
		// Unspecified or text: JSON first, then URL-encoded.
		if fields := parseJSONBody(body); fields != nil {
			return fields
		}
		return parseFormBody(body)
	}
}

// parseJSONBody flattens a JSON object to string values. Only primitive
// values are kept; nested structures carry no action information.
func parseJSONBody(body []byte) map[string]string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Base().Debug("body is not a JSON object", zap.Error(err))
		return nil
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64, bool:
			fields[key] = fmt.Sprint(v)
		case nil:
			// skip
		default:
			// skip nested objects and arrays
		}
	}
	return fields
}

func parseFormBody(body []byte) map[string]string {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		logger.Base().Debug("body is not URL-encoded", zap.Error(err))
		return nil
	}
	fields := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields
}

func parseMultipartBody(r *http.Request) map[string]string {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		logger.Base().Debug("failed to decode multipart body", zap.Error(err))
		return nil
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, vals := range r.PostForm {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	if r.MultipartForm != nil {
		for key, vals := range r.MultipartForm.Value {
			if _, exists := fields[key]; !exists && len(vals) > 0 {
				fields[key] = vals[0]
			}
		}
	}
	return fields
}
