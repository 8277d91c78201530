package utils

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"luca-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// maxLoggedBody caps how much of a request body is logged. Image payloads are
// base64 and would otherwise flood the log.
const maxLoggedBody = 4096

var sensitiveHeaders = []string{
	"authorization",
	"x-api-key",
	"x-auth-token",
	"api-key",
	"cookie",
}

var sensitiveFieldPattern = regexp.MustCompile(`"(api_key|apiKey|password|secret|token)"\s*:\s*"[^"]*"`)

// DebugTransport logs outgoing provider requests.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.WithFields(logrus.Fields{"url": req.URL.String()}).Errorf("provider request failed: %v", err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			fields["header."+name] = "[REDACTED]"
		} else {
			fields["header."+name] = strings.Join(values, ", ")
		}
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("read request body for debug log: %v", err)
			return
		}
		// restore the body for the real round trip
		req.Body = io.NopCloser(bytes.NewReader(body))
		fields["body_size"] = len(body)
		fields["body"] = RedactBody(body)
	}

	logger.WithFields(fields).Debug("provider request")
}

// RedactBody masks credential-looking JSON fields and truncates long bodies.
func RedactBody(body []byte) string {
	s := sensitiveFieldPattern.ReplaceAllString(string(body), `"$1": "[REDACTED]"`)
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}

func isSensitiveHeader(name string) bool {
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
