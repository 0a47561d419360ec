package logger

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Attribute keys whose values are stored map payloads.
var payloadKeys = map[string]bool{
	"key":   true,
	"value": true,
}

// Key fragments that mark credentials.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
}

const redactedValue = "***REDACTED***"

// redact masks credentials unconditionally and payloads unless showPayloads
// is set. Payloads keep their length so operators can still spot outliers.
func redact(a slog.Attr, showPayloads bool) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redact(attr, showPayloads)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		s := a.Value.String()
		if s == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if !showPayloads && payloadKeys[strings.ToLower(a.Key)] {
			return slog.String(a.Key, MaskPayload(s))
		}
	}
	return a
}

// MaskPayload hides a stored key or value, keeping its first character and
// its length in bytes. Payloads that do not start with valid UTF-8 are
// masked entirely.
func MaskPayload(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if len(s) <= size || r == utf8.RuneError {
		return fmt.Sprintf("*(%d)", len(s))
	}
	return fmt.Sprintf("%c***(%d)", r, len(s))
}

// IsSensitiveKey checks if an attribute name suggests a credential.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
