package logger

import (
	"log/slog"
	"strings"
)

// bearerPrefix marks an Authorization header value.
const bearerPrefix = "Bearer "

// Key fragments whose values are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"passphrase",
	"credential",
	"authorization",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive rewrites an attribute that carries a credential.
//
// Bearer envelopes are masked wherever they appear so the log still shows
// which token was in use. Values under sensitive keys are fully redacted.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strings.HasPrefix(strVal, bearerPrefix) {
			return slog.String(a.Key, MaskBearer(strVal))
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	return a
}

// MaskBearer masks the token in a "Bearer <token>" value,
// keeping the first and last 3 characters when the token is long enough.
func MaskBearer(value string) string {
	tok := strings.TrimPrefix(value, bearerPrefix)
	return bearerPrefix + MaskToken(tok)
}

// MaskToken masks a raw token for display.
func MaskToken(tok string) string {
	if len(tok) <= 12 {
		return "***"
	}
	return tok[:3] + "..." + tok[len(tok)-3:]
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
