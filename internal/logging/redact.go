package logging

import (
	"log/slog"
	"strings"
)

const redacted = "[redacted]"

// secretKey reports whether an attribute key names a credential. Provider
// tokens, API keys and the Redis password must never reach a log sink.
func secretKey(key string) bool {
	k := strings.ToLower(key)
	if i := strings.LastIndexByte(k, '.'); i >= 0 {
		k = k[i+1:]
	}
	switch k {
	case "token", "api_key", "apikey", "password", "authorization", "x-session":
		return true
	}
	return strings.HasSuffix(k, "_token") || strings.HasSuffix(k, "_password")
}

func redact(attr slog.Attr) slog.Attr {
	if secretKey(attr.Key) && attr.Value.Kind() != slog.KindGroup {
		attr.Value = slog.StringValue(redacted)
	}
	return attr
}
