package index

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// maxMetadataStringLen bounds string values sent to the index. Longer values
// are truncated rather than dropped so a lookup by the key still works.
const maxMetadataStringLen = 4096

// SanitizeMetadata returns a copy of metadata safe to send to a vector index:
// true nulls are stripped, scalars and flat lists of strings pass through,
// over-long strings are truncated, and anything else (nested maps, mixed
// lists, arbitrary structs) is dropped with a warning. Empty strings, zero,
// and false are legitimate values and are retained. The enrichment stage
// already filters nulls; this is the last gate before the remote call, which
// rejects null-valued fields outright.
func SanitizeMetadata(metadata map[string]any, logger *slog.Logger) map[string]any {
	if logger == nil {
		logger = slog.Default()
	}

	clean := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			clean[key] = truncateString(v, maxMetadataStringLen)
		case bool, int, int32, int64, float32, float64:
			clean[key] = v
		case []string:
			clean[key] = v
		case []any:
			strs, ok := stringList(v)
			if !ok {
				logger.Warn("dropping metadata key with non-scalar list", "key", key)
				continue
			}
			clean[key] = strs
		default:
			logger.Warn("dropping metadata key with unsupported type",
				"key", key, "type", fmt.Sprintf("%T", value))
		}
	}
	return clean
}

// truncateString cuts s to at most maxLen bytes, backing off to the nearest
// rune boundary so the result stays valid UTF-8.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func stringList(values []any) ([]string, bool) {
	strs := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		strs[i] = s
	}
	return strs, true
}
