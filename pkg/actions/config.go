package actions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/caseflow/pkg/conditions"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate returns a copy of config where {{path}} tokens in string values
// are resolved against eventData. A value that is exactly one token keeps the
// resolved value's type (nil when missing); tokens embedded in longer strings
// are replaced by their string form, or removed when missing.
func Interpolate(config map[string]any, eventData map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(config))
	for key, value := range config {
		out[key] = interpolateValue(value, eventData)
	}

	return out
}

func interpolateValue(value any, eventData map[string]any) any {
	switch v := value.(type) {
	case string:
		return interpolateString(v, eventData)
	case map[string]any:
		return Interpolate(v, eventData)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = interpolateValue(item, eventData)
		}

		return out
	default:
		return value
	}
}

func interpolateString(s string, eventData map[string]any) any {
	if match := tokenPattern.FindStringSubmatchIndex(s); match != nil && match[0] == 0 && match[1] == len(s) {
		value, _ := conditions.Lookup(eventData, s[match[2]:match[3]])

		return value
	}

	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]

		value, ok := conditions.Lookup(eventData, path)
		if !ok || value == nil {
			return ""
		}

		return conditions.FormatValue(value)
	})
}

// String reads a string setting from an interpolated config. Numbers and
// booleans are formatted; nil and missing values yield "".
func String(config map[string]any, key string) string {
	switch v := config[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return conditions.FormatValue(v)
	}
}

// Int reads an integer setting, accepting JSON numbers and numeric strings.
func Int(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}

	return fallback
}

// Map reads a nested object setting.
func Map(config map[string]any, key string) map[string]any {
	m, _ := config[key].(map[string]any)

	return m
}

// RequireStrings returns an error naming the first key whose value is empty.
func RequireStrings(config map[string]any, keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(String(config, key)) == "" {
			return fmt.Errorf("missing required field %q", key)
		}
	}

	return nil
}
