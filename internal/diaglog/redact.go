package diaglog

import (
	"os"
	"strings"
)

// sensitiveKeys are payload fields dropped entirely. Config dumps attached to
// an event may carry credentials for remote storage or proxies.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
}

const redacted = "[REDACTED]"

// Redact returns a copy of v with sensitive keys masked and the user's home
// directory replaced by "~" in every string, so exported bundles do not leak
// account names through media paths. v is not mutated.
func Redact(v interface{}) interface{} {
	home, _ := os.UserHomeDir()
	return redact(v, home)
}

func redact(v interface{}, home string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				out[k] = redacted
				continue
			}
			out[k] = redact(child, home)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = redact(elem, home)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = redact(elem, home)
		}
		return out
	case string:
		return shortenHome(val, home)
	default:
		return v
	}
}

func shortenHome(s, home string) string {
	if home == "" || home == "/" {
		return s
	}
	if s == home {
		return "~"
	}
	if strings.HasPrefix(s, home+string(os.PathSeparator)) {
		return "~" + s[len(home):]
	}
	return s
}
