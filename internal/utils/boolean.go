package utils

import (
	"strings"
)

// ParseBoolFlexible converts the accepted JSON representations of a boolean
// flag (true/false, 0/1, and the case-insensitive strings "true", "false",
// "0", "1") into a bool. The second return value reports whether the input
// was one of the accepted forms. Anything else is rejected rather than
// coerced.
func ParseBoolFlexible(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		// JSON numbers decode as float64
		if v == 1 {
			return true, true
		}
		if v == 0 {
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}
