package varmodel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FormatScalar renders a decoded JSON scalar the way a text node shows it.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// AsIndex interprets a scalar as an option index. It accepts numbers and
// numeric strings, truncating like an integer parse.
func AsIndex(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(math.Trunc(val)), true
	case int:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return int(math.Trunc(f)), true
	}
	return 0, false
}

// AsFloat interprets a scalar as a number.
func AsFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// InitCap turns an identifier into a caption: every character that is not a
// letter or digit becomes a space and each word starts upper-case, so
// `serverName` stays `ServerName` and `led_count` becomes `Led Count`.
func InitCap(s string) string {
	var sb strings.Builder
	startOfWord := true
	for _, r := range s {
		if !isWordRune(r) || r == '_' {
			sb.WriteRune(' ')
			startOfWord = true
			continue
		}
		if startOfWord {
			sb.WriteRune(unicode.ToUpper(r))
		} else {
			sb.WriteRune(r)
		}
		startOfWord = false
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
