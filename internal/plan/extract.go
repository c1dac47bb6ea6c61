package plan

import (
	"strings"

	"github.com/myrjola/rexcoach/internal/errors"
)

// ErrNoJSONObject is returned when a reply contains no balanced JSON object.
var ErrNoJSONObject = errors.NewSentinel("no JSON object in reply")

// ExtractJSONObject returns the first balanced {...} substring of text.
//
// The service is asked for bare JSON but often wraps it in prose or code fences, so the scan starts at the first
// opening brace and tracks nesting depth until the matching closing brace. Braces inside JSON strings are ignored,
// including escaped quotes. The returned substring is not validated as JSON.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
