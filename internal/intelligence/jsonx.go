package intelligence

import (
	"encoding/json"
	"strings"
)

// Completion models wrap JSON in prose or markdown fences more often than
// not.  These helpers locate the first balanced JSON array/object in a
// response and unmarshal it, ignoring everything around it.

// firstJSONArray unmarshals the first JSON array found in s into dest.
func firstJSONArray(s string, dest interface{}) bool {
	return firstJSON(s, '[', ']', dest)
}

// firstJSONObject unmarshals the first JSON object found in s into dest.
func firstJSONObject(s string, dest interface{}) bool {
	return firstJSON(s, '{', '}', dest)
}

func firstJSON(s string, open, close byte, dest interface{}) bool {
	start := strings.IndexByte(s, open)
	for start >= 0 {
		if end := matchBalanced(s, start, open, close); end > start {
			if json.Unmarshal([]byte(s[start:end+1]), dest) == nil {
				return true
			}
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			return false
		}
		start += 1 + next
	}
	return false
}

// matchBalanced returns the index of the bracket closing the one at start,
// honouring JSON string literals and escapes, or -1 when unbalanced.
func matchBalanced(s string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
