package ai

import (
	"encoding/json"
	"strings"
)

// Model output is an untyped string that usually, but not always, is the
// JSON we asked for. Parsing is strict-then-lenient: try the raw text,
// then the first bracketed block (models like wrapping JSON in markdown
// fences or prose). Callers apply their documented fallback when neither
// parses; that choice leans toward availability over completeness.

// ExtractObject unmarshals the first JSON object found in raw into v.
// Returns false if no parseable object exists.
func ExtractObject(raw string, v interface{}) bool {
	if json.Unmarshal([]byte(strings.TrimSpace(raw)), v) == nil {
		return true
	}
	block := firstBlock(raw, '{', '}')
	if block == "" {
		return false
	}
	return json.Unmarshal([]byte(block), v) == nil
}

// ExtractArray unmarshals the first JSON array found in raw into v.
func ExtractArray(raw string, v interface{}) bool {
	if json.Unmarshal([]byte(strings.TrimSpace(raw)), v) == nil {
		return true
	}
	block := firstBlock(raw, '[', ']')
	if block == "" {
		return false
	}
	return json.Unmarshal([]byte(block), v) == nil
}

// firstBlock returns the first balanced open..close span in s, tracking
// string literals so braces inside values don't end the block early.
func firstBlock(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
