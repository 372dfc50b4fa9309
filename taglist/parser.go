// Package taglist turns raw delimited tag strings into ordered value
// sequences and holds the in-memory, case-insensitive tag list a caller edits
// before the tags are synchronized with storage.
package taglist

import (
	"strings"
	"unicode"
)

// DefaultDelimiter separates tags in a raw tag string.
const DefaultDelimiter = ","

// Parser splits raw tag strings. The zero value uses DefaultDelimiter.
//
// A token that starts with a single or double quote runs to the matching
// closing quote, so the delimiter may appear inside it. The quote characters
// stay in the value: "'I love the ,comma,'" parses to one tag that still
// carries its quotes.
type Parser struct {
	Delimiter      string
	ForceLowercase bool
}

// NewParser returns a parser for delimiter; an empty delimiter means DefaultDelimiter.
func NewParser(delimiter string) Parser {
	return Parser{Delimiter: delimiter}
}

func (p Parser) delimiter() string {
	if p.Delimiter == "" {
		return DefaultDelimiter
	}
	return p.Delimiter
}

// Parse splits raw into distinct tag values in first-seen order.
// It never fails; see ParseDetailed for the degraded flag.
func (p Parser) Parse(raw string) []string {
	values, _ := p.ParseDetailed(raw)
	return values
}

// ParseDetailed is Parse plus a flag reporting that an unterminated quote
// forced a plain split on the delimiter.
func (p Parser) ParseDetailed(raw string) (values []string, degraded bool) {
	delim := p.delimiter()

	tokens, ok := splitQuoted(raw, delim)
	if !ok {
		tokens = strings.Split(raw, delim)
		degraded = true
	}

	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if p.ForceLowercase {
			tok = strings.ToLower(tok)
		}
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		values = append(values, tok)
	}
	return values, degraded
}

// splitQuoted returns ok=false when a quoted token is never closed.
func splitQuoted(raw, delim string) ([]string, bool) {
	var tokens []string
	rest := raw
	for {
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)

		searchFrom := 0
		if trimmed != "" && (trimmed[0] == '\'' || trimmed[0] == '"') {
			closing := strings.IndexByte(trimmed[1:], trimmed[0])
			if closing < 0 {
				return nil, false
			}
			searchFrom = closing + 2
		}

		idx := strings.Index(trimmed[searchFrom:], delim)
		if idx < 0 {
			return append(tokens, trimmed), true
		}
		end := searchFrom + idx
		tokens = append(tokens, trimmed[:end])
		rest = trimmed[end+len(delim):]
	}
}

// Parse splits raw with the default parser.
func Parse(raw string) []string {
	return Parser{}.Parse(raw)
}
