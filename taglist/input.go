package taglist

import "strings"

// Input is the single entry point for tag values coming from a caller: either
// a raw delimited string (parsed) or values that are already split.
type Input struct {
	raw      string
	values   []string
	isValues bool
}

// FromString wraps a raw delimited string such as "ruby, rails, 'a,b'".
func FromString(raw string) Input {
	return Input{raw: raw}
}

// FromValues wraps values that must not be split again.
func FromValues(values ...string) Input {
	return Input{values: values, isValues: true}
}

// Resolve returns the distinct, trimmed values of the input.
// degraded is true when a raw string had malformed quoting.
func (in Input) Resolve(p Parser) (values []string, degraded bool) {
	if !in.isValues {
		return p.ParseDetailed(in.raw)
	}

	seen := make(map[string]bool, len(in.values))
	for _, v := range in.values {
		v = strings.TrimSpace(v)
		if p.ForceLowercase {
			v = strings.ToLower(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values, false
}

// IsEmpty reports whether the input carries no text at all.
func (in Input) IsEmpty() bool {
	if in.isValues {
		return len(in.values) == 0
	}
	return strings.TrimSpace(in.raw) == ""
}
