package taglist

import "strings"

// List is an ordered set of tag values compared case-insensitively.
// Adding "Ruby" when "ruby" is present is a no-op; the first spelling wins.
// A List is not safe for concurrent use.
type List struct {
	values []string
	keys   map[string]struct{}
}

// New returns a list holding the distinct values in order.
func New(values ...string) *List {
	l := &List{keys: make(map[string]struct{}, len(values))}
	l.Add(values...)
	return l
}

func key(v string) string {
	return strings.ToLower(v)
}

// Add appends values not already present. Empty strings are ignored.
// Returns the number of values actually added.
func (l *List) Add(values ...string) int {
	if l.keys == nil {
		l.keys = make(map[string]struct{})
	}
	added := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		k := key(v)
		if _, ok := l.keys[k]; ok {
			continue
		}
		l.keys[k] = struct{}{}
		l.values = append(l.values, v)
		added++
	}
	return added
}

// Remove drops values, matching case-insensitively. Returns the number removed.
func (l *List) Remove(values ...string) int {
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		k := key(v)
		if _, ok := l.keys[k]; ok {
			drop[k] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := l.values[:0]
	for _, v := range l.values {
		k := key(v)
		if _, ok := drop[k]; ok {
			delete(l.keys, k)
			continue
		}
		kept = append(kept, v)
	}
	l.values = kept
	return len(drop)
}

// Replace swaps the whole content for values.
func (l *List) Replace(values ...string) {
	l.values = nil
	l.keys = make(map[string]struct{}, len(values))
	l.Add(values...)
}

// Contains reports whether v is present, ignoring case.
func (l *List) Contains(v string) bool {
	if l == nil {
		return false
	}
	_, ok := l.keys[key(v)]
	return ok
}

// Len returns the number of values.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.values)
}

// Values returns a copy of the values in order.
func (l *List) Values() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.values))
	copy(out, l.values)
	return out
}

// Clone returns an independent copy.
func (l *List) Clone() *List {
	return New(l.Values()...)
}

// Equal compares two lists ignoring case and order.
func (l *List) Equal(other *List) bool {
	if l.Len() != other.Len() {
		return false
	}
	for _, v := range l.Values() {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Minus returns the values of l absent from other, in l's order.
func (l *List) Minus(other *List) []string {
	var out []string
	for _, v := range l.Values() {
		if !other.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// String joins the values with ", ".
func (l *List) String() string {
	return strings.Join(l.Values(), DefaultDelimiter+" ")
}
