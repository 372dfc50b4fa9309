// Package taxonomy holds the tag type hierarchy, the tree of taggable kinds and
// the contexts each kind exposes. A Registry is assembled once with a Builder
// (or loaded from a file) and is read-only afterwards, so it can be shared by
// every goroutine without locking.
package taxonomy

import (
	"strings"

	"github.com/teranos/tagtical/errors"
)

// DefaultRootType is the name of the root tag type when none is given.
const DefaultRootType = "tag"

// Transform rewrites a tag value. Storage transforms must be idempotent.
type Transform func(string) string

func identity(v string) string { return v }

// TagType is a node of the tag type tree.
type TagType struct {
	Name   string
	Parent string // empty only for the root

	storage Transform
	read    Transform
}

// IsRoot reports whether t is the root of the hierarchy.
func (t *TagType) IsRoot() bool {
	return t.Parent == ""
}

// NormalizeForStorage is applied before a value is persisted or compared for
// uniqueness.
func (t *TagType) NormalizeForStorage(v string) string {
	if t.storage == nil {
		return v
	}
	return t.storage(v)
}

// NormalizeForRead is applied when a stored value is handed back to a caller.
func (t *TagType) NormalizeForRead(v string) string {
	if t.read == nil {
		return v
	}
	return t.read(v)
}

// Key is the lookup key of v for this type: the lower-cased storage form.
func (t *TagType) Key(v string) string {
	return strings.ToLower(t.NormalizeForStorage(v))
}

// TypeOption configures a TagType at registration.
type TypeOption func(*TagType)

// WithStorageTransform sets the normalize-for-storage hook.
func WithStorageTransform(fn Transform) TypeOption {
	return func(t *TagType) { t.storage = fn }
}

// WithReadTransform sets the normalize-for-read hook.
func WithReadTransform(fn Transform) TypeOption {
	return func(t *TagType) { t.read = fn }
}

// Kind is a node of the taggable kind tree. Contexts bound on a kind are
// inherited by its sub-kinds.
type Kind struct {
	Name   string
	Parent string
}

// Context is a named tag slot bound to a tag type on a kind.
type Context struct {
	Name string
	Kind string // kind that declared the context
	Type string
}

// Expansion selects which part of the hierarchy around a type a filter or a
// count covers.
type Expansion int

const (
	// WithDescendants covers the type and every type below it.
	WithDescendants Expansion = iota
	// CurrentOnly covers the type alone.
	CurrentOnly
	// WithAncestors covers the type and every type above it.
	WithAncestors
)

func (e Expansion) String() string {
	switch e {
	case CurrentOnly:
		return "current"
	case WithAncestors:
		return "ancestors"
	default:
		return "descendants"
	}
}

// ParseExpansion accepts "descendants", "current" or "ancestors".
func ParseExpansion(s string) (Expansion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "descendants", "children":
		return WithDescendants, nil
	case "current":
		return CurrentOnly, nil
	case "ancestors", "parents":
		return WithAncestors, nil
	}
	return WithDescendants, errors.NewInvalidRequestError("unknown hierarchy expansion %q", s)
}

// TransformSpec names a built-in transform, as written in taxonomy files.
type TransformSpec struct {
	Op   string `toml:"op" yaml:"op"`
	From string `toml:"from,omitempty" yaml:"from,omitempty"`
	To   string `toml:"to,omitempty" yaml:"to,omitempty"`
}

// Compile turns a chain of specs into one Transform.
func Compile(specs []TransformSpec) (Transform, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	steps := make([]Transform, 0, len(specs))
	for _, s := range specs {
		step, err := s.compile()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return func(v string) string {
		for _, step := range steps {
			v = step(v)
		}
		return v
	}, nil
}

// CompileStorage compiles a storage chain and rejects it unless applying it
// twice gives the same value as applying it once. Besides a fixed sample set,
// the chain is tried on the strings its replace steps mention.
func CompileStorage(specs []TransformSpec) (Transform, error) {
	fn, err := Compile(specs)
	if err != nil || fn == nil {
		return nil, err
	}
	samples := append([]string(nil), idempotenceSamples...)
	for _, s := range specs {
		if s.From == "" {
			continue
		}
		samples = append(samples, s.From, s.To, s.From+s.To, s.To+s.From, " "+s.From+" ")
	}
	if err := checkIdempotent(fn, samples); err != nil {
		return nil, err
	}
	return fn, nil
}

// idempotenceSamples are run through every storage transform at build time.
var idempotenceSamples = []string{
	"", "ruby", "Ruby on Rails", "  padded  value ", "MiXeD-case_value",
	"'quoted, value'", "ball", "a", "aa", "ß", "İstanbul",
}

func checkIdempotent(fn Transform, samples []string) error {
	for _, v := range samples {
		once := fn(v)
		if twice := fn(once); twice != once {
			return errors.WithHint(
				errors.NewInvalidRequestError("storage transform is not idempotent: %q gives %q, then %q", v, once, twice),
				"a storage transform must not change its own output; use a read transform for rewrites such as ball -> baller")
		}
	}
	return nil
}

func (s TransformSpec) compile() (Transform, error) {
	switch strings.ToLower(s.Op) {
	case "lowercase", "downcase":
		return strings.ToLower, nil
	case "uppercase", "upcase":
		return strings.ToUpper, nil
	case "trim":
		return strings.TrimSpace, nil
	case "squish":
		return func(v string) string { return strings.Join(strings.Fields(v), " ") }, nil
	case "replace":
		if s.From == "" {
			return nil, errors.NewInvalidRequestError("replace transform needs a non-empty 'from'")
		}
		return func(v string) string { return strings.ReplaceAll(v, s.From, s.To) }, nil
	case "identity", "none":
		return identity, nil
	}
	return nil, errors.NewInvalidRequestError("unknown transform %q", s.Op)
}

// singular derives the implicit type name of a context ("languages" -> "language").
func singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "sses"),
		strings.HasSuffix(name, "xes"),
		strings.HasSuffix(name, "ches"),
		strings.HasSuffix(name, "shes"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "ss"):
		return name
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	}
	return name
}
