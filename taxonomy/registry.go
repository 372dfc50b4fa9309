package taxonomy

import (
	"github.com/teranos/tagtical/errors"
)

// Registry is the immutable tag taxonomy. All methods are safe for
// concurrent use.
type Registry struct {
	root      string
	types     map[string]*TagType
	typeOrder []string

	typeAncestors   map[string][]string // type first, root last
	typeDescendants map[string][]string // strict, declaration order
	typeChildren    map[string][]string

	kinds           map[string]*Kind
	kindOrder       []string
	kindAncestors   map[string][]string
	kindDescendants map[string][]string
	kindChildren    map[string][]string

	ownContexts map[string][]Context
}

// Root returns the root tag type.
func (r *Registry) Root() *TagType {
	return r.types[r.root]
}

// Type looks up a tag type by name.
func (r *Registry) Type(name string) (*TagType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns every tag type, root first, in declaration order.
func (r *Registry) Types() []*TagType {
	out := make([]*TagType, 0, len(r.typeOrder))
	for _, name := range r.typeOrder {
		out = append(out, r.types[name])
	}
	return out
}

// TypeNames returns the names of every tag type in declaration order.
func (r *Registry) TypeNames() []string {
	return append([]string(nil), r.typeOrder...)
}

// Ancestors returns the chain from name up to the root, name included.
// Unknown types yield nil.
func (r *Registry) Ancestors(name string) []string {
	return append([]string(nil), r.typeAncestors[name]...)
}

// Descendants returns every type strictly below name.
func (r *Registry) Descendants(name string) []string {
	return append([]string(nil), r.typeDescendants[name]...)
}

// Children returns the direct sub-types of name.
func (r *Registry) Children(name string) []string {
	return append([]string(nil), r.typeChildren[name]...)
}

// IsStrictAncestor reports whether ancestor lies above descendant.
func (r *Registry) IsStrictAncestor(ancestor, descendant string) bool {
	chain := r.typeAncestors[descendant]
	if len(chain) == 0 {
		return false
	}
	for _, name := range chain[1:] {
		if name == ancestor {
			return true
		}
	}
	return false
}

// Related reports whether a and b are equal or on one branch of the tree.
func (r *Registry) Related(a, b string) bool {
	return a == b || r.IsStrictAncestor(a, b) || r.IsStrictAncestor(b, a)
}

// Expand returns the type names covered by name under e. Unknown types yield nil.
func (r *Registry) Expand(name string, e Expansion) []string {
	if _, ok := r.types[name]; !ok {
		return nil
	}
	switch e {
	case CurrentOnly:
		return []string{name}
	case WithAncestors:
		return r.Ancestors(name)
	default:
		return append([]string{name}, r.typeDescendants[name]...)
	}
}

// Kind looks up a taggable kind.
func (r *Registry) Kind(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, false
	}
	return *k, true
}

// Kinds returns the kind names in declaration order.
func (r *Registry) Kinds() []string {
	return append([]string(nil), r.kindOrder...)
}

// KindChildren returns the direct sub-kinds of name.
func (r *Registry) KindChildren(name string) []string {
	return append([]string(nil), r.kindChildren[name]...)
}

// KindScope returns name and all of its sub-kinds: the population a class
// level query on name covers. Unknown kinds yield nil.
func (r *Registry) KindScope(name string) []string {
	if _, ok := r.kinds[name]; !ok {
		return nil
	}
	return append([]string{name}, r.kindDescendants[name]...)
}

// Contexts returns the contexts visible on kind: inherited ones first, then
// the kind's own, each in declaration order.
func (r *Registry) Contexts(kind string) []Context {
	chain := r.kindAncestors[kind]
	var out []Context
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, r.ownContexts[chain[i]]...)
	}
	return out
}

// Context resolves a context name on kind, walking up the kind tree.
func (r *Registry) Context(kind, name string) (Context, error) {
	chain, ok := r.kindAncestors[kind]
	if !ok {
		return Context{}, errors.NewUnknownContextError(kind, name)
	}
	for _, k := range chain {
		for _, c := range r.ownContexts[k] {
			if c.Name == name {
				return c, nil
			}
		}
	}
	return Context{}, errors.NewUnknownContextError(kind, name)
}

// TypeOf returns the tag type bound to a context on kind.
func (r *Registry) TypeOf(kind, context string) (*TagType, error) {
	c, err := r.Context(kind, context)
	if err != nil {
		return nil, err
	}
	return r.types[c.Type], nil
}

// VisibleContexts returns context itself plus every context on kind whose
// type lies strictly below the context's type. Reading a context sees the
// taggings of all of them.
func (r *Registry) VisibleContexts(kind, context string) ([]Context, error) {
	c, err := r.Context(kind, context)
	if err != nil {
		return nil, err
	}
	out := []Context{c}
	for _, other := range r.Contexts(kind) {
		if other.Name != c.Name && r.IsStrictAncestor(c.Type, other.Type) {
			out = append(out, other)
		}
	}
	return out, nil
}

// ResolveOn maps the target of a filter or count to a tag type. on may name a
// context of kind or of one of its sub-kinds, or a tag type. Empty means the
// root type.
func (r *Registry) ResolveOn(kind, on string) (*TagType, error) {
	if on == "" {
		return r.Root(), nil
	}
	for _, k := range r.KindScope(kind) {
		for _, c := range r.ownContexts[k] {
			if c.Name == on {
				return r.types[c.Type], nil
			}
		}
	}
	// Inherited contexts are visible from sub-kinds too.
	if c, err := r.Context(kind, on); err == nil {
		return r.types[c.Type], nil
	}
	if t, ok := r.types[on]; ok {
		return t, nil
	}
	return nil, errors.NewUnknownContextError(kind, on)
}
