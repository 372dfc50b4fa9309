package taxonomy

import (
	"github.com/teranos/tagtical/errors"
)

type contextDecl struct {
	kind, name, typeName string
}

// Builder collects declarations for a Registry. Declarations may appear in
// any order; references are resolved by Build.
type Builder struct {
	root     *TagType
	types    []*TagType
	kinds    []Kind
	contexts []contextDecl
}

// NewBuilder starts a registry whose root type is rootType (DefaultRootType when empty).
func NewBuilder(rootType string, opts ...TypeOption) *Builder {
	if rootType == "" {
		rootType = DefaultRootType
	}
	root := &TagType{Name: rootType}
	for _, opt := range opts {
		opt(root)
	}
	return &Builder{root: root}
}

// Type declares a tag type under parent (the root when parent is empty).
func (b *Builder) Type(name, parent string, opts ...TypeOption) *Builder {
	if parent == "" {
		parent = b.root.Name
	}
	t := &TagType{Name: name, Parent: parent}
	for _, opt := range opts {
		opt(t)
	}
	b.types = append(b.types, t)
	return b
}

// Kind declares a taggable kind. An empty parent makes it a top-level kind.
func (b *Builder) Kind(name, parent string) *Builder {
	b.kinds = append(b.kinds, Kind{Name: name, Parent: parent})
	return b
}

// Context binds context name on kind to typeName. With an empty typeName the
// context binds to the singular of its name, declared as a leaf under the root
// when no such type exists.
func (b *Builder) Context(kind, name, typeName string) *Builder {
	b.contexts = append(b.contexts, contextDecl{kind: kind, name: name, typeName: typeName})
	return b
}

// Contexts binds several implicitly typed contexts on kind.
func (b *Builder) Contexts(kind string, names ...string) *Builder {
	for _, name := range names {
		b.Context(kind, name, "")
	}
	return b
}

// Build validates the declarations and computes the hierarchy caches.
func (b *Builder) Build() (*Registry, error) {
	for _, t := range append([]*TagType{b.root}, b.types...) {
		if t.storage == nil {
			continue
		}
		if err := checkIdempotent(t.storage, idempotenceSamples); err != nil {
			return nil, errors.Wrapf(err, "tag type %q", t.Name)
		}
	}

	r := &Registry{
		root:         b.root.Name,
		types:        map[string]*TagType{b.root.Name: b.root},
		typeOrder:    []string{b.root.Name},
		kinds:        make(map[string]*Kind),
		ownContexts:  make(map[string][]Context),
		typeChildren: make(map[string][]string),
		kindChildren: make(map[string][]string),
	}

	for _, t := range b.types {
		if t.Name == "" {
			return nil, errors.NewInvalidRequestError("tag type with empty name")
		}
		if _, exists := r.types[t.Name]; exists {
			return nil, errors.NewInvalidRequestError("tag type %q declared twice", t.Name)
		}
		r.types[t.Name] = t
		r.typeOrder = append(r.typeOrder, t.Name)
	}

	for i := range b.kinds {
		k := b.kinds[i]
		if k.Name == "" {
			return nil, errors.NewInvalidRequestError("taggable kind with empty name")
		}
		if _, exists := r.kinds[k.Name]; exists {
			return nil, errors.NewInvalidRequestError("taggable kind %q declared twice", k.Name)
		}
		r.kinds[k.Name] = &k
		r.kindOrder = append(r.kindOrder, k.Name)
	}

	for _, c := range b.contexts {
		if err := r.bindContext(c); err != nil {
			return nil, err
		}
	}

	if err := r.link(); err != nil {
		return nil, err
	}
	if err := r.checkContextOverrides(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) bindContext(c contextDecl) error {
	if _, ok := r.kinds[c.kind]; !ok {
		return errors.NewInvalidRequestError("context %q bound on unknown kind %q", c.name, c.kind)
	}
	if c.name == "" {
		return errors.NewInvalidRequestError("context with empty name on kind %q", c.kind)
	}

	typeName := c.typeName
	if typeName == "" {
		typeName = singular(c.name)
		if _, ok := r.types[typeName]; !ok {
			r.types[typeName] = &TagType{Name: typeName, Parent: r.root}
			r.typeOrder = append(r.typeOrder, typeName)
		}
	} else if _, ok := r.types[typeName]; !ok {
		return errors.NewTypeMismatchError(typeName, "context "+c.name+" references an unregistered type")
	}

	for _, existing := range r.ownContexts[c.kind] {
		if existing.Name != c.name {
			continue
		}
		if existing.Type != typeName {
			return errors.NewInvalidRequestError("context %q on kind %q bound to both %q and %q",
				c.name, c.kind, existing.Type, typeName)
		}
		return nil
	}
	r.ownContexts[c.kind] = append(r.ownContexts[c.kind], Context{Name: c.name, Kind: c.kind, Type: typeName})
	return nil
}

// link checks parent references, rejects cycles and fills the ancestor and
// descendant caches of both trees.
func (r *Registry) link() error {
	r.typeAncestors = make(map[string][]string, len(r.types))
	for _, name := range r.typeOrder {
		chain, err := walkUp(name, len(r.types), func(n string) (string, bool) {
			t, ok := r.types[n]
			if !ok {
				return "", false
			}
			return t.Parent, true
		})
		if err != nil {
			return errors.Wrapf(err, "tag type %q", name)
		}
		r.typeAncestors[name] = chain
		if parent := r.types[name].Parent; parent != "" {
			r.typeChildren[parent] = append(r.typeChildren[parent], name)
		}
	}
	r.typeDescendants = descendantsOf(r.typeOrder, r.typeAncestors)

	r.kindAncestors = make(map[string][]string, len(r.kinds))
	for _, name := range r.kindOrder {
		chain, err := walkUp(name, len(r.kinds), func(n string) (string, bool) {
			k, ok := r.kinds[n]
			if !ok {
				return "", false
			}
			return k.Parent, true
		})
		if err != nil {
			return errors.Wrapf(err, "taggable kind %q", name)
		}
		r.kindAncestors[name] = chain
		if parent := r.kinds[name].Parent; parent != "" {
			r.kindChildren[parent] = append(r.kindChildren[parent], name)
		}
	}
	r.kindDescendants = descendantsOf(r.kindOrder, r.kindAncestors)
	return nil
}

// walkUp returns the chain from name up to the top of its tree, name first.
func walkUp(name string, limit int, parentOf func(string) (string, bool)) ([]string, error) {
	chain := []string{name}
	cur := name
	for {
		parent, ok := parentOf(cur)
		if !ok {
			return nil, errors.NewInvalidRequestError("unknown parent %q", cur)
		}
		if parent == "" {
			return chain, nil
		}
		if len(chain) > limit {
			return nil, errors.NewInvalidRequestError("cycle through %q", parent)
		}
		chain = append(chain, parent)
		cur = parent
	}
}

// descendantsOf inverts the ancestor chains, keeping declaration order.
func descendantsOf(order []string, ancestors map[string][]string) map[string][]string {
	out := make(map[string][]string, len(order))
	for _, name := range order {
		for _, anc := range ancestors[name][1:] {
			out[anc] = append(out[anc], name)
		}
	}
	return out
}

// checkContextOverrides rejects a sub-kind rebinding an inherited context to
// a different type.
func (r *Registry) checkContextOverrides() error {
	for _, kind := range r.kindOrder {
		for _, c := range r.ownContexts[kind] {
			for _, anc := range r.kindAncestors[kind][1:] {
				for _, inherited := range r.ownContexts[anc] {
					if inherited.Name == c.Name && inherited.Type != c.Type {
						return errors.NewInvalidRequestError(
							"context %q on kind %q rebinds %q inherited from %q to %q",
							c.Name, kind, inherited.Type, anc, c.Type)
					}
				}
			}
		}
	}
	return nil
}
