package tagging

import (
	"context"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

// Match selects how the values of one clause combine.
type Match int

const (
	// MatchAll requires every value.
	MatchAll Match = iota
	// MatchAny requires at least one value.
	MatchAny
	// MatchExact requires every value and no other tag of the clause's types.
	MatchExact
)

// Clause is one filter over tagged entities.
type Clause struct {
	// On names a context or a tag type; empty means the root type.
	On string
	// Type narrows On to an explicit registered type on the same branch.
	Type string
	// Values to match, case-insensitively.
	Values taglist.Input
	Match  Match
	// Exclude keeps only entities holding none of the values.
	Exclude bool
	// Only selects which part of the hierarchy around the type matches.
	Only taxonomy.Expansion
	// Tagger restricts matching to taggings applied by one tagger. Nil means
	// any tagger; types.NoTagger means taggings not attributed to anyone.
	Tagger *int64
}

// ClauseOption adjusts a clause built by Scope.TaggedWith.
type ClauseOption func(*Clause)

// On targets a context or tag type.
func On(name string) ClauseOption { return func(c *Clause) { c.On = name } }

// OfType restricts the clause to an explicit tag type.
func OfType(name string) ClauseOption { return func(c *Clause) { c.Type = name } }

// Any switches the clause to MatchAny.
func Any() ClauseOption { return func(c *Clause) { c.Match = MatchAny } }

// Exact switches the clause to MatchExact.
func Exact() ClauseOption { return func(c *Clause) { c.Match = MatchExact } }

// Excluding turns the clause into an exclusion.
func Excluding() ClauseOption { return func(c *Clause) { c.Exclude = true } }

// Only sets the hierarchy expansion.
func Only(e taxonomy.Expansion) ClauseOption { return func(c *Clause) { c.Only = e } }

// By restricts the clause to one tagger's taggings.
func By(taggerID int64) ClauseOption { return func(c *Clause) { c.Tagger = &taggerID } }

// Untagged restricts the clause to taggings no tagger applied, the ones
// Taggable.TagList reads.
func Untagged() ClauseOption { return By(types.NoTagger) }

// Scope is an immutable class level query over a kind and its sub-kinds.
// Every refinement returns a new Scope, so chaining filters is the same as
// passing all clauses at once.
type Scope struct {
	svc     *Service
	kind    string
	clauses []Clause
	order   types.EntityOrder
}

// Kind returns the kind the scope was started on.
func (sc Scope) Kind() string { return sc.kind }

// Clauses returns a copy of the accumulated clauses.
func (sc Scope) Clauses() []Clause {
	return append([]Clause(nil), sc.clauses...)
}

// FilteredBy narrows the scope by clauses.
func (sc Scope) FilteredBy(clauses ...Clause) Scope {
	next := sc
	next.clauses = append(append([]Clause(nil), sc.clauses...), clauses...)
	return next
}

// TaggedWith narrows the scope by one clause over values.
func (sc Scope) TaggedWith(values taglist.Input, opts ...ClauseOption) Scope {
	c := Clause{Values: values}
	for _, opt := range opts {
		opt(&c)
	}
	return sc.FilteredBy(c)
}

// OrderBy sets the result order.
func (sc Scope) OrderBy(o types.EntityOrder) Scope {
	next := sc
	next.order = o
	return next
}

// Validate reports the first clause that does not resolve. Reads never fail
// on such clauses, they match nothing.
func (sc Scope) Validate() error {
	_, err := sc.compile()
	return err
}

// Filter returns the compiled predicate. An unresolvable scope compiles to an
// empty filter.
func (sc Scope) Filter() types.Filter {
	f, err := sc.compile()
	if err != nil {
		sc.svc.logger.Debugw("Scope does not resolve, matching nothing",
			logger.FieldKind, sc.kind,
			logger.FieldError, err,
		)
		return types.Filter{Empty: true}
	}
	return f
}

// Entities runs the scope.
func (sc Scope) Entities(ctx context.Context) ([]types.EntityRef, error) {
	f := sc.Filter()
	if f.Empty {
		return nil, nil
	}
	return sc.svc.store.FindEntities(ctx, f)
}

func (sc Scope) compile() (types.Filter, error) {
	kinds := sc.svc.registry.KindScope(sc.kind)
	if kinds == nil {
		return types.Filter{Empty: true}, errors.NewInvalidRequestError("unknown taggable kind %q", sc.kind)
	}

	f := types.Filter{Kinds: kinds, Order: sc.order}
	for i, c := range sc.clauses {
		conds, never, err := sc.compileClause(c)
		if err != nil {
			return types.Filter{Empty: true}, errors.Wrapf(err, "clause %d", i+1)
		}
		if never {
			f.Empty = true
		}
		f.Conditions = append(f.Conditions, conds...)
	}
	return f, nil
}

// compileClause turns one clause into conditions. never reports a clause that
// cannot match any entity.
func (sc Scope) compileClause(c Clause) (conds []types.Condition, never bool, err error) {
	reg := sc.svc.registry

	base, err := reg.ResolveOn(sc.kind, c.On)
	if err != nil {
		return nil, false, err
	}
	if c.Type != "" {
		explicit, ok := reg.Type(c.Type)
		if !ok {
			return nil, false, errors.NewTypeMismatchError(c.Type, "not a registered tag type")
		}
		if !reg.Related(explicit.Name, base.Name) {
			return nil, false, errors.NewTypeMismatchError(c.Type, "not on the branch of "+base.Name)
		}
		base = explicit
	}

	values := sc.svc.resolve(c.Values, sc.svc.logger)
	if len(values) == 0 {
		return nil, !c.Exclude, nil
	}

	typeNames := reg.Expand(base.Name, c.Only)
	tagger := types.AnyTagger
	if c.Tagger != nil {
		tagger = *c.Tagger
	}

	var alts []types.Alternative
	for _, v := range values {
		alts = append(alts, alternatives(reg, typeNames, v)...)
	}

	if c.Match != MatchAny && !c.Exclude {
		for _, v := range values {
			conds = append(conds, types.Condition{
				Alternatives: alternatives(reg, typeNames, v),
				TaggerID:     tagger,
			})
		}
		if c.Match == MatchExact {
			conds = append(conds, types.Condition{
				Alternatives: alts,
				Negate:       true,
				Complement:   true,
				TaggerID:     tagger,
			})
		}
		return conds, false, nil
	}

	return []types.Condition{{Alternatives: alts, Negate: c.Exclude, TaggerID: tagger}}, false, nil
}

// alternatives groups typeNames by the key each type's storage normaliser
// gives value, so one alternative covers every type sharing a key.
func alternatives(reg *taxonomy.Registry, typeNames []string, value string) []types.Alternative {
	var out []types.Alternative
	index := make(map[string]int)
	for _, name := range typeNames {
		typ, _ := reg.Type(name)
		key := typ.Key(value)
		if i, ok := index[key]; ok {
			out[i].Types = append(out[i].Types, name)
			continue
		}
		index[key] = len(out)
		out = append(out, types.Alternative{Types: []string{name}, Key: key})
	}
	return out
}
