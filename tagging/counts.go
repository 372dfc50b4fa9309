package tagging

import (
	"context"

	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

// CountOptions shapes a count query.
type CountOptions struct {
	// On names the context or type whose tags are counted; empty means the root.
	On string
	// Only selects the hierarchy around On; descendants by default.
	Only    taxonomy.Expansion
	Order   types.CountOrder
	Limit   int
	AtLeast int64
	AtMost  int64
}

// TagCounts counts, over the entities of the scope, the tags of the type On
// resolves to (expanded by Only), one row per concrete tag.
func (sc Scope) TagCounts(ctx context.Context, opts CountOptions) ([]types.TagCount, error) {
	typ, err := sc.svc.registry.ResolveOn(sc.kind, opts.On)
	if err != nil {
		sc.svc.logger.Debugw("Count target does not resolve, counting nothing",
			logger.FieldKind, sc.kind,
			logger.FieldContext, opts.On,
			logger.FieldError, err,
		)
		return nil, nil
	}
	return sc.count(ctx, opts, sc.svc.registry.Expand(typ.Name, opts.Only), nil)
}

// TagCountsOn is TagCounts on one context.
func (sc Scope) TagCountsOn(ctx context.Context, context string, opts CountOptions) ([]types.TagCount, error) {
	opts.On = context
	return sc.TagCounts(ctx, opts)
}

// AllTagCounts counts every tag of every type over the entities of the scope.
func (sc Scope) AllTagCounts(ctx context.Context, opts CountOptions) ([]types.TagCount, error) {
	return sc.count(ctx, opts, nil, nil)
}

func (sc Scope) count(ctx context.Context, opts CountOptions, typeNames []string, tagIDs []int64) ([]types.TagCount, error) {
	f := sc.Filter()
	if f.Empty {
		return nil, nil
	}
	order := opts.Order
	if order == "" {
		order = types.CountByTagID
	}
	counts, err := sc.svc.store.CountTags(ctx, types.CountQuery{
		Filter:  f,
		Types:   typeNames,
		TagIDs:  tagIDs,
		Order:   order,
		Limit:   opts.Limit,
		AtLeast: opts.AtLeast,
		AtMost:  opts.AtMost,
	})
	if err != nil {
		return nil, err
	}
	for i := range counts {
		if typ, ok := sc.svc.registry.Type(counts[i].Type); ok {
			counts[i].Value = typ.NormalizeForRead(counts[i].Value)
		}
	}
	return counts, nil
}
