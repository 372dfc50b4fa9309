package tagging

import (
	"context"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging/types"
)

// Tagger is an entity that applies tags to other entities. Its taggings are
// kept apart from everybody else's on the same entity and context.
type Tagger struct {
	svc *Service
	ref types.EntityRef
}

// Ref returns the tagger's entity reference.
func (tg *Tagger) Ref() types.EntityRef { return tg.ref }

// Tag makes the tagger's list of entity on context equal to input, in one
// save cycle. Taggings by others are untouched.
func (tg *Tagger) Tag(ctx context.Context, entity types.EntityRef, input taglist.Input, context string) error {
	if _, err := tg.svc.registry.Context(entity.Kind, context); err != nil {
		return err
	}
	values := tg.svc.resolve(input, tg.svc.logger.With(
		logger.FieldTagger, tg.ref.ID,
		logger.FieldEntity, entity.ID,
		logger.FieldContext, context,
	))
	_, err := tg.svc.saveCycle(ctx, entity, tg.ref.ID, []pendingList{{context: context, values: values}})
	return err
}

// Untag deletes the tagger's taggings of values on entity in context.
func (tg *Tagger) Untag(ctx context.Context, entity types.EntityRef, context string, values ...string) (int, error) {
	tx, err := tg.svc.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := tg.svc.sync.Remove(ctx, tx, entity, context, tg.ref.ID, values)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// TagsAppliedBy returns the distinct tags this tagger applied on context of
// any kind that declares it, contexts below it included. An undeclared
// context yields nothing.
func (tg *Tagger) TagsAppliedBy(ctx context.Context, context string) ([]types.Tag, error) {
	reg := tg.svc.registry

	var names []string
	seenCtx := make(map[string]bool)
	for _, k := range reg.Kinds() {
		visible, err := reg.VisibleContexts(k, context)
		if err != nil {
			continue
		}
		for _, c := range visible {
			if !seenCtx[c.Name] {
				seenCtx[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	if len(names) == 0 {
		tg.svc.logger.Debugw("Tagger context not declared on any kind",
			logger.FieldTagger, tg.ref.ID,
			logger.FieldContext, context,
		)
		return nil, nil
	}

	held, err := tg.svc.store.TaggerTags(ctx, tg.ref.ID, names)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tags applied by %d", tg.ref.ID)
	}

	var out []types.Tag
	seen := make(map[int64]bool, len(held))
	for _, a := range held {
		if seen[a.Tag.ID] {
			continue
		}
		seen[a.Tag.ID] = true
		tag := a.Tag
		if typ, ok := reg.Type(tag.Type); ok {
			tag.Value = typ.NormalizeForRead(tag.Value)
		}
		out = append(out, tag)
	}
	return out, nil
}
