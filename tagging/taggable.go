package tagging

import (
	"context"
	"sync"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging/types"
)

// DefaultContext is the context bound to the root type by convention.
const DefaultContext = "tags"

// Taggable is one entity's view of its tag lists. Lists are loaded lazily,
// edited in memory and written back by SaveTags. Safe for concurrent use.
type Taggable struct {
	svc *Service
	ref types.EntityRef

	mu     sync.Mutex
	lists  map[string]*taglist.List // working copy handed to callers
	loaded map[string]*taglist.List // persisted state the working copy started from
	dirty  map[string]bool
}

// Ref returns the entity reference.
func (t *Taggable) Ref() types.EntityRef { return t.ref }

// ID returns the entity id.
func (t *Taggable) ID() int64 { return t.ref.ID }

// TagList returns the values of context, pending edits included, as read
// normalised strings. An unregistered context yields no values.
func (t *Taggable) TagList(ctx context.Context, context string) ([]string, error) {
	if _, err := t.svc.registry.Context(t.ref.Kind, context); err != nil {
		t.svc.logger.Debugw("Reading unregistered context",
			logger.FieldEntity, t.ref.ID,
			logger.FieldContext, context,
		)
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	l, err := t.listLocked(ctx, context)
	if err != nil {
		return nil, err
	}
	return l.Values(), nil
}

// TagListOn returns the live list of context. Changes to it are written by
// the next SaveTags.
func (t *Taggable) TagListOn(ctx context.Context, context string) (*taglist.List, error) {
	if _, err := t.svc.registry.Context(t.ref.Kind, context); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	l, err := t.listLocked(ctx, context)
	if err != nil {
		return nil, err
	}
	t.dirty[context] = true
	return l, nil
}

// SetTagList replaces the pending list of context with input.
func (t *Taggable) SetTagList(context string, input taglist.Input) error {
	if _, err := t.svc.registry.Context(t.ref.Kind, context); err != nil {
		return err
	}
	values := t.svc.resolve(input, t.svc.logger.With(logger.FieldEntity, t.ref.ID, logger.FieldContext, context))

	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.lists[context]
	if !ok {
		l = taglist.New()
		t.lists[context] = l
	}
	l.Replace(values...)
	t.dirty[context] = true
	return nil
}

// AddTags appends input to the list of context.
func (t *Taggable) AddTags(ctx context.Context, context string, input taglist.Input) error {
	l, err := t.TagListOn(ctx, context)
	if err != nil {
		return err
	}
	values := t.svc.resolve(input, t.svc.logger)

	t.mu.Lock()
	defer t.mu.Unlock()
	l.Add(values...)
	return nil
}

// Dirty returns the contexts with pending edits, in taxonomy order.
func (t *Taggable) Dirty() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, c := range t.svc.registry.Contexts(t.ref.Kind) {
		if t.dirty[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// SaveTags writes every pending list in one save cycle. Lists equal to what
// was loaded are skipped. After a successful save the cached lists are
// dropped and re-read on next access; contexts that were not fully applied
// stay pending so SaveTags can be retried.
func (t *Taggable) SaveTags(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pending []pendingList
	for context := range t.dirty {
		l := t.lists[context]
		if base, ok := t.loaded[context]; ok && base.Equal(l) {
			delete(t.dirty, context)
			continue
		}
		pending = append(pending, pendingList{context: context, values: l.Values()})
	}

	failed, err := t.svc.saveCycle(ctx, t.ref, types.NoTagger, pending)

	keep := make(map[string]bool, len(failed))
	for _, c := range failed {
		keep[c] = true
	}
	for context := range t.dirty {
		if keep[context] {
			continue
		}
		delete(t.dirty, context)
		delete(t.lists, context)
		delete(t.loaded, context)
	}
	return err
}

// Reload drops every cached list and pending edit.
func (t *Taggable) Reload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lists = make(map[string]*taglist.List)
	t.loaded = make(map[string]*taglist.List)
	t.dirty = make(map[string]bool)
}

// TagsOn returns the stored tags visible on context that nobody in
// particular applied, with values normalised for reading.
func (t *Taggable) TagsOn(ctx context.Context, context string) ([]types.Tag, error) {
	held, err := t.visibleTags(ctx, context, types.NoTagger)
	if err != nil {
		return nil, err
	}
	return t.distinctTags(held), nil
}

// AllTagsListOn returns the values visible on context whoever applied them.
func (t *Taggable) AllTagsListOn(ctx context.Context, context string) ([]string, error) {
	held, err := t.visibleTags(ctx, context, types.AnyTagger)
	if err != nil {
		return nil, err
	}
	return t.values(held).Values(), nil
}

// OwnerTagsOn returns the tags visible on context applied by taggerID.
func (t *Taggable) OwnerTagsOn(ctx context.Context, taggerID int64, context string) ([]types.Tag, error) {
	held, err := t.visibleTags(ctx, context, taggerID)
	if err != nil {
		return nil, err
	}
	return t.distinctTags(held), nil
}

// RemoveTags deletes the taggings of values made in context.
func (t *Taggable) RemoveTags(ctx context.Context, context string, values ...string) (int, error) {
	tx, err := t.svc.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := t.svc.sync.Remove(ctx, tx, t.ref, context, types.NoTagger, values)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	delete(t.lists, context)
	delete(t.loaded, context)
	delete(t.dirty, context)
	t.mu.Unlock()
	return n, nil
}

// TagCountsOn counts, across the entity's kind, the tags this entity holds
// on context.
func (t *Taggable) TagCountsOn(ctx context.Context, context string, opts CountOptions) ([]types.TagCount, error) {
	held, err := t.visibleTags(ctx, context, types.AnyTagger)
	if err != nil || len(held) == 0 {
		return nil, err
	}
	ids := make([]int64, 0, len(held))
	seen := make(map[int64]bool, len(held))
	for _, a := range held {
		if !seen[a.Tag.ID] {
			seen[a.Tag.ID] = true
			ids = append(ids, a.Tag.ID)
		}
	}
	return t.svc.Scope(t.ref.Kind).count(ctx, opts, nil, ids)
}

// listLocked returns the working list of context, loading it on first use.
func (t *Taggable) listLocked(ctx context.Context, context string) (*taglist.List, error) {
	if l, ok := t.lists[context]; ok {
		return l, nil
	}
	held, err := t.visibleTags(ctx, context, types.NoTagger)
	if err != nil {
		return nil, err
	}
	base := t.values(held)
	t.loaded[context] = base
	t.lists[context] = base.Clone()
	return t.lists[context], nil
}

// visibleTags reads the taggings of context and the contexts below it.
// Unregistered contexts yield nothing.
func (t *Taggable) visibleTags(ctx context.Context, context string, taggerID int64) ([]types.AppliedTag, error) {
	visible, err := t.svc.registry.VisibleContexts(t.ref.Kind, context)
	if err != nil {
		t.svc.logger.Debugw("Reading unregistered context",
			logger.FieldEntity, t.ref.ID,
			logger.FieldContext, context,
		)
		return nil, nil
	}
	held, err := t.svc.store.EntityTags(ctx, t.ref.ID, contextNames(visible), taggerID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s tags of entity %d", context, t.ref.ID)
	}
	return held, nil
}

func (t *Taggable) values(held []types.AppliedTag) *taglist.List {
	l := taglist.New()
	for _, a := range held {
		l.Add(t.readValue(a.Tag))
	}
	return l
}

func (t *Taggable) distinctTags(held []types.AppliedTag) []types.Tag {
	var out []types.Tag
	seen := make(map[int64]bool, len(held))
	for _, a := range held {
		if seen[a.Tag.ID] {
			continue
		}
		seen[a.Tag.ID] = true
		tag := a.Tag
		tag.Value = t.readValue(tag)
		out = append(out, tag)
	}
	return out
}

func (t *Taggable) readValue(tag types.Tag) string {
	typ, ok := t.svc.registry.Type(tag.Type)
	if !ok {
		return tag.Value
	}
	return typ.NormalizeForRead(tag.Value)
}
