package tagging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

// Default retry policy of the find-or-create loop.
const (
	DefaultSyncMaxAttempts = 3
	DefaultSyncBackoff     = 10 * time.Millisecond
)

// SyncOptions bounds the find-or-create retry loop.
type SyncOptions struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultSyncMaxAttempts
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	return o
}

// SyncResult reports what one synchronization changed.
type SyncResult struct {
	Added       int
	Removed     int
	Specialised int
	Unapplied   []string
}

// Synchronizer reconciles a desired tag list with the stored taggings of one
// (entity, context, tagger).
type Synchronizer struct {
	registry *taxonomy.Registry
	opts     SyncOptions
	metrics  *Metrics
	logger   *zap.SugaredLogger
}

// NewSynchronizer creates a synchronizer. metrics and log may be nil.
func NewSynchronizer(registry *taxonomy.Registry, opts SyncOptions, metrics *Metrics, log *zap.SugaredLogger) *Synchronizer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Synchronizer{
		registry: registry,
		opts:     opts.withDefaults(),
		metrics:  metrics,
		logger:   logger.OrNop(log),
	}
}

// Synchronize makes the taggings of entity on context applied by taggerID
// match desired, using sess for every read and write.
//
// The current list is read over the context and every context whose type is
// below it, so a value already held under a more specific type is not added
// again. A value held under a less specific type in another context is moved
// to this context's type instead of being duplicated. Only taggings made in
// context itself are ever removed.
//
// Values whose tag could not be created because of a lasting uniqueness race
// are reported through a *errors.PartialSyncError; everything else was
// applied. Any other storage fault is returned as is and the caller must roll
// back.
func (s *Synchronizer) Synchronize(ctx context.Context, sess Session, entity types.EntityRef, context string, taggerID int64, desired []string) (*SyncResult, error) {
	log := logger.FromContext(ctx, s.logger).With(
		logger.FieldEntity, entity.ID,
		logger.FieldContext, context,
		logger.FieldTagger, taggerID,
	)

	c, err := s.registry.Context(entity.Kind, context)
	if err != nil {
		return nil, err
	}
	typ, _ := s.registry.Type(c.Type)

	visible, err := s.registry.VisibleContexts(entity.Kind, context)
	if err != nil {
		return nil, err
	}
	current, err := sess.EntityTags(ctx, entity.ID, contextNames(visible), taggerID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load current %s tags of entity %d", context, entity.ID)
	}

	toAdd := s.missing(typ, desired, current)
	toRemove := s.stale(typ, context, desired, current)

	result := &SyncResult{}

	for _, a := range toRemove {
		if err := sess.DeleteTagging(ctx, a.TaggingID); err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to remove %q from %s", a.Tag.Value, context)
		}
		result.Removed++
		s.metrics.TaggingsRemoved.Inc()
	}

	var general []types.AppliedTag
	if len(toAdd) > 0 {
		general, err = s.generalTaggings(ctx, sess, entity, typ, taggerID)
		if err != nil {
			return nil, err
		}
	}

	for _, value := range toAdd {
		tag, err := s.findOrCreateTag(ctx, sess, typ, value, log)
		if errors.Is(err, errors.ErrSyncConflict) {
			result.Unapplied = append(result.Unapplied, value)
			continue
		}
		if err != nil {
			return nil, err
		}

		if held, ok := s.match(value, typ, general); ok {
			moved, err := s.specialise(ctx, sess, held, tag, context)
			if err != nil {
				return nil, err
			}
			if moved {
				result.Specialised++
				log.Debugw("Specialised tagging", logger.FieldValue, value, "from_type", held.Tag.Type, logger.FieldTagType, typ.Name)
				continue
			}
		}

		_, err = sess.CreateTagging(ctx, types.Tagging{
			TagID:    tag.ID,
			EntityID: entity.ID,
			Context:  context,
			TaggerID: taggerID,
		})
		if errors.IsConflictError(err) {
			log.Debugw("Tagging already present", logger.FieldValue, value)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add %q to %s", value, context)
		}
		result.Added++
		s.metrics.TaggingsCreated.Inc()
	}

	log.Debugw("Synchronized tag list",
		"added", result.Added,
		"removed", result.Removed,
		"specialised", result.Specialised,
		"unapplied", len(result.Unapplied),
	)

	if len(result.Unapplied) > 0 {
		return result, &errors.PartialSyncError{
			Context:   context,
			TaggerID:  taggerID,
			Unapplied: result.Unapplied,
			Cause:     errors.ErrSyncConflict,
		}
	}
	return result, nil
}

// Remove deletes the taggings of values made in context by taggerID.
func (s *Synchronizer) Remove(ctx context.Context, sess Session, entity types.EntityRef, context string, taggerID int64, values []string) (int, error) {
	c, err := s.registry.Context(entity.Kind, context)
	if err != nil {
		return 0, err
	}
	typ, _ := s.registry.Type(c.Type)

	current, err := sess.EntityTags(ctx, entity.ID, []string{context}, taggerID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load current %s tags of entity %d", context, entity.ID)
	}

	removed := 0
	for _, a := range current {
		if !s.anyMatches(values, typ, a) {
			continue
		}
		if err := sess.DeleteTagging(ctx, a.TaggingID); err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return removed, errors.Wrapf(err, "failed to remove %q from %s", a.Tag.Value, context)
		}
		removed++
		s.metrics.TaggingsRemoved.Inc()
	}
	return removed, nil
}

// findOrCreateTag converges on the single tag of typ for value. A create that
// loses a race to a concurrent writer re-reads, paced by the backoff, up to
// MaxAttempts times.
func (s *Synchronizer) findOrCreateTag(ctx context.Context, sess Session, typ *taxonomy.TagType, value string, log *zap.SugaredLogger) (*types.Tag, error) {
	stored := typ.NormalizeForStorage(value)
	key := strings.ToLower(stored)

	limiter := rate.NewLimiter(rate.Every(s.opts.Backoff), 1)
	limiter.Allow()

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		tag, err := sess.FindTag(ctx, typ.Name, key)
		if err == nil {
			return tag, nil
		}
		if !errors.IsNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to look up %s tag %q", typ.Name, value)
		}

		tag, err = sess.CreateTag(ctx, typ.Name, stored, key)
		if err == nil {
			s.metrics.TagsCreated.Inc()
			return tag, nil
		}
		if !errors.IsConflictError(err) {
			return nil, errors.Wrapf(err, "failed to create %s tag %q", typ.Name, value)
		}

		s.metrics.ConflictRetries.Inc()
		log.Debugw("Tag create lost a race, retrying",
			logger.FieldTagType, typ.Name,
			logger.FieldValue, value,
			logger.FieldAttempt, attempt,
		)
		if attempt < s.opts.MaxAttempts {
			if err := limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "tag create retry interrupted")
			}
		}
	}

	log.Warnw("Tag create conflict unresolved",
		logger.FieldTagType, typ.Name,
		logger.FieldValue, value,
		logger.FieldAttempt, s.opts.MaxAttempts,
	)
	return nil, errors.Wrapf(errors.ErrSyncConflict, "%s tag %q after %d attempts", typ.Name, value, s.opts.MaxAttempts)
}

// specialise moves a tagging held under a less specific type to tag in
// context. When the target tagging already exists the general one is dropped.
func (s *Synchronizer) specialise(ctx context.Context, sess Session, held types.AppliedTag, tag *types.Tag, context string) (bool, error) {
	err := sess.MoveTagging(ctx, held.TaggingID, tag.ID, context)
	switch {
	case err == nil:
		s.metrics.TaggingsSpecialised.Inc()
		return true, nil
	case errors.IsConflictError(err):
		if err := sess.DeleteTagging(ctx, held.TaggingID); err != nil && !errors.IsNotFoundError(err) {
			return false, errors.Wrapf(err, "failed to drop general tagging %d", held.TaggingID)
		}
		s.metrics.TaggingsRemoved.Inc()
		return true, nil
	case errors.IsNotFoundError(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, "failed to specialise tagging %d", held.TaggingID)
	}
}

// generalTaggings returns the entity's taggings in contexts whose type lies
// strictly above typ.
func (s *Synchronizer) generalTaggings(ctx context.Context, sess Session, entity types.EntityRef, typ *taxonomy.TagType, taggerID int64) ([]types.AppliedTag, error) {
	var names []string
	for _, c := range s.registry.Contexts(entity.Kind) {
		if s.registry.IsStrictAncestor(c.Type, typ.Name) {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	held, err := sess.EntityTags(ctx, entity.ID, names, taggerID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load general tags of entity %d", entity.ID)
	}
	return held, nil
}

// missing returns the desired values not held in current, once per key.
func (s *Synchronizer) missing(typ *taxonomy.TagType, desired []string, current []types.AppliedTag) []string {
	seen := make(map[string]bool, len(desired))
	var out []string
	for _, v := range desired {
		key := typ.Key(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := s.match(v, typ, current); !ok {
			out = append(out, v)
		}
	}
	return out
}

// stale returns the taggings made in context that no desired value matches.
func (s *Synchronizer) stale(typ *taxonomy.TagType, context string, desired []string, current []types.AppliedTag) []types.AppliedTag {
	var out []types.AppliedTag
	for _, a := range current {
		if a.Context != context {
			continue
		}
		if !s.anyMatches(desired, typ, a) {
			out = append(out, a)
		}
	}
	return out
}

// match finds the first tagging in held that value denotes.
func (s *Synchronizer) match(value string, typ *taxonomy.TagType, held []types.AppliedTag) (types.AppliedTag, bool) {
	for _, a := range held {
		if s.matches(value, typ, a) {
			return a, true
		}
	}
	return types.AppliedTag{}, false
}

func (s *Synchronizer) anyMatches(values []string, typ *taxonomy.TagType, a types.AppliedTag) bool {
	for _, v := range values {
		if s.matches(v, typ, a) {
			return true
		}
	}
	return false
}

// matches compares case-insensitively against both the stored and the read
// form of the tagging's value, normalising value for both the context's type
// and the tag's own type.
func (s *Synchronizer) matches(value string, typ *taxonomy.TagType, a types.AppliedTag) bool {
	tagType, ok := s.registry.Type(a.Tag.Type)
	if !ok {
		tagType = typ
	}
	stored := strings.ToLower(a.Tag.Value)
	read := strings.ToLower(tagType.NormalizeForRead(a.Tag.Value))

	for _, candidate := range []string{strings.ToLower(value), typ.Key(value), tagType.Key(value)} {
		if candidate == stored || candidate == read || candidate == a.Tag.ValueKey {
			return true
		}
	}
	return false
}

func contextNames(cs []taxonomy.Context) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
