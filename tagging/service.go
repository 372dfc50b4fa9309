package tagging

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

// Options configures a Service. The zero value is usable.
type Options struct {
	Parser  taglist.Parser
	Sync    SyncOptions
	Metrics *Metrics
	Logger  *zap.SugaredLogger
}

// Service ties a taxonomy to a store and hands out the caller facades:
// Taggable for one entity, Tagger for an actor and Scope for class level
// queries.
type Service struct {
	registry *taxonomy.Registry
	store    Store
	parser   taglist.Parser
	sync     *Synchronizer
	metrics  *Metrics
	logger   *zap.SugaredLogger
}

// NewService creates a tagging service.
func NewService(registry *taxonomy.Registry, store Store, opts Options) *Service {
	log := logger.OrNop(opts.Logger)
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		registry: registry,
		store:    store,
		parser:   opts.Parser,
		sync:     NewSynchronizer(registry, opts.Sync, metrics, log.Named("sync")),
		metrics:  metrics,
		logger:   log,
	}
}

// Registry returns the taxonomy the service resolves against.
func (s *Service) Registry() *taxonomy.Registry {
	return s.registry
}

// Parser returns the tag string parser.
func (s *Service) Parser() taglist.Parser {
	return s.parser
}

// CreateEntity stores a new entity of a registered kind.
func (s *Service) CreateEntity(ctx context.Context, kind, name string) (*Taggable, error) {
	if _, ok := s.registry.Kind(kind); !ok {
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unknown taggable kind %q", kind),
			"declare the kind in the taxonomy file")
	}
	ref, err := s.store.CreateEntity(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	return s.Taggable(*ref), nil
}

// Entity loads an entity by id.
func (s *Service) Entity(ctx context.Context, id int64) (*Taggable, error) {
	ref, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Taggable(*ref), nil
}

// DeleteEntity removes an entity and, through the store, its taggings.
func (s *Service) DeleteEntity(ctx context.Context, id int64) error {
	return s.store.DeleteEntity(ctx, id)
}

// Taggable wraps an entity for tag list access.
func (s *Service) Taggable(ref types.EntityRef) *Taggable {
	return &Taggable{
		svc:    s,
		ref:    ref,
		lists:  make(map[string]*taglist.List),
		loaded: make(map[string]*taglist.List),
		dirty:  make(map[string]bool),
	}
}

// Tagger wraps an entity that applies tags to others.
func (s *Service) Tagger(ref types.EntityRef) *Tagger {
	return &Tagger{svc: s, ref: ref}
}

// Scope starts a class level query over kind and its sub-kinds.
func (s *Service) Scope(kind string) Scope {
	return Scope{svc: s, kind: kind, order: types.OrderByID}
}

// PruneUnusedTags deletes tags no tagging references.
func (s *Service) PruneUnusedTags(ctx context.Context) (int64, error) {
	return s.store.PruneUnusedTags(ctx)
}

// Stats returns store row counts.
func (s *Service) Stats(ctx context.Context) (*types.Stats, error) {
	return s.store.Stats(ctx)
}

// resolve turns an input into values, logging degraded parses.
func (s *Service) resolve(in taglist.Input, log *zap.SugaredLogger) []string {
	values, degraded := in.Resolve(s.parser)
	if degraded {
		log.Warnw("Tag string had unbalanced quotes, split on delimiter only",
			logger.FieldError, errors.ErrParseDegraded.Error(),
			logger.FieldCount, len(values),
		)
	}
	return values
}

// pendingList is one context's desired values in a save cycle.
type pendingList struct {
	context string
	values  []string
}

// saveCycle synchronizes every pending list of entity in one transaction.
// Contexts are processed in taxonomy order so the outcome does not depend on
// the order lists were set. It returns the contexts that were not fully
// applied; on a fatal error nothing is committed and every context is
// returned.
func (s *Service) saveCycle(ctx context.Context, entity types.EntityRef, taggerID int64, lists []pendingList) ([]string, error) {
	if len(lists) == 0 {
		return nil, nil
	}

	ctx = logger.WithCycleID(ctx, uuid.NewString())
	log := logger.FromContext(ctx, s.logger)

	order := make(map[string]int)
	for i, c := range s.registry.Contexts(entity.Kind) {
		order[c.Name] = i
	}
	sort.SliceStable(lists, func(i, j int) bool {
		return order[lists[i].context] < order[lists[j].context]
	})

	all := make([]string, len(lists))
	for i, l := range lists {
		all[i] = l.context
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		s.metrics.SyncFailures.WithLabelValues(FailureStorage).Inc()
		return all, err
	}
	defer tx.Rollback()

	var failed []string
	var partial *errors.PartialSyncError
	for _, l := range lists {
		_, err := s.sync.Synchronize(ctx, tx, entity, l.context, taggerID, l.values)

		var pe *errors.PartialSyncError
		if errors.As(err, &pe) {
			failed = append(failed, l.context)
			if partial == nil {
				partial = pe
			}
			continue
		}
		if err != nil {
			s.metrics.SyncFailures.WithLabelValues(failureKind(err)).Inc()
			log.Warnw("Save cycle failed, rolling back",
				logger.FieldEntity, entity.ID,
				logger.FieldContext, l.context,
				logger.FieldError, err,
			)
			return all, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.metrics.SyncFailures.WithLabelValues(FailureStorage).Inc()
		return all, err
	}

	if partial != nil {
		s.metrics.SyncFailures.WithLabelValues(FailurePartial).Inc()
		log.Warnw("Save cycle partially applied",
			logger.FieldEntity, entity.ID,
			"contexts", failed,
			logger.FieldError, partial,
		)
		return failed, partial
	}

	log.Debugw("Save cycle committed", logger.FieldEntity, entity.ID, logger.FieldCount, len(lists))
	return nil, nil
}

func failureKind(err error) string {
	if errors.Is(err, errors.ErrSyncConflict) {
		return FailureConflict
	}
	return FailureStorage
}
