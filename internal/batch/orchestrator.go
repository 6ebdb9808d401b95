// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives a screening run end to end: it fans a chemical
// list out over a bounded worker pool, consults the cache before the
// network, scores each result, and records everything in the session
// store as it happens.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/chemscreen/internal/cache"
	"github.com/pdiddy/chemscreen/internal/score"
	"github.com/pdiddy/chemscreen/pkg/types"
)

const defaultConcurrency = 5

// Fetcher performs the remote literature search for one chemical.
type Fetcher interface {
	Fetch(ctx context.Context, chem types.Chemical, params types.SearchParameters) types.SearchResult
}

// ResultCache is the read-through cache consulted before each fetch.
// A ttl of zero on Put means the store default.
type ResultCache interface {
	Get(key string) (types.SearchResult, error)
	Put(key string, result types.SearchResult, ttl time.Duration) error
}

// SessionWriter persists run state. Failures here are fatal to the
// batch.
type SessionWriter interface {
	Create(ctx context.Context, sess *types.BatchSession) error
	UpdateStatus(ctx context.Context, id string, status types.SessionStatus, at time.Time) error
	SaveResult(ctx context.Context, id string, result types.ScoredResult) error
}

// ProgressFunc is invoked after each chemical finishes, with the number
// completed so far, the batch total, and the chemical's name. Calls
// arrive in completion order, which is not input order.
type ProgressFunc func(completed, total int, chemical string)

// Orchestrator runs screening batches. One Orchestrator may run many
// batches, sequentially or concurrently; each Run gets its own session.
type Orchestrator struct {
	fetcher  Fetcher
	cache    ResultCache
	sessions SessionWriter
	cfg      types.BatchConfig
	log      *zap.Logger
	now      func() time.Time
}

// New constructs an Orchestrator. cache may be nil when caching is
// disabled entirely.
func New(fetcher Fetcher, resultCache ResultCache, sessions SessionWriter, cfg types.BatchConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		fetcher:  fetcher,
		cache:    resultCache,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Run screens the given chemicals and returns the finished session.
// Per-chemical failures are recorded inside the session rather than
// returned; Run itself fails only on invalid inputs or when session
// state cannot be persisted. Cancelling ctx stops dispatch, waits for
// in-flight work, and leaves the session in the cancelled state with
// whatever results completed.
func (o *Orchestrator) Run(ctx context.Context, chemicals []types.Chemical, params types.SearchParameters, onProgress ProgressFunc) (*types.BatchSession, error) {
	if len(chemicals) == 0 {
		return nil, &ConfigurationError{Reason: "chemical list is empty"}
	}
	if max := o.cfg.MaxBatchSize; max > 0 && len(chemicals) > max {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("%d chemicals exceeds the batch limit of %d", len(chemicals), max)}
	}
	if err := params.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	now := o.now().UTC()
	sess := &types.BatchSession{
		ID:         uuid.NewString(),
		Chemicals:  chemicals,
		Parameters: params,
		Status:     types.StatusPending,
		Results:    make(map[string]types.ScoredResult, len(chemicals)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.sessions.Create(ctx, sess); err != nil {
		return nil, &StorageError{Op: "create", Err: err}
	}
	if err := o.transition(ctx, sess, types.StatusRunning); err != nil {
		return nil, err
	}

	o.log.Info("batch started",
		zap.String("session", sess.ID),
		zap.Int("chemicals", len(chemicals)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	var (
		mu        sync.Mutex
		completed int
	)
	total := len(chemicals)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, chem := range chemicals {
		// Stop handing out work once the run is cancelled or a storage
		// failure has poisoned the group context.
		if gctx.Err() != nil {
			break
		}
		chem := chem
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			scored := score.Score(o.lookup(gctx, chem, params))
			// Work that finished before cancellation is still persisted,
			// so only a real storage failure can fail the session.
			if err := o.sessions.SaveResult(context.WithoutCancel(gctx), sess.ID, scored); err != nil {
				return &StorageError{Op: "save result", Err: err}
			}

			mu.Lock()
			sess.Results[chem.Key()] = scored
			completed++
			done := completed
			mu.Unlock()

			if onProgress != nil {
				onProgress(done, total, chem.Name)
			}
			return nil
		})
	}

	// The drain is bounded in practice: cancelled workers exit once
	// their in-flight call returns, and every fetch carries the HTTP
	// client's per-request timeout.
	runErr := g.Wait()
	sess.UpdatedAt = o.now().UTC()

	switch {
	case runErr != nil:
		// Storage failures are the only errors workers return.
		if err := o.transition(context.WithoutCancel(ctx), sess, types.StatusFailed); err != nil {
			o.log.Warn("could not mark session failed", zap.String("session", sess.ID), zap.Error(err))
		}
		return sess, runErr
	case ctx.Err() != nil:
		if err := o.transition(context.WithoutCancel(ctx), sess, types.StatusCancelled); err != nil {
			return sess, err
		}
		o.log.Info("batch cancelled",
			zap.String("session", sess.ID),
			zap.Int("completed", completed),
			zap.Int("total", total),
		)
		return sess, nil
	default:
		if err := o.transition(ctx, sess, types.StatusCompleted); err != nil {
			return sess, err
		}
		o.log.Info("batch completed", zap.String("session", sess.ID), zap.Int("chemicals", total))
		return sess, nil
	}
}

// lookup serves one chemical from the cache when possible, falling back
// to the fetcher with write-through on success. Cache failures degrade
// to a fetch; they never fail the work unit.
func (o *Orchestrator) lookup(ctx context.Context, chem types.Chemical, params types.SearchParameters) types.SearchResult {
	useCache := params.UseCache && o.cache != nil
	key := cache.Fingerprint(chem, params)

	if useCache {
		if result, err := o.cache.Get(key); err == nil {
			o.log.Debug("cache hit", zap.String("chemical", chem.Name))
			return result
		}
	}

	result := o.fetcher.Fetch(ctx, chem, params)

	if useCache && !result.Failed() {
		if err := o.cache.Put(key, result, 0); err != nil {
			o.log.Warn("cache write failed", zap.String("chemical", chem.Name), zap.Error(err))
		}
	}
	return result
}

func (o *Orchestrator) transition(ctx context.Context, sess *types.BatchSession, next types.SessionStatus) error {
	if !sess.Status.CanTransition(next) {
		return &StorageError{Op: "transition", Err: fmt.Errorf("illegal status change %s -> %s", sess.Status, next)}
	}
	if err := o.sessions.UpdateStatus(ctx, sess.ID, next, o.now().UTC()); err != nil {
		return &StorageError{Op: "update status", Err: err}
	}
	sess.Status = next
	return nil
}
