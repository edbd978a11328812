// Package ranking resolves identities to National Dex ranks and species to
// their eligible alternate forms, memoizing both for the whole run.
package ranking

import (
	"context"
	stderrors "errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// RankSource looks up the authoritative rank of a base species
type RankSource interface {
	FetchRank(ctx context.Context, id models.Identity) (int, error)
}

// ResolverStats counts how ranks were obtained
type ResolverStats struct {
	Hits      int64 `json:"hits"`
	Fetches   int64 `json:"fetches"`
	Fallbacks int64 `json:"fallbacks"`
}

// Resolver maps identities to ranks. Forms share the rank of their base
// species; failed lookups resolve to Unranked. Every answer is cached in the
// RankTable, so repeated calls in a run always agree.
type Resolver struct {
	table  *RankTable
	vocab  *vocab.Vocabulary
	source RankSource
	logger logrus.FieldLogger

	hits      atomic.Int64
	fetches   atomic.Int64
	fallbacks atomic.Int64
}

// NewResolver creates a resolver over table
func NewResolver(table *RankTable, v *vocab.Vocabulary, source RankSource, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		table:  table,
		vocab:  v,
		source: source,
		logger: logger.WithField("component", "rank_resolver"),
	}
}

// Rank returns the global rank of id. A lookup cut short by cancellation
// answers Unranked without caching it.
func (r *Resolver) Rank(ctx context.Context, id models.Identity) int {
	rank, _ := r.resolve(ctx, id)
	return rank
}

// resolve reports whether the answer was stored in the table
func (r *Resolver) resolve(ctx context.Context, id models.Identity) (int, bool) {
	if rank, ok := r.table.Get(id); ok {
		r.hits.Add(1)
		return rank, true
	}

	if base := r.vocab.Normalize(id); base != id {
		rank, stored := r.resolve(ctx, base)
		if !stored {
			return rank, false
		}
		return r.table.PutIfAbsent(id, rank), true
	}

	r.fetches.Add(1)
	rank, err := r.source.FetchRank(ctx, id)
	if err != nil {
		if cancelled(ctx, err) {
			r.logger.WithField("identity", id).Debug("Rank lookup cancelled")
			return Unranked, false
		}
		r.fallbacks.Add(1)
		lookupErr := errors.LookupError(err, string(id))
		r.logger.WithError(lookupErr).WithField("identity", id).Warn("Using fallback rank")
		return r.table.PutIfAbsent(id, Unranked), true
	}

	return r.table.PutIfAbsent(id, rank), true
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || stderrors.Is(err, context.Canceled)
}

// Stats returns lookup counters
func (r *Resolver) Stats() ResolverStats {
	return ResolverStats{
		Hits:      r.hits.Load(),
		Fetches:   r.fetches.Load(),
		Fallbacks: r.fallbacks.Load(),
	}
}
