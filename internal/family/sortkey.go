package family

import (
	"context"
	"sort"

	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// Ranker resolves an identity to its global rank
type Ranker interface {
	Rank(ctx context.Context, id models.Identity) int
}

// SortKey orders forms within a stage: region priority, then rank, then the
// identity itself so distinct identities never tie.
type SortKey struct {
	Priority int
	Rank     int
	ID       models.Identity
}

// Less reports whether k sorts before other
func (k SortKey) Less(other SortKey) bool {
	if k.Priority != other.Priority {
		return k.Priority < other.Priority
	}
	if k.Rank != other.Rank {
		return k.Rank < other.Rank
	}
	return k.ID < other.ID
}

// Keyer computes sort keys
type Keyer struct {
	vocab  *vocab.Vocabulary
	ranker Ranker
}

// NewKeyer creates a keyer
func NewKeyer(v *vocab.Vocabulary, ranker Ranker) *Keyer {
	return &Keyer{vocab: v, ranker: ranker}
}

// SortKey returns the ordering key of id
func (k *Keyer) SortKey(ctx context.Context, id models.Identity) SortKey {
	return SortKey{
		Priority: k.vocab.RegionPriority(id),
		Rank:     k.ranker.Rank(ctx, id),
		ID:       id,
	}
}

// Sort orders ids ascending by SortKey. Keys are computed once per identity.
func (k *Keyer) Sort(ctx context.Context, ids []models.Identity) {
	keys := make(map[models.Identity]SortKey, len(ids))
	for _, id := range ids {
		keys[id] = k.SortKey(ctx, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return keys[ids[i]].Less(keys[ids[j]])
	})
}
