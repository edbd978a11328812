package ranking

import (
	"math"
	"sort"
	"sync"

	"github.com/rohankatakam/familydex/internal/models"
)

// Unranked is the rank recorded when the authoritative lookup fails. It
// sorts after every real National Dex number.
const Unranked = math.MaxInt32

// RankTable memoizes identity -> rank for one run. An entry, once written,
// is never overwritten.
type RankTable struct {
	mu      sync.RWMutex
	entries map[models.Identity]int
}

// NewRankTable creates an empty table
func NewRankTable() *RankTable {
	return &RankTable{entries: make(map[models.Identity]int)}
}

// Get returns the cached rank for id
func (t *RankTable) Get(id models.Identity) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rank, ok := t.entries[id]
	return rank, ok
}

// PutIfAbsent stores rank under id unless an entry exists, and returns the
// value now held for id
func (t *RankTable) PutIfAbsent(id models.Identity, rank int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.entries[id]; ok {
		return existing
	}
	t.entries[id] = rank
	return rank
}

// Load merges a persisted snapshot into the table. Entries already present
// win. Returns the number of entries added.
func (t *RankTable) Load(snapshot map[string]int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for k, v := range snapshot {
		id := models.Identity(k)
		if _, ok := t.entries[id]; ok {
			continue
		}
		t.entries[id] = v
		added++
	}
	return added
}

// Snapshot returns a copy of the table for persistence
func (t *RankTable) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.entries))
	for k, v := range t.entries {
		out[string(k)] = v
	}
	return out
}

// Len returns the number of entries
func (t *RankTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// VariantCache memoizes base species -> eligible alternate forms
type VariantCache struct {
	mu      sync.RWMutex
	entries map[models.Identity][]models.Identity
}

// NewVariantCache creates an empty cache
func NewVariantCache() *VariantCache {
	return &VariantCache{entries: make(map[models.Identity][]models.Identity)}
}

// Get returns a copy of the cached forms for base
func (c *VariantCache) Get(base models.Identity) ([]models.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	forms, ok := c.entries[base]
	if !ok {
		return nil, false
	}
	return append([]models.Identity(nil), forms...), true
}

// PutIfAbsent stores forms under base unless an entry exists, and returns the
// forms now held for base
func (c *VariantCache) PutIfAbsent(base models.Identity, forms []models.Identity) []models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[base]; ok {
		return append([]models.Identity(nil), existing...)
	}
	stored := append([]models.Identity(nil), forms...)
	sort.Slice(stored, func(i, j int) bool { return stored[i] < stored[j] })
	c.entries[base] = stored
	return append([]models.Identity(nil), stored...)
}

// Load merges a persisted snapshot into the cache. Entries already present
// win. Returns the number of entries added.
func (c *VariantCache) Load(snapshot map[string][]string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for k, forms := range snapshot {
		base := models.Identity(k)
		if _, ok := c.entries[base]; ok {
			continue
		}
		ids := make([]models.Identity, len(forms))
		for i, f := range forms {
			ids[i] = models.Identity(f)
		}
		c.entries[base] = ids
		added++
	}
	return added
}

// Snapshot returns a copy of the cache for persistence
func (c *VariantCache) Snapshot() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.entries))
	for k, forms := range c.entries {
		names := make([]string, len(forms))
		for i, f := range forms {
			names[i] = string(f)
		}
		out[string(k)] = names
	}
	return out
}

// Len returns the number of entries
func (c *VariantCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
