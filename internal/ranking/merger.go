package ranking

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// VarietySource lists every known form variety of a species
type VarietySource interface {
	FetchVarieties(ctx context.Context, species models.Identity) ([]models.Variety, error)
}

// Merger expands a base species into its eligible alternate forms
type Merger struct {
	cache  *VariantCache
	vocab  *vocab.Vocabulary
	source VarietySource
	logger logrus.FieldLogger
}

// NewMerger creates a merger over cache
func NewMerger(cache *VariantCache, v *vocab.Vocabulary, source VarietySource, logger logrus.FieldLogger) *Merger {
	return &Merger{
		cache:  cache,
		vocab:  v,
		source: source,
		logger: logger.WithField("component", "variant_merger"),
	}
}

// VariantsOf returns the non-default, eligible forms of base. A failed lookup
// yields an empty set and is not cached, so the next run asks again.
func (m *Merger) VariantsOf(ctx context.Context, base models.Identity) models.IdentitySet {
	if forms, ok := m.cache.Get(base); ok {
		return models.NewIdentitySet(forms...)
	}

	varieties, err := m.source.FetchVarieties(ctx, base)
	if err != nil {
		if cancelled(ctx, err) {
			return models.NewIdentitySet()
		}
		m.logger.WithError(errors.LookupError(err, string(base))).
			WithField("species", base).
			Warn("Variety lookup failed, continuing without alternate forms")
		return models.NewIdentitySet()
	}

	set := models.NewIdentitySet()
	for _, variety := range varieties {
		if variety.IsDefault || !m.vocab.IsEligible(variety.Name) {
			continue
		}
		set.Add(variety.Name)
	}

	return models.NewIdentitySet(m.cache.PutIfAbsent(base, set.Slice())...)
}
