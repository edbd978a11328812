// Package family assembles evolution chains into ordered families: stage
// traversal, variant merge, eligibility filtering, sorting and flattening.
package family

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/ranking"
)

// Source is the data source the builder reads chains, ranks and varieties from
type Source interface {
	FetchAllChains(ctx context.Context) ([]models.ChainRef, error)
	FetchChainTree(ctx context.Context, ref models.ChainRef) (*models.EvolutionNode, error)
	ranking.RankSource
	ranking.VarietySource
}

// Failure records a chain that produced no family
type Failure struct {
	Chain models.ChainRef
	Err   error
}

// Result is the outcome of a full run
type Result struct {
	Families []*models.Family
	Failures []Failure
	Chains   int
	Duration time.Duration
}

// Members returns every identity of every family in report order
func (r *Result) Members() []models.Identity {
	var out []models.Identity
	for _, f := range r.Families {
		out = append(out, f.Members...)
	}
	return out
}

// Options tunes a Builder
type Options struct {
	// Limit processes only the first Limit chains when positive
	Limit int
	// OnFamily is called after each successfully assembled family
	OnFamily func(index, total int, f *models.Family)
}

// Builder runs every chain through the Assembler, one at a time
type Builder struct {
	source    Source
	assembler *Assembler
	logger    logrus.FieldLogger
	opts      Options
}

// NewBuilder creates a builder
func NewBuilder(source Source, assembler *Assembler, logger logrus.FieldLogger, opts Options) *Builder {
	return &Builder{
		source:    source,
		assembler: assembler,
		logger:    logger.WithField("component", "family_builder"),
		opts:      opts,
	}
}

// Build assembles every chain and returns the families ordered by head rank.
// A chain that fails is recorded in Result.Failures and the run continues.
// Failing to list the chains aborts. Cancelling ctx stops the run and returns
// the partial result together with the context error.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	refs, err := b.source.FetchAllChains(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeLookup, errors.SeverityCritical, "list evolution chains")
	}
	if b.opts.Limit > 0 && b.opts.Limit < len(refs) {
		refs = refs[:b.opts.Limit]
	}

	b.logger.WithField("chains", len(refs)).Info("Found evolution chains")

	result := &Result{Chains: len(refs)}
	for i, ref := range refs {
		log := b.logger.WithFields(logrus.Fields{
			"chain":    ref.ID,
			"progress": progress(i+1, len(refs)),
		})

		if err := ctx.Err(); err != nil {
			return b.interrupted(result, start, err)
		}

		fam, err := b.buildOne(ctx, ref)
		if ctxErr := ctx.Err(); ctxErr != nil {
			// lookups cut short leave the family incomplete
			return b.interrupted(result, start, ctxErr)
		}
		if err != nil {
			log.WithError(err).WithField("kind", errors.GetType(err).String()).Error("Chain skipped")
			result.Failures = append(result.Failures, Failure{Chain: ref, Err: err})
			continue
		}

		log.WithFields(logrus.Fields{
			"head_rank": fam.HeadRank,
			"members":   len(fam.Members),
		}).Debug("Assembled family")

		result.Families = append(result.Families, fam)
		if b.opts.OnFamily != nil {
			b.opts.OnFamily(i+1, len(refs), fam)
		}
	}

	Order(result.Families)
	result.Duration = time.Since(start)

	b.logger.WithFields(logrus.Fields{
		"families": len(result.Families),
		"failures": len(result.Failures),
		"duration": result.Duration.Round(time.Millisecond).String(),
	}).Info("Build complete")

	return result, nil
}

func (b *Builder) interrupted(result *Result, start time.Time, err error) (*Result, error) {
	Order(result.Families)
	result.Duration = time.Since(start)

	b.logger.WithFields(logrus.Fields{
		"families": len(result.Families),
		"pending":  result.Chains - len(result.Families) - len(result.Failures),
	}).Warn("Build interrupted")

	return result, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityCritical, "build interrupted")
}

func (b *Builder) buildOne(ctx context.Context, ref models.ChainRef) (*models.Family, error) {
	root, err := b.source.FetchChainTree(ctx, ref)
	if err != nil {
		return nil, err
	}
	return b.assembler.Assemble(ctx, ref, root)
}

func progress(i, total int) string {
	return fmt.Sprintf("%d/%d", i, total)
}
