package family

import (
	"context"
	"sort"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// VariantExpander returns the eligible alternate forms of a base species
type VariantExpander interface {
	VariantsOf(ctx context.Context, base models.Identity) models.IdentitySet
}

// Assembler turns one evolution tree into an ordered Family
type Assembler struct {
	vocab    *vocab.Vocabulary
	variants VariantExpander
	ranker   Ranker
	keyer    *Keyer
}

// NewAssembler creates an assembler
func NewAssembler(v *vocab.Vocabulary, variants VariantExpander, ranker Ranker) *Assembler {
	return &Assembler{
		vocab:    v,
		variants: variants,
		ranker:   ranker,
		keyer:    NewKeyer(v, ranker),
	}
}

// Assemble builds the family for the chain rooted at root: stages are
// expanded with alternate forms, filtered, sorted and flattened in stage
// order. Returns a MalformedChain error for a missing or unnamed node and an
// EmptyFamily error when nothing survives filtering.
func (a *Assembler) Assemble(ctx context.Context, ref models.ChainRef, root *models.EvolutionNode) (*models.Family, error) {
	if root == nil {
		return nil, errors.MalformedChainf("chain %d has no root", ref.ID).WithContext("url", ref.URL)
	}

	stages := Traverse(root)
	var members []models.Identity
	for _, stage := range stages {
		if stage.Members.Has("") {
			return nil, errors.MalformedChainf("chain %d has an unnamed species at stage %d", ref.ID, stage.Index).
				WithContext("url", ref.URL)
		}

		merged := models.NewIdentitySet()
		for _, id := range stage.Members.Slice() {
			merged.Add(id)
			merged.Union(a.variants.VariantsOf(ctx, id))
		}

		forms := make([]models.Identity, 0, merged.Len())
		for _, id := range merged.Slice() {
			if a.vocab.IsEligible(id) {
				forms = append(forms, id)
			}
		}
		a.keyer.Sort(ctx, forms)
		members = append(members, forms...)
	}

	if len(members) == 0 {
		return nil, errors.EmptyFamilyError(ref.ID, string(root.Species))
	}

	return &models.Family{
		Chain:    ref,
		HeadRank: a.ranker.Rank(ctx, members[0]),
		Members:  members,
	}, nil
}

// Order sorts families ascending by head rank. Ties keep their input order.
func Order(families []*models.Family) {
	sort.SliceStable(families, func(i, j int) bool {
		return families[i].HeadRank < families[j].HeadRank
	})
}
