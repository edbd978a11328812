package family

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/ranking"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// memorySource serves chains, ranks and varieties from maps
type memorySource struct {
	refs      []models.ChainRef
	trees     map[int]*models.EvolutionNode
	treeErrs  map[int]error
	ranks     map[models.Identity]int
	varieties map[models.Identity][]models.Variety
	listErr   error
	// onRank runs before each rank lookup
	onRank func(id models.Identity)
}

func newMemorySource() *memorySource {
	return &memorySource{
		trees:     map[int]*models.EvolutionNode{},
		treeErrs:  map[int]error{},
		ranks:     map[models.Identity]int{},
		varieties: map[models.Identity][]models.Variety{},
	}
}

func (m *memorySource) addChain(id int, root *models.EvolutionNode) {
	m.refs = append(m.refs, models.ChainRef{ID: id, URL: fmt.Sprintf("mem://chain/%d/", id)})
	m.trees[id] = root
}

func (m *memorySource) addForms(species models.Identity, forms ...models.Identity) {
	m.varieties[species] = append(m.varieties[species], models.Variety{Name: species, IsDefault: true})
	for _, f := range forms {
		m.varieties[species] = append(m.varieties[species], models.Variety{Name: f})
	}
}

func (m *memorySource) FetchAllChains(ctx context.Context) ([]models.ChainRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.refs, nil
}

func (m *memorySource) FetchChainTree(ctx context.Context, ref models.ChainRef) (*models.EvolutionNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.treeErrs[ref.ID]; err != nil {
		return nil, err
	}
	return m.trees[ref.ID], nil
}

func (m *memorySource) FetchRank(ctx context.Context, id models.Identity) (int, error) {
	if m.onRank != nil {
		m.onRank(id)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rank, ok := m.ranks[id]
	if !ok {
		return 0, stderrors.New("species not found")
	}
	return rank, nil
}

func (m *memorySource) FetchVarieties(ctx context.Context, species models.Identity) ([]models.Variety, error) {
	return m.varieties[species], nil
}

func node(species models.Identity, children ...*models.EvolutionNode) *models.EvolutionNode {
	return &models.EvolutionNode{Species: species, EvolvesTo: children}
}

type engine struct {
	source    *memorySource
	ranks     *ranking.RankTable
	resolver  *ranking.Resolver
	assembler *Assembler
	logger    *logrus.Logger
	hook      *logtest.Hook
}

func newEngine(src *memorySource) *engine {
	logger, hook := logtest.NewNullLogger()
	v := vocab.Default()
	ranks := ranking.NewRankTable()
	resolver := ranking.NewResolver(ranks, v, src, logger)
	merger := ranking.NewMerger(ranking.NewVariantCache(), v, src, logger)
	return &engine{
		source:    src,
		ranks:     ranks,
		resolver:  resolver,
		assembler: NewAssembler(v, merger, resolver),
		logger:    logger,
		hook:      hook,
	}
}

func TestTraverse_StagesByDepth(t *testing.T) {
	root := node("eevee",
		node("vaporeon"), node("jolteon"), node("flareon"), node("espeon"),
	)
	stages := Traverse(root)

	require.Len(t, stages, 2)
	assert.Equal(t, []models.Identity{"eevee"}, stages[0].Members.Slice())
	assert.Equal(t, []models.Identity{"espeon", "flareon", "jolteon", "vaporeon"}, stages[1].Members.Slice())
}

func TestTraverse_StageMonotonicity(t *testing.T) {
	root := node("wurmple",
		node("silcoon", node("beautifly")),
		node("cascoon", node("dustox")),
	)
	stages := Traverse(root)

	parents := map[models.Identity]models.Identity{}
	var walk func(n *models.EvolutionNode)
	walk = func(n *models.EvolutionNode) {
		for _, c := range n.EvolvesTo {
			parents[c.Species] = n.Species
			walk(c)
		}
	}
	walk(root)

	require.Len(t, stages, 3)
	assert.Equal(t, []models.Identity{"wurmple"}, stages[0].Members.Slice())
	for k := 1; k < len(stages); k++ {
		assert.Equal(t, k, stages[k].Index)
		for id := range stages[k].Members {
			assert.True(t, stages[k-1].Members.Has(parents[id]), "%s at stage %d has no parent at stage %d", id, k, k-1)
		}
	}
}

func TestTraverse_NilRoot(t *testing.T) {
	assert.Nil(t, Traverse(nil))
}

func TestAssemble_ExcludedVariantDropped(t *testing.T) {
	src := newMemorySource()
	src.ranks["eevee"] = 133
	src.addForms("eevee", "eevee-starter")
	e := newEngine(src)

	fam, err := e.assembler.Assemble(context.Background(), models.ChainRef{ID: 67}, node("eevee"))
	require.NoError(t, err)
	assert.Equal(t, []models.Identity{"eevee"}, fam.Members)
	assert.Equal(t, 133, fam.HeadRank)
}

func TestAssemble_RegionalFormsFollowBaseWithinStage(t *testing.T) {
	src := newMemorySource()
	src.ranks["meowth"] = 52
	src.ranks["persian"] = 53
	src.ranks["perrserker"] = 863
	src.addForms("meowth", "meowth-alola", "meowth-galar", "meowth-gmax")
	src.addForms("persian", "persian-alola")
	e := newEngine(src)

	fam, err := e.assembler.Assemble(context.Background(), models.ChainRef{ID: 22},
		node("meowth", node("persian"), node("perrserker")))
	require.NoError(t, err)

	want := []models.Identity{
		"meowth", "meowth-alola", "meowth-galar",
		"persian", "persian-alola", "perrserker",
	}
	if diff := cmp.Diff(want, fam.Members); diff != "" {
		t.Errorf("family mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 52, fam.HeadRank)
}

func TestAssemble_TotemAfterRegional(t *testing.T) {
	src := newMemorySource()
	src.ranks["rattata"] = 19
	src.ranks["raticate"] = 20
	src.addForms("rattata", "rattata-alola")
	src.addForms("raticate", "raticate-alola", "raticate-totem-alola")
	e := newEngine(src)

	fam, err := e.assembler.Assemble(context.Background(), models.ChainRef{ID: 8},
		node("rattata", node("raticate")))
	require.NoError(t, err)

	want := []models.Identity{"rattata", "rattata-alola", "raticate", "raticate-alola", "raticate-totem-alola"}
	if diff := cmp.Diff(want, fam.Members); diff != "" {
		t.Errorf("family mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_EmptyFamily(t *testing.T) {
	src := newMemorySource()
	e := newEngine(src)

	_, err := e.assembler.Assemble(context.Background(), models.ChainRef{ID: 999}, node("pikachu-starter"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyFamily)
}

func TestAssemble_Malformed(t *testing.T) {
	e := newEngine(newMemorySource())

	_, err := e.assembler.Assemble(context.Background(), models.ChainRef{ID: 1}, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedChain)

	_, err = e.assembler.Assemble(context.Background(), models.ChainRef{ID: 2}, node("bulbasaur", node("")))
	assert.ErrorIs(t, err, errors.ErrMalformedChain)
}

func TestSortKey_TotalOrder(t *testing.T) {
	src := newMemorySource()
	src.ranks["rotom"] = 479
	e := newEngine(src)
	keyer := NewKeyer(vocab.Default(), e.resolver)

	ids := []models.Identity{"rotom", "rotom-heat", "rotom-wash", "rotom-frost", "rotom-fan", "rotom-mow", "missingno"}
	ctx := context.Background()
	for _, a := range ids {
		for _, b := range ids {
			ka, kb := keyer.SortKey(ctx, a), keyer.SortKey(ctx, b)
			if a == b {
				assert.False(t, ka.Less(kb))
				continue
			}
			assert.True(t, ka.Less(kb) != kb.Less(ka), "%s and %s must be strictly ordered", a, b)
		}
	}
}

func TestOrder_StableOnTies(t *testing.T) {
	families := []*models.Family{
		{HeadRank: ranking.Unranked, Members: []models.Identity{"missingno"}},
		{HeadRank: 25, Members: []models.Identity{"pichu"}},
		{HeadRank: 1, Members: []models.Identity{"bulbasaur"}},
		{HeadRank: 25, Members: []models.Identity{"pikachu-clone"}},
	}
	Order(families)

	var heads []models.Identity
	for _, f := range families {
		heads = append(heads, f.Members[0])
	}
	assert.Equal(t, []models.Identity{"bulbasaur", "pichu", "pikachu-clone", "missingno"}, heads)
}

func TestBuilder_IsolatesFailuresAndOrdersFamilies(t *testing.T) {
	src := newMemorySource()
	src.ranks["squirtle"] = 7
	src.ranks["wartortle"] = 8
	src.ranks["bulbasaur"] = 1
	src.addChain(3, node("squirtle", node("wartortle")))
	src.addChain(99, node("missingno"))
	src.addChain(4, nil)
	src.addChain(1, node("bulbasaur"))
	src.addChain(5, node("eevee"))
	src.treeErrs[5] = errors.MalformedChainf("chain 5 missing species")
	e := newEngine(src)

	var seen []int
	b := NewBuilder(src, e.assembler, e.logger, Options{
		OnFamily: func(i, total int, f *models.Family) {
			assert.Equal(t, 5, total)
			seen = append(seen, f.Chain.ID)
		},
	})

	result, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Chains)
	assert.Equal(t, []int{3, 99, 1}, seen)

	var order []int
	for _, f := range result.Families {
		order = append(order, f.Chain.ID)
	}
	assert.Equal(t, []int{1, 3, 99}, order, "unranked family sorts last")
	assert.Equal(t, []models.Identity{"bulbasaur", "squirtle", "wartortle", "missingno"}, result.Members())

	require.Len(t, result.Failures, 2)
	assert.Equal(t, 4, result.Failures[0].Chain.ID)
	assert.ErrorIs(t, result.Failures[0].Err, errors.ErrMalformedChain)
	assert.Equal(t, 5, result.Failures[1].Chain.ID)
}

func TestBuilder_Limit(t *testing.T) {
	src := newMemorySource()
	src.ranks["bulbasaur"] = 1
	src.ranks["charmander"] = 4
	src.addChain(1, node("bulbasaur"))
	src.addChain(2, node("charmander"))
	e := newEngine(src)

	result, err := NewBuilder(src, e.assembler, e.logger, Options{Limit: 1}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Chains)
	assert.Len(t, result.Families, 1)
}

func TestBuilder_ListFailureAborts(t *testing.T) {
	src := newMemorySource()
	src.listErr = stderrors.New("connection refused")
	e := newEngine(src)

	_, err := NewBuilder(src, e.assembler, e.logger, Options{}).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestBuilder_CancelStopsRun(t *testing.T) {
	tests := []struct {
		name string
		// cancelOn cancels from inside the rank lookup of this identity;
		// empty cancels from OnFamily after the first family
		cancelOn models.Identity
	}{
		{name: "between chains"},
		{name: "mid chain", cancelOn: "charmeleon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newMemorySource()
			src.ranks["bulbasaur"] = 1
			src.ranks["charmander"] = 4
			src.ranks["charmeleon"] = 5
			src.ranks["squirtle"] = 7
			src.addChain(1, node("bulbasaur"))
			src.addChain(2, node("charmander", node("charmeleon")))
			src.addChain(3, node("squirtle"))
			e := newEngine(src)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			opts := Options{}
			if tt.cancelOn == "" {
				opts.OnFamily = func(i, total int, f *models.Family) { cancel() }
			} else {
				src.onRank = func(id models.Identity) {
					if id == tt.cancelOn {
						cancel()
					}
				}
			}

			result, err := NewBuilder(src, e.assembler, e.logger, opts).Build(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			require.NotNil(t, result)

			require.Len(t, result.Families, 1)
			assert.Equal(t, 1, result.Families[0].Chain.ID)
			assert.Empty(t, result.Failures, "pending chains are not reported as failures")

			_, cached := e.ranks.Get(tt.cancelOn)
			assert.False(t, cached, "cancelled lookup is not memoized")
			_, cached = e.ranks.Get("squirtle")
			assert.False(t, cached)
		})
	}
}
