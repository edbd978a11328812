package pokeapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
)

// FetchAllChains lists every evolution chain
func (c *Client) FetchAllChains(ctx context.Context) ([]models.ChainRef, error) {
	body, err := c.get(ctx, c.baseURL+"evolution-chain/?limit=9999")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.ValidationErrorf("evolution chain listing is not valid JSON")
	}

	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return nil, errors.ValidationErrorf("evolution chain listing has no results array")
	}

	var refs []models.ChainRef
	for i, r := range results.Array() {
		u := r.Get("url").String()
		if u == "" {
			continue
		}
		id, ok := chainID(u)
		if !ok {
			id = i + 1
		}
		refs = append(refs, models.ChainRef{ID: id, URL: u})
	}
	return refs, nil
}

// FetchChainTree fetches and parses one evolution chain
func (c *Client) FetchChainTree(ctx context.Context, ref models.ChainRef) (*models.EvolutionNode, error) {
	body, err := c.get(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	return parseChain(body, ref)
}

// FetchRank returns the National Dex number of a species
func (c *Client) FetchRank(ctx context.Context, id models.Identity) (int, error) {
	body, err := c.speciesPayload(ctx, string(id))
	if err != nil {
		return 0, err
	}
	entry := gjson.GetBytes(body, `pokedex_numbers.#(pokedex.name=="national").entry_number`)
	if !entry.Exists() {
		return 0, fmt.Errorf("national dex entry for %q: %w", id, ErrNotFound)
	}
	return int(entry.Int()), nil
}

// FetchVarieties returns every form variety of a species
func (c *Client) FetchVarieties(ctx context.Context, species models.Identity) ([]models.Variety, error) {
	body, err := c.speciesPayload(ctx, string(species))
	if err != nil {
		return nil, err
	}
	varieties := gjson.GetBytes(body, "varieties")
	if !varieties.IsArray() {
		return nil, errors.ValidationErrorf("species %q payload has no varieties", species)
	}

	out := make([]models.Variety, 0, len(varieties.Array()))
	for _, v := range varieties.Array() {
		name := v.Get("pokemon.name").String()
		if name == "" {
			continue
		}
		out = append(out, models.Variety{
			Name:      models.Identity(name),
			IsDefault: v.Get("is_default").Bool(),
		})
	}
	return out, nil
}

// parseChain builds the evolution tree of a chain payload. Nodes without a
// species name make the whole chain malformed; a missing evolves_to is a leaf.
func parseChain(body []byte, ref models.ChainRef) (*models.EvolutionNode, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.MalformedChainf("chain %d is not valid JSON", ref.ID).WithContext("url", ref.URL)
	}
	chain := gjson.GetBytes(body, "chain")
	if !chain.IsObject() {
		return nil, errors.MalformedChainf("chain %d has no chain object", ref.ID).WithContext("url", ref.URL)
	}

	type pending struct {
		raw  gjson.Result
		node *models.EvolutionNode
	}

	root := &models.EvolutionNode{}
	stack := []pending{{raw: chain, node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		name := top.raw.Get("species.name").String()
		if name == "" {
			return nil, errors.MalformedChainf("chain %d has a node without species name", ref.ID).WithContext("url", ref.URL)
		}
		top.node.Species = models.Identity(name)

		evolves := top.raw.Get("evolves_to")
		if !evolves.Exists() {
			continue
		}
		if !evolves.IsArray() {
			return nil, errors.MalformedChainf("chain %d: evolves_to of %q is not a list", ref.ID, name).WithContext("url", ref.URL)
		}
		for _, child := range evolves.Array() {
			n := &models.EvolutionNode{}
			top.node.EvolvesTo = append(top.node.EvolvesTo, n)
			stack = append(stack, pending{raw: child, node: n})
		}
	}
	return root, nil
}

// chainID extracts the numeric id from ".../evolution-chain/67/"
func chainID(u string) (int, bool) {
	trimmed := strings.TrimRight(u, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(trimmed[i+1:])
	if err != nil {
		return 0, false
	}
	return id, true
}
