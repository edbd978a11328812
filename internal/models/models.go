package models

import (
	"sort"
)

// Identity names a species or one specific form of a species, e.g.
// "raticate" or "raticate-alola". Identities compare by exact string equality.
type Identity string

// String returns the identity as a plain string
func (i Identity) String() string {
	return string(i)
}

// EvolutionNode is one species in an evolution tree together with its
// direct evolutions. Nodes are built once by the data source and never mutated.
type EvolutionNode struct {
	Species   Identity         `json:"species"`
	EvolvesTo []*EvolutionNode `json:"evolves_to,omitempty"`
}

// ChainRef is an opaque reference to one evolution chain at the data source
type ChainRef struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Variety is one form variety of a species as reported by the data source
type Variety struct {
	Name      Identity `json:"name"`
	IsDefault bool     `json:"is_default"`
}

// IdentitySet is an unordered set of identities
type IdentitySet map[Identity]struct{}

// NewIdentitySet returns a set containing ids
func NewIdentitySet(ids ...Identity) IdentitySet {
	s := make(IdentitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set
func (s IdentitySet) Add(id Identity) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set
func (s IdentitySet) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members
func (s IdentitySet) Len() int {
	return len(s)
}

// Union adds every member of other to s
func (s IdentitySet) Union(other IdentitySet) {
	for id := range other {
		s.Add(id)
	}
}

// Slice returns the members in lexical order
func (s IdentitySet) Slice() []Identity {
	out := make([]Identity, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stage is one depth level of an evolution chain
type Stage struct {
	Index   int
	Members IdentitySet
}

// Family is the ordered member list of one evolution chain
type Family struct {
	Chain    ChainRef   `json:"chain"`
	HeadRank int        `json:"head_rank"`
	Members  []Identity `json:"members"`
}
