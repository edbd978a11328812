// Package vocab holds the single naming vocabulary shared by normalization,
// eligibility filtering, sort priorities and display rendering. Keeping the
// tables in one place stops those consumers from drifting apart.
package vocab

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/models"
)

// Data is the serialisable form of a vocabulary
type Data struct {
	Version           string            `yaml:"version"`
	FormSuffixes      []string          `yaml:"form_suffixes"`
	Exclusions        []string          `yaml:"exclusions"`
	RegionPriority    map[string]int    `yaml:"region_priority"`
	UnknownPriority   int               `yaml:"unknown_priority"`
	LineageRegions    map[string]string `yaml:"lineage_regions"`
	DisplayOverrides  map[string]string `yaml:"display_overrides"`
	MultiWordPrefixes []string          `yaml:"multi_word_prefixes"`
	HyphenatedBases   []string          `yaml:"hyphenated_bases"`
}

// Vocabulary is a validated, read-only view over Data
type Vocabulary struct {
	data Data

	// suffixes used by Normalize: form suffixes followed by exclusions
	suffixes        []string
	prefixes        map[string]bool
	hyphenatedBases []string // longest first
}

// New validates d and builds a Vocabulary from it
func New(d Data) (*Vocabulary, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	v := &Vocabulary{
		data:     d,
		prefixes: make(map[string]bool, len(d.MultiWordPrefixes)),
	}
	v.suffixes = append(append([]string(nil), d.FormSuffixes...), d.Exclusions...)
	for _, p := range d.MultiWordPrefixes {
		v.prefixes[p] = true
	}
	v.hyphenatedBases = append([]string(nil), d.HyphenatedBases...)
	sort.SliceStable(v.hyphenatedBases, func(i, j int) bool {
		return len(v.hyphenatedBases[i]) > len(v.hyphenatedBases[j])
	})
	return v, nil
}

// Default returns the built-in vocabulary
func Default() *Vocabulary {
	v, err := New(DefaultData())
	if err != nil {
		panic("vocab: built-in vocabulary is invalid: " + err.Error())
	}
	return v
}

// Load reads a YAML vocabulary file. Any table present in the file replaces
// the corresponding built-in table; absent tables keep their defaults.
func Load(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "read vocabulary %s", path)
	}

	var override Data
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return nil, errors.ValidationErrorf("parse vocabulary %s: %v", path, err)
	}

	d := DefaultData()
	if override.Version != "" {
		d.Version = override.Version
	}
	if len(override.FormSuffixes) > 0 {
		d.FormSuffixes = override.FormSuffixes
	}
	if len(override.Exclusions) > 0 {
		d.Exclusions = override.Exclusions
	}
	if len(override.RegionPriority) > 0 {
		d.RegionPriority = override.RegionPriority
	}
	if override.UnknownPriority != 0 {
		d.UnknownPriority = override.UnknownPriority
	}
	if len(override.LineageRegions) > 0 {
		d.LineageRegions = override.LineageRegions
	}
	if len(override.DisplayOverrides) > 0 {
		d.DisplayOverrides = override.DisplayOverrides
	}
	if len(override.MultiWordPrefixes) > 0 {
		d.MultiWordPrefixes = override.MultiWordPrefixes
	}
	if len(override.HyphenatedBases) > 0 {
		d.HyphenatedBases = override.HyphenatedBases
	}

	return New(d)
}

// Validate checks the tables for entries that would make matching ambiguous
func (d Data) Validate() error {
	if d.Version == "" {
		return errors.ValidationErrorf("vocabulary version is empty")
	}
	for _, s := range d.FormSuffixes {
		if strings.TrimSpace(s) == "" {
			return errors.ValidationErrorf("vocabulary %s: empty form suffix", d.Version)
		}
	}
	for _, s := range d.Exclusions {
		if strings.TrimSpace(s) == "" {
			return errors.ValidationErrorf("vocabulary %s: empty exclusion pattern", d.Version)
		}
	}
	maxPriority := 0
	for region, p := range d.RegionPriority {
		if p < 0 {
			return errors.ValidationErrorf("vocabulary %s: negative priority %d for %q", d.Version, p, region)
		}
		if p > maxPriority {
			maxPriority = p
		}
	}
	if d.UnknownPriority <= maxPriority {
		return errors.ValidationErrorf("vocabulary %s: unknown priority %d must exceed every region priority (max %d)",
			d.Version, d.UnknownPriority, maxPriority)
	}
	for species, region := range d.LineageRegions {
		if _, ok := d.RegionPriority[region]; !ok {
			return errors.ValidationErrorf("vocabulary %s: lineage override %q names unknown region %q", d.Version, species, region)
		}
	}
	return nil
}

// Data returns a copy of the underlying tables
func (v *Vocabulary) Data() Data {
	d := v.data
	d.FormSuffixes = append([]string(nil), v.data.FormSuffixes...)
	d.Exclusions = append([]string(nil), v.data.Exclusions...)
	d.RegionPriority = copyIntMap(v.data.RegionPriority)
	d.LineageRegions = copyStringMap(v.data.LineageRegions)
	d.DisplayOverrides = copyStringMap(v.data.DisplayOverrides)
	d.MultiWordPrefixes = append([]string(nil), v.data.MultiWordPrefixes...)
	d.HyphenatedBases = append([]string(nil), v.data.HyphenatedBases...)
	return d
}

// Version returns the vocabulary version string
func (v *Vocabulary) Version() string {
	return v.data.Version
}

// Normalize strips registered form suffixes and returns the base species
// identity. A suffix only matches as a whole token: it must be followed by the
// end of the identity or by another hyphen, and it cannot start the identity.
// Stripping repeats until nothing matches, so Normalize is idempotent.
func (v *Vocabulary) Normalize(id models.Identity) models.Identity {
	s := string(id)
	for {
		cut := v.firstSuffix(s)
		if cut < 0 {
			return models.Identity(s)
		}
		s = s[:cut]
	}
}

// firstSuffix returns the start of the earliest whole-token suffix match, or -1
func (v *Vocabulary) firstSuffix(s string) int {
	best := -1
	for _, suffix := range v.suffixes {
		from := 1
		for from < len(s) {
			i := strings.Index(s[from:], suffix)
			if i < 0 {
				break
			}
			i += from
			end := i + len(suffix)
			if end == len(s) || s[end] == '-' {
				if best < 0 || i < best {
					best = i
				}
				break
			}
			from = i + 1
		}
	}
	return best
}

// IsEligible reports whether id may appear in the output. An identity is
// excluded when any exclusion pattern occurs anywhere inside it.
func (v *Vocabulary) IsEligible(id models.Identity) bool {
	s := string(id)
	for _, pattern := range v.data.Exclusions {
		if strings.Contains(s, pattern) {
			return false
		}
	}
	return true
}

// SplitBase splits id into the species name and the form qualifier. Species
// with hyphenated names and multi-word names keep their hyphen.
//
//	"mr-mime-galar"    -> "mr-mime", "galar"
//	"iron-bundle"      -> "iron-bundle", ""
//	"rotom-heat"       -> "rotom", "heat"
func (v *Vocabulary) SplitBase(id models.Identity) (base, qualifier string) {
	s := string(id)

	for _, hb := range v.hyphenatedBases {
		if s == hb {
			return s, ""
		}
		if strings.HasPrefix(s, hb+"-") {
			return hb, s[len(hb)+1:]
		}
	}

	parts := strings.SplitN(s, "-", 3)
	if len(parts) >= 2 && v.prefixes[parts[0]] {
		base = parts[0] + "-" + parts[1]
		if len(parts) == 3 {
			qualifier = parts[2]
		}
		return base, qualifier
	}

	if len(parts) == 1 {
		return s, ""
	}
	i := strings.IndexByte(s, '-')
	return s[:i], s[i+1:]
}

// RegionPriority returns the sort priority of id's region or form. Lineage
// overrides win; otherwise the qualifier is looked up whole, then by its first
// hyphen segment, falling back to the unknown priority.
func (v *Vocabulary) RegionPriority(id models.Identity) int {
	if region, ok := v.data.LineageRegions[string(id)]; ok {
		return v.priorityOf(region)
	}
	_, qualifier := v.SplitBase(id)
	return v.priorityOf(qualifier)
}

func (v *Vocabulary) priorityOf(qualifier string) int {
	if p, ok := v.data.RegionPriority[qualifier]; ok {
		return p
	}
	if i := strings.IndexByte(qualifier, '-'); i > 0 {
		if p, ok := v.data.RegionPriority[qualifier[:i]]; ok {
			return p
		}
	}
	return v.data.UnknownPriority
}

// DisplayOverride returns the exact display name registered for id, if any
func (v *Vocabulary) DisplayOverride(id models.Identity) (string, bool) {
	name, ok := v.data.DisplayOverrides[string(id)]
	return name, ok
}

// IsMultiWordPrefix reports whether token starts a two-token species name
func (v *Vocabulary) IsMultiWordPrefix(token string) bool {
	return v.prefixes[token]
}

// HyphenatedBase returns the registered hyphenated species name id starts
// with, if any
func (v *Vocabulary) HyphenatedBase(id models.Identity) (string, bool) {
	s := string(id)
	for _, hb := range v.hyphenatedBases {
		if s == hb || strings.HasPrefix(s, hb+"-") {
			return hb, true
		}
	}
	return "", false
}
