// Package display turns identities into human-readable labels for the report.
package display

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// Formatter renders identities using the shared vocabulary
type Formatter struct {
	vocab *vocab.Vocabulary
}

// NewFormatter creates a formatter backed by v
func NewFormatter(v *vocab.Vocabulary) *Formatter {
	return &Formatter{vocab: v}
}

// Render returns the display label for id. Rules, first match wins:
//  1. exact override ("mr-mime" -> "Mr. Mime")
//  2. two-token proper names ("iron-bundle" -> "Iron Bundle")
//  3. hyphenated species names ("kommo-o-totem" -> "Kommo-o (Totem)")
//  4. "Base (Form Words)"
func (f *Formatter) Render(id models.Identity) string {
	if name, ok := f.vocab.DisplayOverride(id); ok {
		return name
	}

	s := string(id)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "-")

	if len(parts) >= 2 && f.vocab.IsMultiWordPrefix(parts[0]) {
		return withForm(capitalize(parts[0])+" "+capitalize(parts[1]), parts[2:])
	}

	if base, ok := f.vocab.HyphenatedBase(id); ok {
		rest := strings.TrimPrefix(strings.TrimPrefix(s, base), "-")
		var form []string
		if rest != "" {
			form = strings.Split(rest, "-")
		}
		return withForm(capitalize(base), form)
	}

	return withForm(capitalize(parts[0]), parts[1:])
}

// RenderAll renders ids in order
func (f *Formatter) RenderAll(ids []models.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = f.Render(id)
	}
	return out
}

func withForm(base string, form []string) string {
	words := make([]string, 0, len(form))
	for _, p := range form {
		if p == "" {
			continue
		}
		words = append(words, capitalize(p))
	}
	if len(words) == 0 {
		return base
	}
	return base + " (" + strings.Join(words, " ") + ")"
}

// capitalize upper-cases the first rune and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
