package matching

import (
	"fmt"
	"strings"

	"careerpath/internal/errors"
)

// Alias rewrites a spelling variant to its canonical skill name.
type Alias struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type aliasEntry struct {
	from      string // normalized variant
	to        string // canonical name as declared
	paddedIn  string
	paddedOut string
}

type skillEntry struct {
	padded    string
	canonical string
}

// Vocabulary is the immutable set of skill phrases, keywords and aliases the
// matcher scans for. Build it once and share it; it is safe for concurrent use.
type Vocabulary struct {
	skills   []string
	keywords []string
	aliases  []Alias

	skillEntries   []skillEntry
	paddedKeywords []string
	aliasEntries   []aliasEntry
}

// NewVocabulary validates and precomputes a vocabulary. Alias order is
// significant: replacements run in declaration order and lookups return the
// first matching variant. Every phrase must survive normalization non-empty.
func NewVocabulary(skills, keywords []string, aliases []Alias) (*Vocabulary, error) {
	v := &Vocabulary{
		skills:   append([]string(nil), skills...),
		keywords: append([]string(nil), keywords...),
		aliases:  append([]Alias(nil), aliases...),
	}

	for i, a := range aliases {
		from, to := Normalize(a.From), Normalize(a.To)
		if from == "" || to == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary,
				fmt.Sprintf("alias %d (%q -> %q) is empty after normalization", i, a.From, a.To), nil)
		}
		v.aliasEntries = append(v.aliasEntries, aliasEntry{
			from:      from,
			to:        a.To,
			paddedIn:  pad(from),
			paddedOut: pad(to),
		})
	}

	for i, s := range skills {
		norm := Normalize(s)
		if norm == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary,
				fmt.Sprintf("skill %d (%q) is empty after normalization", i, s), nil)
		}
		v.skillEntries = append(v.skillEntries, skillEntry{
			padded:    pad(norm),
			canonical: v.Canonical(norm),
		})
	}

	for i, k := range keywords {
		norm := Normalize(k)
		if norm == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary,
				fmt.Sprintf("keyword %d (%q) is empty after normalization", i, k), nil)
		}
		v.paddedKeywords = append(v.paddedKeywords, pad(norm))
	}

	return v, nil
}

// Canonical returns the canonical name for a normalized phrase, or the phrase
// itself when no alias names it. Resolution is a single hop.
func (v *Vocabulary) Canonical(phrase string) string {
	for _, a := range v.aliasEntries {
		if a.from == phrase {
			return a.to
		}
	}
	return phrase
}

func (v *Vocabulary) Skills() []string   { return append([]string(nil), v.skills...) }
func (v *Vocabulary) Keywords() []string { return append([]string(nil), v.keywords...) }
func (v *Vocabulary) Aliases() []Alias   { return append([]Alias(nil), v.aliases...) }

// resolveAliases rewrites every alias variant in padded normalized text.
func (v *Vocabulary) resolveAliases(padded string) string {
	for _, a := range v.aliasEntries {
		padded = strings.ReplaceAll(padded, a.paddedIn, a.paddedOut)
	}
	return padded
}
