package matching

import (
	"slices"
	"strings"
)

// SkillSet is a sorted, duplicate-free list of canonical skill names.
type SkillSet []string

// NewSkillSet sorts and deduplicates names. The result is never nil.
func NewSkillSet(names ...string) SkillSet {
	set := make(SkillSet, 0, len(names))
	set = append(set, names...)
	slices.Sort(set)
	return slices.Compact(set)
}

func (s SkillSet) Contains(name string) bool {
	_, found := slices.BinarySearch(s, name)
	return found
}

// Intersect returns the skills present in both sets.
func (s SkillSet) Intersect(other SkillSet) SkillSet {
	out := SkillSet{}
	for _, name := range s {
		if other.Contains(name) {
			out = append(out, name)
		}
	}
	return out
}

// Difference returns the skills in s that other lacks.
func (s SkillSet) Difference(other SkillSet) SkillSet {
	out := SkillSet{}
	for _, name := range s {
		if !other.Contains(name) {
			out = append(out, name)
		}
	}
	return out
}

// ExtractSkills finds every lexicon phrase in text and returns the canonical
// names. Matching is whole-phrase on normalized text after alias rewriting, so
// "sql" is also found inside "sql server". It never fails; text without any
// lexicon phrase yields an empty set.
func (v *Vocabulary) ExtractSkills(text string) SkillSet {
	padded := v.resolveAliases(pad(Normalize(text)))

	hits := make([]string, 0, 8)
	for _, s := range v.skillEntries {
		if strings.Contains(padded, s.padded) {
			hits = append(hits, s.canonical)
		}
	}
	return NewSkillSet(hits...)
}
