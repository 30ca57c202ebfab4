package matching

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// minTokenRunes drops single-character tokens, as the usual \w\w+ token pattern does.
const minTokenRunes = 2

// TextSimilarity returns the cosine similarity of the TF-IDF vectors of a and
// b, computed over the two-document corpus {a, b} with unigram and bigram
// terms. English stop words are removed before bigrams are formed. Inverse
// document frequency is smoothed: idf(t) = ln((1+n)/(1+df(t))) + 1.
//
// An empty document, or one made only of stop words, is a valid input and
// yields 0.
func TextSimilarity(a, b string) float64 {
	countsA := termCounts(a)
	countsB := termCounts(b)
	if len(countsA) == 0 || len(countsB) == 0 {
		return 0
	}

	const docs = 2
	idf := func(term string) float64 {
		df := 0
		if _, ok := countsA[term]; ok {
			df++
		}
		if _, ok := countsB[term]; ok {
			df++
		}
		return math.Log(float64(1+docs)/float64(1+df)) + 1
	}

	weightsA := weigh(countsA, idf)
	weightsB := weigh(countsB, idf)

	normA := l2Norm(weightsA)
	normB := l2Norm(weightsB)
	if normA == 0 || normB == 0 {
		return 0
	}

	var dot float64
	for _, term := range sortedTerms(weightsA) {
		if wb, ok := weightsB[term]; ok {
			dot += weightsA[term] * wb
		}
	}

	sim := dot / (normA * normB)
	return math.Max(0, math.Min(1, sim))
}

// termCounts tokenizes text and counts unigrams and bigrams.
func termCounts(text string) map[string]int {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}
	return counts
}

// tokenize lower-cases text and returns the non-stop-word runs of word
// characters that are at least two runes long.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenRunes || isStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func weigh(counts map[string]int, idf func(string) float64) map[string]float64 {
	weights := make(map[string]float64, len(counts))
	for term, n := range counts {
		weights[term] = float64(n) * idf(term)
	}
	return weights
}

// l2Norm sums in sorted term order so results do not depend on map iteration.
func l2Norm(weights map[string]float64) float64 {
	var sum float64
	for _, term := range sortedTerms(weights) {
		sum += weights[term] * weights[term]
	}
	return math.Sqrt(sum)
}

func sortedTerms(weights map[string]float64) []string {
	terms := make([]string, 0, len(weights))
	for term := range weights {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}
