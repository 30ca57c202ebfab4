package matching

import "strings"

// KeywordOverlap returns the share of vocabulary keywords that appear as whole
// phrases in both normalized texts. The denominator is the full keyword list,
// not the keywords present in either text. An empty keyword list yields 0.
func (v *Vocabulary) KeywordOverlap(cvText, jdText string) float64 {
	if len(v.paddedKeywords) == 0 {
		return 0
	}

	cv := pad(Normalize(cvText))
	jd := pad(Normalize(jdText))

	hits := 0
	for _, kw := range v.paddedKeywords {
		if strings.Contains(cv, kw) && strings.Contains(jd, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(v.paddedKeywords))
}

// SharedKeywords lists the keywords counted as hits by KeywordOverlap, in
// vocabulary order.
func (v *Vocabulary) SharedKeywords(cvText, jdText string) []string {
	cv := pad(Normalize(cvText))
	jd := pad(Normalize(jdText))

	shared := []string{}
	for i, kw := range v.paddedKeywords {
		if strings.Contains(cv, kw) && strings.Contains(jd, kw) {
			shared = append(shared, v.keywords[i])
		}
	}
	return shared
}
