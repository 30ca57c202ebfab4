package matching

import "math"

// Signal weights of the combined score. They sum to 1.
const (
	WeightSkillCoverage  = 0.50
	WeightTextSimilarity = 0.30
	WeightKeywordOverlap = 0.20
)

// ScoreBreakdown holds each signal as an integer percentage, rounded on its
// own. The parts need not add up to the combined score.
type ScoreBreakdown struct {
	SkillCoverage  int `json:"skillCoverage"`
	TextSimilarity int `json:"textSimilarity"`
	KeywordOverlap int `json:"keywordOverlap"`
}

// MatchResult is the outcome of scoring one CV against one job description.
type MatchResult struct {
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Strengths SkillSet       `json:"strengths"`
	Gaps      SkillSet       `json:"gaps"`
}

// SkillCoverage is the share of JD skills the CV also has. A JD without
// recognized skills asks for nothing, so any CV covers it fully.
func SkillCoverage(cvSkills, jdSkills SkillSet) float64 {
	if len(jdSkills) == 0 {
		return 1
	}
	shared := len(cvSkills.Intersect(jdSkills))
	return float64(shared) / float64(max(1, len(jdSkills)))
}

// ComputeMatch combines skill coverage, text similarity and keyword overlap
// into a 0-100 score and reports the shared skills and the JD skills the CV
// is missing.
func (v *Vocabulary) ComputeMatch(cvText, jdText string, cvSkills, jdSkills SkillSet) MatchResult {
	cv := NewSkillSet(cvSkills...)
	jd := NewSkillSet(jdSkills...)

	coverage := SkillCoverage(cv, jd)
	similarity := TextSimilarity(cvText, jdText)
	overlap := v.KeywordOverlap(cvText, jdText)

	combined := WeightSkillCoverage*coverage +
		WeightTextSimilarity*similarity +
		WeightKeywordOverlap*overlap

	return MatchResult{
		Score: clampPercent(percent(combined)),
		Breakdown: ScoreBreakdown{
			SkillCoverage:  percent(coverage),
			TextSimilarity: percent(similarity),
			KeywordOverlap: percent(overlap),
		},
		Strengths: cv.Intersect(jd),
		Gaps:      jd.Difference(cv),
	}
}

// percent scales a 0-1 ratio to an integer percentage. Halves round to even.
func percent(ratio float64) int {
	return int(math.RoundToEven(ratio * 100))
}

func clampPercent(p int) int {
	return max(0, min(100, p))
}
