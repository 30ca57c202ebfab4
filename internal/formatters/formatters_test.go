package formatters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/coverletter"
	"careerpath/internal/matching"
	"careerpath/internal/types"
)

func sampleAnalysis() matching.Analysis {
	return matching.Analysis{
		Match: matching.MatchResult{
			Score:     24,
			Breakdown: matching.ScoreBreakdown{SkillCoverage: 40, TextSimilarity: 11, KeywordOverlap: 6},
			Strengths: matching.SkillSet{"python", "sql"},
			Gaps:      matching.SkillSet{"etl", "sql server", "tableau"},
		},
		CVSkills: matching.SkillSet{"power bi", "python", "sql"},
		JDSkills: matching.SkillSet{"etl", "python", "sql", "sql server", "tableau"},
	}
}

func sampleLetter() types.CoverLetterOutput {
	return types.CoverLetterOutput{
		Letter:  coverletter.Letter{Text: "I am excited ...", WordCount: 3, Truncated: true},
		Tone:    coverletter.ToneProfessional,
		Role:    "Data Analyst",
		Company: "Acme",
	}
}

func TestFormatAnalysisJSON(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleAnalysis(), "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	match := decoded["match"].(map[string]any)
	assert.Equal(t, float64(24), match["score"])
	breakdown := match["breakdown"].(map[string]any)
	assert.Equal(t, float64(40), breakdown["skillCoverage"])
	assert.Equal(t, float64(11), breakdown["textSimilarity"])
	assert.Equal(t, float64(6), breakdown["keywordOverlap"])
}

func TestFormatAnalysisText(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleAnalysis(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Score: 24/100")
	assert.Contains(t, out, "Skill coverage:  40%")
	assert.Contains(t, out, "Strengths: python, sql")
	assert.Contains(t, out, "Gaps:      etl, sql server, tableau")
}

func TestFormatAnalysisMarkdownEmptyLists(t *testing.T) {
	a := sampleAnalysis()
	a.Match.Gaps = matching.SkillSet{}

	out, err := GlobalRegistry.Format(a, "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Match Report")
	assert.Contains(t, out, "| Text similarity | 11% |")
	assert.Contains(t, out, "- python\n- sql\n")
	assert.Contains(t, out, "## Gaps\n\n_None_")
}

func TestFormatLetter(t *testing.T) {
	text, err := GlobalRegistry.Format(sampleLetter(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Role: Data Analyst | Company: Acme | Tone: professional")
	assert.Contains(t, text, "Words: 3 (truncated)")

	md, err := GlobalRegistry.Format(sampleLetter(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Cover Letter: Data Analyst at Acme")

	raw, err := GlobalRegistry.Format(sampleLetter(), "json")
	require.NoError(t, err)
	assert.Contains(t, raw, `"letter": "I am excited ..."`)
	assert.Contains(t, raw, `"tone": "professional"`)
}

func TestFormatAnalyzeOutput(t *testing.T) {
	combined := types.AnalyzeOutput{Analysis: sampleAnalysis(), Letter: sampleLetter()}

	text, err := GlobalRegistry.Format(combined, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "=== MATCH SCORE ===")
	assert.Contains(t, text, "=== COVER LETTER ===")

	md, err := GlobalRegistry.Format(combined, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "## Cover Letter\n\nI am excited ...")
}

func TestFormatUnknown(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleAnalysis(), "xml")
	assert.ErrorContains(t, err, "no formatter found for format 'xml'")

	_, err = GlobalRegistry.Format(struct{}{}, "text")
	assert.Error(t, err)

	assert.Equal(t, []string{"json", "markdown", "text"}, GlobalRegistry.GetSupportedFormats())
}

func TestFormatterTypeMismatch(t *testing.T) {
	_, err := (&AnalysisTextFormatter{}).Format(sampleLetter())
	assert.ErrorContains(t, err, "expected Analysis")
}
