package coverletter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/errors"
	"careerpath/internal/matching"
)

func TestGenerateProfessional(t *testing.T) {
	got, err := Generate(Request{
		Skills:  []string{"python", "sql"},
		Gaps:    []string{"etl", "tableau"},
		Role:    "Data Analyst",
		Company: "Acme",
		Tone:    ToneProfessional,
	})
	require.NoError(t, err)

	want := "I am excited to apply for the Data Analyst position at Acme. " +
		"I combine hands-on analytics with clear communication and an ownership mindset. " +
		"In recent projects, I built end-to-end data workflows using python, sql. " +
		"I collaborated with cross-functional teams to define KPIs, designed reliable data models, and automated reporting. " +
		"I value clean data practices, reproducible code, and measurable impact. " +
		"I learn fast and enjoy tackling ambiguous problems. " +
		"I'm actively strengthening etl, tableau, and I approach gaps with a clear learning plan and rapid prototyping. " +
		"Thank you for your time and consideration. " +
		"I would welcome the chance to discuss how I can contribute to Acme's roadmap."
	assert.Equal(t, want, got)
}

func TestGenerateFriendlyWithoutSkillsOrGaps(t *testing.T) {
	got, err := Generate(Request{Role: "Analyst", Company: "Globex", Tone: ToneFriendly})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "I'm thrilled to apply for the Analyst role at Globex! "))
	assert.Contains(t, got, "workflows using relevant skills.")
	assert.Contains(t, got, "I learn fast and enjoy tackling ambiguous problems. Thank you")
	assert.NotContains(t, got, "strengthening")
	assert.NotContains(t, got, "  ")
}

func TestGenerateListsAtMostTenSkillsAndSixGaps(t *testing.T) {
	skills := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11", "s12"}
	gaps := []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"}

	got, err := Generate(Request{Skills: skills, Gaps: gaps, Role: "r", Company: "c", Tone: ToneProfessional})
	require.NoError(t, err)

	assert.Contains(t, got, "using s1, s2, s3, s4, s5, s6, s7, s8, s9, s10.")
	assert.NotContains(t, got, "s11")
	assert.Contains(t, got, "strengthening g1, g2, g3, g4, g5, g6, and")
	assert.NotContains(t, got, "g7")
}

func TestGenerateTruncation(t *testing.T) {
	req := Request{
		Skills:    []string{"python", "sql"},
		Gaps:      []string{"etl"},
		Role:      "Data Analyst",
		Company:   "Acme",
		Tone:      ToneProfessional,
		WordCount: 10,
	}

	got, err := Generate(req)
	require.NoError(t, err)

	tokens := strings.Fields(got)
	require.Len(t, tokens, 11)
	assert.Equal(t, "...", tokens[10])
	assert.Equal(t, "I am excited to apply for the Data Analyst position ...", got)

	letter, err := Render(req)
	require.NoError(t, err)
	assert.True(t, letter.Truncated)
	assert.Equal(t, 10, letter.WordCount)
}

func TestGenerateWithoutTruncation(t *testing.T) {
	base := Request{Skills: []string{"python"}, Role: "r", Company: "c", Tone: ToneFriendly}
	full, err := Generate(base)
	require.NoError(t, err)
	fullTokens := len(strings.Fields(full))

	for _, words := range []int{0, -5, fullTokens, fullTokens + 50} {
		req := base
		req.WordCount = words
		got, err := Render(req)
		require.NoError(t, err)
		assert.Equal(t, full, got.Text, "words=%d", words)
		assert.False(t, got.Truncated)
		assert.Equal(t, fullTokens, got.WordCount)
	}
}

func TestGenerateRejectsInvalidTone(t *testing.T) {
	_, err := Generate(Request{Role: "r", Company: "c"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTone))

	_, err = Generate(Request{Role: "r", Company: "c", Tone: Tone(42)})
	assert.True(t, errors.IsValidation(err))
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		in      string
		want    Tone
		wantErr bool
	}{
		{"professional", ToneProfessional, false},
		{" Friendly ", ToneFriendly, false},
		{"PROFESSIONAL", ToneProfessional, false},
		{"sarcastic", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTone(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToneText(t *testing.T) {
	var tone Tone
	require.NoError(t, tone.UnmarshalText([]byte("friendly")))
	assert.Equal(t, ToneFriendly, tone)

	text, err := ToneProfessional.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "professional", string(text))

	_, err = Tone(0).MarshalText()
	assert.Error(t, err)
	assert.Error(t, tone.UnmarshalText([]byte("sarcastic")))
	assert.Equal(t, []string{"professional", "friendly"}, Tones())
}

func TestFromAnalysis(t *testing.T) {
	withStrengths := matching.Analysis{
		Match: matching.MatchResult{
			Strengths: matching.SkillSet{"python"},
			Gaps:      matching.SkillSet{"etl"},
		},
		CVSkills: matching.SkillSet{"excel", "python"},
	}
	req := FromAnalysis(withStrengths, "", "  ", ToneFriendly, 120)
	assert.Equal(t, []string{"python"}, req.Skills)
	assert.Equal(t, []string{"etl"}, req.Gaps)
	assert.Equal(t, DefaultRole, req.Role)
	assert.Equal(t, DefaultCompany, req.Company)
	assert.Equal(t, 120, req.WordCount)

	noOverlap := matching.Analysis{
		Match:    matching.MatchResult{Strengths: matching.SkillSet{}, Gaps: matching.SkillSet{"tableau"}},
		CVSkills: matching.SkillSet{"excel", "python"},
	}
	req = FromAnalysis(noOverlap, "Analyst", "Acme", ToneProfessional, 0)
	assert.Equal(t, []string{"excel", "python"}, req.Skills)
	assert.Equal(t, "Analyst", req.Role)
}

func BenchmarkGenerate(b *testing.B) {
	req := Request{
		Skills:    []string{"python", "sql", "power bi"},
		Gaps:      []string{"etl", "tableau"},
		Role:      "Data Analyst",
		Company:   "Acme",
		Tone:      ToneProfessional,
		WordCount: DefaultWordCount,
	}
	for b.Loop() {
		_, _ = Generate(req)
	}
}
