package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/errors"
	"careerpath/internal/matching"
)

func writeVocabulary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocabulary.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadVocabularyDefault(t *testing.T) {
	vocab, err := LoadVocabulary("")
	require.NoError(t, err)
	assert.Same(t, matching.DefaultVocabulary(), vocab)
}

func TestLoadVocabularyFromFile(t *testing.T) {
	path := writeVocabulary(t, `{
		"skills": ["golang", "kubernetes", "sql"],
		"keywords": ["microservices"],
		"aliases": [{"from": "k8s", "to": "kubernetes"}]
	}`)

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "kubernetes", "sql"}, vocab.Skills())
	assert.Equal(t, []string{"microservices"}, vocab.Keywords())

	skills := vocab.ExtractSkills("Shipped golang microservices on k8s")
	assert.Equal(t, matching.SkillSet{"golang", "kubernetes"}, skills)
}

func TestLoadVocabularyPartialFallsBackToDefaults(t *testing.T) {
	path := writeVocabulary(t, `{"skills": ["golang"]}`)

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, vocab.Skills())
	assert.Equal(t, matching.DefaultKeywords(), vocab.Keywords())
	assert.Equal(t, matching.DefaultAliases(), vocab.Aliases())
}

func TestLoadVocabularyErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{name: "not json", content: `skills: [python]`, code: errors.ErrCodeInvalidVocabulary},
		{name: "unknown section", content: `{"tools": ["git"]}`, code: errors.ErrCodeInvalidVocabulary},
		{name: "skill not a string", content: `{"skills": [42]}`, code: errors.ErrCodeInvalidVocabulary},
		{name: "alias missing target", content: `{"aliases": [{"from": "k8s"}]}`, code: errors.ErrCodeInvalidVocabulary},
		{name: "punctuation only skill", content: `{"skills": ["--"]}`, code: errors.ErrCodeInvalidVocabulary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadVocabulary(writeVocabulary(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))
}
