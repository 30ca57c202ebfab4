package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"careerpath/internal/errors"
	"careerpath/internal/matching"
)

// vocabularySchema describes a vocabulary file. Omitted sections fall back to
// the built-in tables.
const vocabularySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "skills":   {"type": "array", "items": {"type": "string", "minLength": 1}},
    "keywords": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "aliases": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["from", "to"],
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "to":   {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

type vocabularyFile struct {
	Skills   []string         `json:"skills"`
	Keywords []string         `json:"keywords"`
	Aliases  []matching.Alias `json:"aliases"`
}

// LoadVocabulary returns the built-in vocabulary for an empty path, otherwise
// the vocabulary described by the JSON file at path.
func LoadVocabulary(path string) (*matching.Vocabulary, error) {
	if path == "" {
		return matching.DefaultVocabulary(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "vocabulary file not found", err).
				WithContext("file", path)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read vocabulary file", err).
			WithContext("file", path)
	}

	vocab, err := ParseVocabulary(raw)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, appErr.WithContext("file", path)
		}
		return nil, err
	}
	return vocab, nil
}

// ParseVocabulary validates raw JSON against the vocabulary schema and builds a Vocabulary.
func ParseVocabulary(raw []byte) (*matching.Vocabulary, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(vocabularySchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary, "vocabulary is not valid JSON", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary,
			"vocabulary failed schema validation: "+strings.Join(problems, "; "), nil)
	}

	var file vocabularyFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidVocabulary, "failed to decode vocabulary", err)
	}

	if file.Skills == nil {
		file.Skills = matching.DefaultSkills()
	}
	if file.Keywords == nil {
		file.Keywords = matching.DefaultKeywords()
	}
	if file.Aliases == nil {
		file.Aliases = matching.DefaultAliases()
	}
	return matching.NewVocabulary(file.Skills, file.Keywords, file.Aliases)
}
