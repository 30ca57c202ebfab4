// Package types holds the request and response shapes shared by the CLI and HTTP API.
package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"careerpath/internal/config"
	"careerpath/internal/coverletter"
	"careerpath/internal/matching"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MatchRequest asks for a CV/JD compatibility analysis. Empty texts are
// allowed and score as degenerate input.
type MatchRequest struct {
	Resume         string `json:"resume" validate:"max=1048576"`
	JobDescription string `json:"jobDescription" validate:"max=1048576"`
}

// Validate checks the request against its struct tags
func (r *MatchRequest) Validate() error { return validate.Struct(r) }

// CoverLetterRequest asks for a letter from explicit skills and gaps.
type CoverLetterRequest struct {
	Skills  []string `json:"skills" validate:"max=100,dive,max=200"`
	Gaps    []string `json:"gaps" validate:"max=100,dive,max=200"`
	Role    string   `json:"role" validate:"max=200"`
	Company string   `json:"company" validate:"max=200"`
	Tone    string   `json:"tone" validate:"max=32"`
	Words   *int     `json:"words" validate:"omitempty,min=0,max=5000"`
}

// Validate checks the request against its struct tags
func (r *CoverLetterRequest) Validate() error { return validate.Struct(r) }

// AnalyzeRequest combines a match with a letter built from its outcome.
type AnalyzeRequest struct {
	MatchRequest
	Role    string `json:"role" validate:"max=200"`
	Company string `json:"company" validate:"max=200"`
	Tone    string `json:"tone" validate:"max=32"`
	Words   *int   `json:"words" validate:"omitempty,min=0,max=5000"`
}

// Validate checks the request against its struct tags
func (r *AnalyzeRequest) Validate() error { return validate.Struct(r) }

// LetterOptions are the resolved cover letter settings of one request.
type LetterOptions struct {
	Tone    coverletter.Tone
	Words   int
	Role    string
	Company string
}

// DefaultLetterOptions turns the configured letter defaults into options.
func DefaultLetterOptions(cfg config.LetterConfig) (LetterOptions, error) {
	tone, err := coverletter.ParseTone(cfg.Tone)
	if err != nil {
		return LetterOptions{}, err
	}
	return LetterOptions{Tone: tone, Words: cfg.Words, Role: cfg.Role, Company: cfg.Company}, nil
}

// Resolve overlays request values on the defaults. A blank tone, role or
// company and a nil word count keep the default.
func (d LetterOptions) Resolve(tone string, words *int, role, company string) (LetterOptions, error) {
	out := d
	if strings.TrimSpace(tone) != "" {
		parsed, err := coverletter.ParseTone(tone)
		if err != nil {
			return LetterOptions{}, err
		}
		out.Tone = parsed
	}
	if words != nil {
		out.Words = *words
	}
	if strings.TrimSpace(role) != "" {
		out.Role = role
	}
	if strings.TrimSpace(company) != "" {
		out.Company = company
	}
	return out, nil
}

// CoverLetterOutput is the letter plus the options it was rendered with.
type CoverLetterOutput struct {
	coverletter.Letter
	Tone    coverletter.Tone `json:"tone"`
	Role    string           `json:"role"`
	Company string           `json:"company"`
}

// NewCoverLetterOutput renders req and records its options.
func NewCoverLetterOutput(req coverletter.Request) (CoverLetterOutput, error) {
	letter, err := coverletter.Render(req)
	if err != nil {
		return CoverLetterOutput{}, err
	}
	return CoverLetterOutput{Letter: letter, Tone: req.Tone, Role: req.Role, Company: req.Company}, nil
}

// AnalyzeOutput is the combined view: match outcome and the letter built from it.
type AnalyzeOutput struct {
	Analysis matching.Analysis `json:"analysis"`
	Letter   CoverLetterOutput `json:"coverLetter"`
}
