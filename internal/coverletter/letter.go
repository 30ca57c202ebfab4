// Package coverletter renders a short cover letter from a match outcome.
package coverletter

import (
	"fmt"
	"strings"

	"careerpath/internal/errors"
	"careerpath/internal/matching"
)

const (
	DefaultRole      = "the role"
	DefaultCompany   = "your company"
	DefaultWordCount = 220

	maxListedSkills = 10
	maxListedGaps   = 6
	ellipsis        = "..."
)

// Request holds everything a letter is built from. A non-positive WordCount
// disables truncation.
type Request struct {
	Skills    []string
	Gaps      []string
	Role      string
	Company   string
	Tone      Tone
	WordCount int
}

// Letter is a rendered cover letter.
type Letter struct {
	Text      string `json:"letter"`
	WordCount int    `json:"wordCount"`
	Truncated bool   `json:"truncated"`
}

// FromAnalysis builds a request from an analysis: the shared skills are
// highlighted, or all CV skills when nothing is shared. Blank role and company
// fall back to generic wording.
func FromAnalysis(a matching.Analysis, role, company string, tone Tone, words int) Request {
	skills := a.Match.Strengths
	if len(skills) == 0 {
		skills = a.CVSkills
	}
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}
	if strings.TrimSpace(company) == "" {
		company = DefaultCompany
	}
	return Request{
		Skills:    skills,
		Gaps:      a.Match.Gaps,
		Role:      role,
		Company:   company,
		Tone:      tone,
		WordCount: words,
	}
}

// Generate renders the letter text. It fails only for an unsupported tone.
func Generate(req Request) (string, error) {
	letter, err := Render(req)
	if err != nil {
		return "", err
	}
	return letter.Text, nil
}

// Render is Generate with word count and truncation details.
func Render(req Request) (Letter, error) {
	opening, err := openingFor(req.Tone, req.Role, req.Company)
	if err != nil {
		return Letter{}, err
	}

	paragraphs := []string{
		opening,
		strengthsParagraph(req.Skills),
		learningParagraph(req.Gaps),
		fmt.Sprintf("Thank you for your time and consideration. "+
			"I would welcome the chance to discuss how I can contribute to %s's roadmap.", req.Company),
	}
	for i, p := range paragraphs {
		paragraphs[i] = strings.TrimSpace(p)
	}

	return truncate(strings.Join(paragraphs, " "), req.WordCount), nil
}

func openingFor(tone Tone, role, company string) (string, error) {
	switch tone {
	case ToneProfessional:
		return fmt.Sprintf("I am excited to apply for the %s position at %s. "+
			"I combine hands-on analytics with clear communication and an ownership mindset.", role, company), nil
	case ToneFriendly:
		return fmt.Sprintf("I'm thrilled to apply for the %s role at %s! "+
			"I love turning messy data into useful, human-readable insights.", role, company), nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidTone,
			fmt.Sprintf("unsupported tone %s (supported: %s)", tone, strings.Join(Tones(), ", ")), nil)
	}
}

func strengthsParagraph(skills []string) string {
	listed := "relevant skills"
	if len(skills) > 0 {
		listed = strings.Join(skills[:min(len(skills), maxListedSkills)], ", ")
	}
	return fmt.Sprintf("In recent projects, I built end-to-end data workflows using %s. "+
		"I collaborated with cross-functional teams to define KPIs, designed reliable data models, and automated reporting. "+
		"I value clean data practices, reproducible code, and measurable impact.", listed)
}

func learningParagraph(gaps []string) string {
	p := "I learn fast and enjoy tackling ambiguous problems."
	if len(gaps) > 0 {
		p += fmt.Sprintf(" I'm actively strengthening %s, and I approach gaps with a clear learning plan and rapid prototyping.",
			strings.Join(gaps[:min(len(gaps), maxListedGaps)], ", "))
	}
	return p
}

// truncate keeps the first limit whitespace-separated tokens and appends an
// ellipsis token when anything was cut.
func truncate(text string, limit int) Letter {
	tokens := strings.Fields(text)
	if limit <= 0 || len(tokens) <= limit {
		return Letter{Text: text, WordCount: len(tokens)}
	}
	kept := append(tokens[:limit:limit], ellipsis)
	return Letter{
		Text:      strings.Join(kept, " "),
		WordCount: limit,
		Truncated: true,
	}
}
