package matching

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"careerpath/internal/errors"
)

// Analysis is a MatchResult together with the skill sets it was computed from.
type Analysis struct {
	Match    MatchResult `json:"match"`
	CVSkills SkillSet    `json:"cvSkills"`
	JDSkills SkillSet    `json:"jdSkills"`
}

// Engine runs the full scoring pipeline against one vocabulary.
type Engine struct {
	vocab  *Vocabulary
	logger *errors.Logger
}

// NewEngine binds a vocabulary. A nil vocabulary selects the built-in one and
// a nil logger discards log output.
func NewEngine(vocab *Vocabulary, logger *errors.Logger) *Engine {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &Engine{vocab: vocab, logger: logger}
}

func (e *Engine) Vocabulary() *Vocabulary {
	return e.vocab
}

// Analyze normalizes both texts, extracts their skills and scores the pair.
// Input is brought to Unicode NFC first, so composed and decomposed spellings
// score the same whichever surface they arrived through. Degenerate input (an empty text, a JD without recognized skills) is scored
// like any other and only logged.
func (e *Engine) Analyze(cvText, jdText string) Analysis {
	cv := Normalize(norm.NFC.String(cvText))
	jd := Normalize(norm.NFC.String(jdText))

	cvSkills := e.vocab.ExtractSkills(cv)
	jdSkills := e.vocab.ExtractSkills(jd)

	if strings.TrimSpace(cv) == "" || strings.TrimSpace(jd) == "" {
		e.logger.Warn("Degenerate input: empty document after normalization",
			"cv_empty", cv == "",
			"jd_empty", jd == "")
	}
	if len(jdSkills) == 0 {
		e.logger.Warn("Degenerate input: no skills recognized in job description, coverage defaults to 100")
	}

	result := e.vocab.ComputeMatch(cv, jd, cvSkills, jdSkills)

	e.logger.Debug("Match computed",
		"score", result.Score,
		"cv_skills", len(cvSkills),
		"jd_skills", len(jdSkills),
		"strengths", len(result.Strengths),
		"gaps", len(result.Gaps))

	return Analysis{
		Match:    result,
		CVSkills: cvSkills,
		JDSkills: jdSkills,
	}
}
