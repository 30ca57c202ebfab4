package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"careerpath/internal/matching"
	"careerpath/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Analysis", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "Analysis", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "CoverLetterOutput", &LetterTextFormatter{})
	registry.RegisterFormatter("markdown", "CoverLetterOutput", &LetterMarkdownFormatter{})
	registry.RegisterFormatter("text", "AnalyzeOutput", &AnalyzeTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalyzeOutput", &AnalyzeMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case matching.Analysis:
		return "Analysis"
	case types.CoverLetterOutput:
		return "CoverLetterOutput"
	case types.AnalyzeOutput:
		return "AnalyzeOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func writeAnalysisText(b *strings.Builder, a matching.Analysis) {
	b.WriteString("=== MATCH SCORE ===\n")
	fmt.Fprintf(b, "Score: %d/100\n\n", a.Match.Score)

	b.WriteString("=== BREAKDOWN ===\n")
	fmt.Fprintf(b, "Skill coverage:  %d%%\n", a.Match.Breakdown.SkillCoverage)
	fmt.Fprintf(b, "Text similarity: %d%%\n", a.Match.Breakdown.TextSimilarity)
	fmt.Fprintf(b, "Keyword overlap: %d%%\n\n", a.Match.Breakdown.KeywordOverlap)

	b.WriteString("=== SKILLS ===\n")
	fmt.Fprintf(b, "Strengths: %s\n", listOrNone(a.Match.Strengths))
	fmt.Fprintf(b, "Gaps:      %s\n", listOrNone(a.Match.Gaps))
	fmt.Fprintf(b, "CV skills: %s\n", listOrNone(a.CVSkills))
	fmt.Fprintf(b, "JD skills: %s\n", listOrNone(a.JDSkills))
}

func writeAnalysisMarkdown(b *strings.Builder, a matching.Analysis) {
	b.WriteString("# Match Report\n\n")
	fmt.Fprintf(b, "**Score:** %d/100\n\n", a.Match.Score)

	b.WriteString("## Breakdown\n\n")
	b.WriteString("| Signal | Percent |\n|---|---|\n")
	fmt.Fprintf(b, "| Skill coverage | %d%% |\n", a.Match.Breakdown.SkillCoverage)
	fmt.Fprintf(b, "| Text similarity | %d%% |\n", a.Match.Breakdown.TextSimilarity)
	fmt.Fprintf(b, "| Keyword overlap | %d%% |\n\n", a.Match.Breakdown.KeywordOverlap)

	writeMarkdownList(b, "Strengths", a.Match.Strengths)
	writeMarkdownList(b, "Gaps", a.Match.Gaps)
}

func writeMarkdownList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("_None_\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeLetterText(b *strings.Builder, l types.CoverLetterOutput) {
	b.WriteString("=== COVER LETTER ===\n")
	fmt.Fprintf(b, "Role: %s | Company: %s | Tone: %s\n\n", l.Role, l.Company, l.Tone)
	b.WriteString(l.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(b, "Words: %d", l.WordCount)
	if l.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")
}

func writeLetterMarkdown(b *strings.Builder, l types.CoverLetterOutput) {
	fmt.Fprintf(b, "# Cover Letter: %s at %s\n\n", l.Role, l.Company)
	b.WriteString(l.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(b, "_%s tone, %d words", l.Tone, l.WordCount)
	if l.Truncated {
		b.WriteString(", truncated")
	}
	b.WriteString("_\n")
}

// AnalysisTextFormatter handles text formatting for match results
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	a, ok := data.(matching.Analysis)
	if !ok {
		return "", fmt.Errorf("expected Analysis, got %T", data)
	}
	var b strings.Builder
	writeAnalysisText(&b, a)
	return b.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string { return "Analysis" }

// AnalysisMarkdownFormatter handles markdown formatting for match results
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	a, ok := data.(matching.Analysis)
	if !ok {
		return "", fmt.Errorf("expected Analysis, got %T", data)
	}
	var b strings.Builder
	writeAnalysisMarkdown(&b, a)
	return b.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string { return "Analysis" }

// LetterTextFormatter handles text formatting for cover letters
type LetterTextFormatter struct{}

func (f *LetterTextFormatter) Format(data any) (string, error) {
	l, ok := data.(types.CoverLetterOutput)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterOutput, got %T", data)
	}
	var b strings.Builder
	writeLetterText(&b, l)
	return b.String(), nil
}

func (f *LetterTextFormatter) SupportedType() string { return "CoverLetterOutput" }

// LetterMarkdownFormatter handles markdown formatting for cover letters
type LetterMarkdownFormatter struct{}

func (f *LetterMarkdownFormatter) Format(data any) (string, error) {
	l, ok := data.(types.CoverLetterOutput)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterOutput, got %T", data)
	}
	var b strings.Builder
	writeLetterMarkdown(&b, l)
	return b.String(), nil
}

func (f *LetterMarkdownFormatter) SupportedType() string { return "CoverLetterOutput" }

// AnalyzeTextFormatter renders the match report followed by the letter
type AnalyzeTextFormatter struct{}

func (f *AnalyzeTextFormatter) Format(data any) (string, error) {
	out, ok := data.(types.AnalyzeOutput)
	if !ok {
		return "", fmt.Errorf("expected AnalyzeOutput, got %T", data)
	}
	var b strings.Builder
	writeAnalysisText(&b, out.Analysis)
	b.WriteString("\n")
	writeLetterText(&b, out.Letter)
	return b.String(), nil
}

func (f *AnalyzeTextFormatter) SupportedType() string { return "AnalyzeOutput" }

// AnalyzeMarkdownFormatter renders the match report followed by the letter
type AnalyzeMarkdownFormatter struct{}

func (f *AnalyzeMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(types.AnalyzeOutput)
	if !ok {
		return "", fmt.Errorf("expected AnalyzeOutput, got %T", data)
	}
	var b strings.Builder
	writeAnalysisMarkdown(&b, out.Analysis)
	b.WriteString("## Cover Letter\n\n")
	b.WriteString(out.Letter.Text)
	b.WriteString("\n")
	return b.String(), nil
}

func (f *AnalyzeMarkdownFormatter) SupportedType() string { return "AnalyzeOutput" }

// GlobalRegistry is the default formatter registry instance
var GlobalRegistry = NewFormatterRegistry()
