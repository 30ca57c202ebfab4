package matching

import (
	"regexp"
	"strings"
)

var (
	// "s q l", "s.q.l", "S-Q-L" all collapse to "sql"
	spacedSQL = regexp.MustCompile(`s[^a-z]*q[^a-z]*l`)
	// "t - sql", "t -sql" collapse to "t-sql"; the hyphen is split out again below
	spacedTSQL = regexp.MustCompile(`t[^a-z]*-[^a-z]*sql`)
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize canonicalizes raw text for phrase comparison: lower-cased,
// spaced-out "sql" variants joined, hyphens turned into spaces, ASCII
// punctuation dropped and whitespace collapsed. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := strings.ToLower(text)
	t = spacedSQL.ReplaceAllLiteralString(t, "sql")
	t = spacedTSQL.ReplaceAllLiteralString(t, "t-sql")
	t = strings.ReplaceAll(t, "-", " ")
	t = strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, t)

	return strings.Join(strings.Fields(t), " ")
}

// pad surrounds s with single spaces so substring tests only hit whole phrases.
func pad(s string) string {
	return " " + s + " "
}
