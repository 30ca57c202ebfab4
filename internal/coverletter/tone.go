package coverletter

import (
	"fmt"
	"strings"

	"careerpath/internal/errors"
)

// Tone selects the opening sentence of a letter.
type Tone int

const (
	ToneProfessional Tone = iota + 1
	ToneFriendly
)

var toneNames = map[Tone]string{
	ToneProfessional: "professional",
	ToneFriendly:     "friendly",
}

// Tones lists the supported tone names.
func Tones() []string {
	return []string{ToneProfessional.String(), ToneFriendly.String()}
}

func (t Tone) String() string {
	if name, ok := toneNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tone(%d)", int(t))
}

func (t Tone) Valid() bool {
	_, ok := toneNames[t]
	return ok
}

// ParseTone accepts a tone name, ignoring case and surrounding space.
func ParseTone(s string) (Tone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "professional":
		return ToneProfessional, nil
	case "friendly":
		return ToneFriendly, nil
	}
	return 0, errors.NewValidationError(errors.ErrCodeInvalidTone,
		fmt.Sprintf("unsupported tone %q (supported: %s)", s, strings.Join(Tones(), ", ")), nil).
		WithContext("tone", s)
}

func (t Tone) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidTone, "unsupported tone "+t.String(), nil)
	}
	return []byte(t.String()), nil
}

func (t *Tone) UnmarshalText(text []byte) error {
	parsed, err := ParseTone(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
