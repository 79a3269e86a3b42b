package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/RadhiFadlillah/whatlanggo"
)

// ErrLanguageRejected means the resume is not written in the accepted language.
var ErrLanguageRejected = errors.New("resume must be in English")

// e-mail addresses, phone numbers and URLs skew detection
var languageNoiseRe = regexp.MustCompile(`\S+@\S+|\+\d{9,}|http\S+`)

type LanguageGate struct {
	want whatlanggo.Lang
}

func EnglishGate() *LanguageGate {
	return &LanguageGate{want: whatlanggo.Eng}
}

// Check returns ErrLanguageRejected unless text is detected as the gate's language.
func (g *LanguageGate) Check(text string) error {
	sample := strings.TrimSpace(languageNoiseRe.ReplaceAllString(text, ""))
	if sample == "" {
		return fmt.Errorf("%w: no text to detect", ErrLanguageRejected)
	}
	info := whatlanggo.Detect(sample)
	if info.Lang != g.want {
		return fmt.Errorf("%w: detected %s", ErrLanguageRejected, info.Lang.String())
	}
	return nil
}
