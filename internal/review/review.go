// Package review produces qualitative CV feedback from an extracted record.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/muhammadolammi/cvranker/internal/extract"
)

var (
	ErrMissingFields = errors.New("missing required parameters")
	ErrUnavailable   = errors.New("reviewer is not configured")
	// ErrInvalidReview means the model answered with something that is not
	// a feedback object.
	ErrInvalidReview = errors.New("model responded with invalid JSON")
)

// Reviewer writes feedback for one resume record.
type Reviewer interface {
	Review(ctx context.Context, rec extract.ResumeRecord) (Feedback, error)
}

// Points accepts either a single string or a list of strings.
type Points []string

func (p *Points) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			*p = nil
		} else {
			*p = Points{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*p = many
	return nil
}

type Feedback struct {
	Strengths   Points `json:"strengths"`
	Weaknesses  Points `json:"weaknesses"`
	Suggestions Points `json:"suggestions"`
}

func (f Feedback) empty() bool {
	return len(f.Strengths) == 0 && len(f.Weaknesses) == 0 && len(f.Suggestions) == 0
}

// Validate checks that every field the review prompt needs is present.
func Validate(rec extract.ResumeRecord) error {
	if rec.ExperienceText() == "" || rec.SkillText() == "" ||
		rec.AbilityText() == "" || rec.EducationText() == "" {
		return ErrMissingFields
	}
	return nil
}

func BuildPrompt(rec extract.ResumeRecord) string {
	return fmt.Sprintf(
		"Experiences: %s\nSkills: %s\nAbilities: %s\nEducation: %s",
		rec.ExperienceText(),
		rec.SkillText(),
		rec.AbilityText(),
		rec.EducationText(),
	)
}

var (
	boldRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.*?)\*`)
	jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)
)

func CleanJson(input string) string {
	clean := strings.TrimSpace(input)

	// Remove opening ```json or ``` with optional newline
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")

	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// ParseFeedback decodes a model answer. Code fences and markdown emphasis
// are stripped first; failing that, the outermost {...} block is tried.
func ParseFeedback(raw string) (Feedback, error) {
	var fb Feedback
	cleaned := CleanJson(raw)
	cleaned = boldRe.ReplaceAllString(cleaned, "$1")
	cleaned = italicRe.ReplaceAllString(cleaned, "$1")

	err := json.Unmarshal([]byte(cleaned), &fb)
	if err != nil {
		block := jsonBlockRe.FindString(raw)
		if block == "" {
			return Feedback{}, fmt.Errorf("%w: %v", ErrInvalidReview, err)
		}
		fb = Feedback{}
		if err := json.Unmarshal([]byte(block), &fb); err != nil {
			return Feedback{}, fmt.Errorf("%w: %v", ErrInvalidReview, err)
		}
	}
	if fb.empty() {
		return Feedback{}, fmt.Errorf("%w: no strengths, weaknesses or suggestions", ErrInvalidReview)
	}
	return fb, nil
}
