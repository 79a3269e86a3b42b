package extract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords holds the membership sets that drive section detection.
// Every entry is matched as a substring of the lowercased line.
type Keywords struct {
	SkillStart     []string `yaml:"skill_start"`
	SkillStop      []string `yaml:"skill_stop"`
	EducationStart []string `yaml:"education_start"`
	EducationStop  []string `yaml:"education_stop"`
	Roles          []string `yaml:"roles"`
	Actions        []string `yaml:"actions"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		SkillStart: []string{
			"skill", "skills", "technical skill", "technical skills",
			"programming language", "soft skills", "languages",
		},
		SkillStop: []string{"experience", "certification", "project", "skills", "certificate"},
		EducationStart: []string{
			"education", "degree", "university", "college", "coursework", "courses",
		},
		EducationStop: []string{"experience", "certification", "project", "skills", "projects"},
		Roles: []string{
			"intern", "assistant", "manager", "developer", "engineer", "analyst", "consultant",
		},
		Actions: []string{
			"developing", "creating", "building", "researching", "automating", "testing",
		},
	}
}

// LoadKeywords reads a YAML override document. Sets missing from the
// document keep their default values.
func LoadKeywords(r io.Reader) (Keywords, error) {
	var override Keywords
	if err := yaml.NewDecoder(r).Decode(&override); err != nil && err != io.EOF {
		return Keywords{}, fmt.Errorf("decode keywords: %w", err)
	}

	kw := DefaultKeywords()
	merge := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = lowerAll(src)
		}
	}
	merge(&kw.SkillStart, override.SkillStart)
	merge(&kw.SkillStop, override.SkillStop)
	merge(&kw.EducationStart, override.EducationStart)
	merge(&kw.EducationStop, override.EducationStop)
	merge(&kw.Roles, override.Roles)
	merge(&kw.Actions, override.Actions)
	return kw, nil
}

func LoadKeywordsFile(path string) (Keywords, error) {
	f, err := os.Open(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("open keywords file: %w", err)
	}
	defer f.Close()
	return LoadKeywords(f)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
