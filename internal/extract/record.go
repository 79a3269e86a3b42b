package extract

import (
	"strings"

	"github.com/google/uuid"
)

// DisplaySeparator joins entry lists in the flat presentation of a record.
const DisplaySeparator = ", "

// ResumeRecord is the structured result of one extraction call.
type ResumeRecord struct {
	ID         uuid.UUID         `json:"id"`
	RawText    string            `json:"raw_text"`
	Name       string            `json:"name"`
	Experience []ExperienceEntry `json:"experience"`
	Skills     []string          `json:"skills"`
	Education  []string          `json:"education"`
	Abilities  []string          `json:"abilities"`
}

func (r ResumeRecord) ExperienceText() string {
	parts := make([]string, len(r.Experience))
	for i, e := range r.Experience {
		parts[i] = e.String()
	}
	return strings.Join(parts, DisplaySeparator)
}

func (r ResumeRecord) SkillText() string     { return strings.Join(r.Skills, DisplaySeparator) }
func (r ResumeRecord) AbilityText() string   { return strings.Join(r.Abilities, DisplaySeparator) }
func (r ResumeRecord) EducationText() string { return strings.Join(r.Education, DisplaySeparator) }

// FlatRecord is the display form of a record returned by the extraction API.
type FlatRecord struct {
	ID         string `json:"id"`
	ResumeStr  string `json:"resume_str,omitempty"`
	Name       string `json:"name"`
	Experience string `json:"experience"`
	Skill      string `json:"skill"`
	Ability    string `json:"ability"`
	Program    string `json:"program"`
}

func (r ResumeRecord) Flat() FlatRecord {
	return FlatRecord{
		ID:         r.ID.String(),
		ResumeStr:  r.RawText,
		Name:       r.Name,
		Experience: r.ExperienceText(),
		Skill:      r.SkillText(),
		Ability:    r.AbilityText(),
		Program:    r.EducationText(),
	}
}

// Extractor turns resume text into records.
type Extractor struct {
	seg   *Segmenter
	gate  *LanguageGate
	newID func() uuid.UUID
}

type ExtractorOption func(*Extractor)

// WithLanguageGate enables the language check for decoded documents.
func WithLanguageGate(g *LanguageGate) ExtractorOption {
	return func(e *Extractor) { e.gate = g }
}

func WithIDSource(newID func() uuid.UUID) ExtractorOption {
	return func(e *Extractor) { e.newID = newID }
}

func NewExtractor(seg *Segmenter, opts ...ExtractorOption) *Extractor {
	if seg == nil {
		seg = NewSegmenter()
	}
	e := &Extractor{seg: seg, newID: uuid.New}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromText extracts a record from text the caller already has.
func (e *Extractor) FromText(raw string) ResumeRecord {
	cleaned := Clean(raw)
	sections := e.seg.Segment(Lines(cleaned))
	return ResumeRecord{
		ID:         e.newID(),
		RawText:    cleaned,
		Name:       sections.Name,
		Experience: sections.Experience,
		Skills:     sections.Skills,
		Education:  sections.Education,
		Abilities:  sections.Abilities,
	}
}

// FromDocument extracts a record from decoded document text, applying the
// language gate first when one is configured.
func (e *Extractor) FromDocument(text string) (ResumeRecord, error) {
	if e.gate != nil {
		if err := e.gate.Check(text); err != nil {
			return ResumeRecord{}, err
		}
	}
	return e.FromText(text), nil
}
