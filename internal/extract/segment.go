package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SectionState is the block state of a section kind during one scan.
type SectionState int

const (
	Outside SectionState = iota
	InsideSkill
	InsideEducation
)

func (s SectionState) String() string {
	switch s {
	case InsideSkill:
		return "inside-skill"
	case InsideEducation:
		return "inside-education"
	default:
		return "outside"
	}
}

type blockEvent int

const (
	eventNone blockEvent = iota
	eventEnter
	eventExit
	eventContent
)

// blockTracker is the transition table of one block section kind:
//
//	any state + start keyword      -> inside (enter)
//	inside    + stop keyword       -> Outside (exit)
//	inside    + other line         -> inside (content)
//	Outside   + other line         -> Outside
type blockTracker struct {
	inside SectionState
	start  []string
	stop   []string
	state  SectionState
}

func (b *blockTracker) step(lower string) blockEvent {
	if containsAny(lower, b.start) {
		b.state = b.inside
		return eventEnter
	}
	if b.state != b.inside {
		return eventNone
	}
	if containsAny(lower, b.stop) {
		b.state = Outside
		return eventExit
	}
	return eventContent
}

// ExperienceEntry is a role line and the months it spans.
type ExperienceEntry struct {
	RoleLine string `json:"role_line"`
	Months   int    `json:"months"`
}

func (e ExperienceEntry) String() string {
	return fmt.Sprintf("%s [%d months]", e.RoleLine, e.Months)
}

// Sections is everything a single scan harvests from a resume.
type Sections struct {
	Name       string
	Skills     []string
	Education  []string
	Experience []ExperienceEntry
	Abilities  []string
}

// Entity is a named entity reported by an EntityRecognizer.
type Entity struct {
	Text  string
	Label string
}

// EntityRecognizer finds named entities in text. It backs up the name
// heuristic when no header line qualifies.
type EntityRecognizer interface {
	Entities(text string) ([]Entity, error)
}

const (
	UnknownName     = "Unknown"
	nameWindow      = 5
	experienceReach = 3
)

// Segmenter scans normalized lines and routes them to the section extractors.
type Segmenter struct {
	kw       Keywords
	now      func() time.Time
	entities EntityRecognizer
	log      zerolog.Logger
}

type SegmenterOption func(*Segmenter)

func WithKeywords(kw Keywords) SegmenterOption {
	return func(s *Segmenter) { s.kw = kw }
}

// WithClock fixes the time "Present" resolves to.
func WithClock(now func() time.Time) SegmenterOption {
	return func(s *Segmenter) { s.now = now }
}

func WithEntityRecognizer(r EntityRecognizer) SegmenterOption {
	return func(s *Segmenter) { s.entities = r }
}

func WithLogger(l zerolog.Logger) SegmenterOption {
	return func(s *Segmenter) { s.log = l }
}

func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		kw:  DefaultKeywords(),
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment runs every section extractor over lines in a single pass.
func (s *Segmenter) Segment(lines []string) Sections {
	now := s.now()
	skills := s.newSkillCollector()
	education := s.newEducationCollector(now)
	experience := &experienceCollector{roles: s.kw.Roles, now: now, log: s.log}
	abilities := &abilityCollector{actions: s.kw.Actions}

	scan(lines, skills, education, experience, abilities)

	return Sections{
		Name:       s.Name(lines),
		Skills:     skills.result(),
		Education:  education.entries,
		Experience: experience.entries,
		Abilities:  abilities.entries,
	}
}

func (s *Segmenter) Skills(lines []string) []string {
	c := s.newSkillCollector()
	scan(lines, c)
	return c.result()
}

func (s *Segmenter) Education(lines []string) []string {
	c := s.newEducationCollector(s.now())
	scan(lines, c)
	return c.entries
}

func (s *Segmenter) Experience(lines []string) []ExperienceEntry {
	c := &experienceCollector{roles: s.kw.Roles, now: s.now(), log: s.log}
	scan(lines, c)
	return c.entries
}

func (s *Segmenter) Abilities(lines []string) []string {
	c := &abilityCollector{actions: s.kw.Actions}
	scan(lines, c)
	return c.entries
}

// Name returns the first header line without digits, then the first person
// entity in the header, then UnknownName.
func (s *Segmenter) Name(lines []string) string {
	header := lines[:min(nameWindow, len(lines))]
	for _, line := range header {
		line = strings.TrimSpace(line)
		if line != "" && !strings.ContainsAny(line, "0123456789") {
			return line
		}
	}

	if s.entities == nil || len(header) == 0 {
		return UnknownName
	}
	ents, err := s.entities.Entities(strings.Join(header, "\n"))
	if err != nil {
		s.log.Debug().Err(err).Msg("entity recognition failed")
		return UnknownName
	}
	for _, e := range ents {
		if e.Label == "PERSON" && strings.TrimSpace(e.Text) != "" {
			return strings.TrimSpace(e.Text)
		}
	}
	return UnknownName
}

type collector interface {
	observe(i int, lines []string, lower string)
}

func scan(lines []string, collectors ...collector) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, c := range collectors {
			c.observe(i, lines, lower)
		}
	}
}

var skillTokenRe = regexp.MustCompile(`\b[a-zA-Z0-9+#.]+\b`)

type skillCollector struct {
	block  blockTracker
	tokens map[string]struct{}
}

func (s *Segmenter) newSkillCollector() *skillCollector {
	return &skillCollector{
		block:  blockTracker{inside: InsideSkill, start: s.kw.SkillStart, stop: s.kw.SkillStop},
		tokens: make(map[string]struct{}),
	}
}

func (c *skillCollector) observe(_ int, _ []string, lower string) {
	if c.block.step(lower) != eventContent {
		return
	}
	for _, tok := range skillTokenRe.FindAllString(lower, -1) {
		c.tokens[strings.TrimSpace(tok)] = struct{}{}
	}
}

func (c *skillCollector) result() []string {
	out := make([]string, 0, len(c.tokens))
	for tok := range c.tokens {
		if tok == "" || tok == "and" {
			continue
		}
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

type educationCollector struct {
	block     blockTracker
	now       time.Time
	entries   []string
	startYear int
}

func (s *Segmenter) newEducationCollector(now time.Time) *educationCollector {
	return &educationCollector{
		block: blockTracker{inside: InsideEducation, start: s.kw.EducationStart, stop: s.kw.EducationStop},
		now:   now,
	}
}

func (c *educationCollector) observe(i int, lines []string, lower string) {
	line := strings.TrimSpace(lines[i])
	switch c.block.step(lower) {
	case eventEnter:
		c.entries = append(c.entries, line)
		// start lines like "University X 2018" carry the start year
		c.pairYear(line)
	case eventContent:
		c.pairYear(line)
	}
}

// pairYear pairs the first and second year seen inside the block as start
// and end, whatever they refer to.
func (c *educationCollector) pairYear(line string) {
	year, ok := FindYear(line)
	if !ok {
		return
	}
	if c.startYear == 0 {
		c.startYear = year
		return
	}
	months := MonthsOrZero(fmt.Sprintf("Jan %d", c.startYear), fmt.Sprintf("Dec %d", year), c.now)
	c.entries = append(c.entries, fmt.Sprintf("%s [%d months]", line, months))
	c.startYear = 0
}

type experienceCollector struct {
	roles   []string
	now     time.Time
	log     zerolog.Logger
	entries []ExperienceEntry
}

func (c *experienceCollector) observe(i int, lines []string, lower string) {
	if !containsAny(lower, c.roles) {
		return
	}
	window := strings.Join(lines[i:min(i+experienceReach, len(lines))], "\n")
	dates := FindDateTokens(window)
	if len(dates) == 0 {
		return
	}

	start, end := dates[0].String(), "Present"
	if len(dates) > 1 {
		end = dates[1].String()
	}
	months, err := MonthsBetween(start, end, c.now)
	if err != nil {
		c.log.Debug().Err(err).Str("line", lines[i]).Msg("experience date skipped")
		return
	}
	if months >= 1 {
		c.entries = append(c.entries, ExperienceEntry{RoleLine: strings.TrimSpace(lines[i]), Months: months})
	}
}

type abilityCollector struct {
	actions []string
	entries []string
}

func (c *abilityCollector) observe(i int, lines []string, lower string) {
	if containsAny(lower, c.actions) {
		c.entries = append(c.entries, strings.TrimSpace(lines[i]))
	}
}
