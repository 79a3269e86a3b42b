package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeywordsOverridesOnlyGivenSets(t *testing.T) {
	doc := `
roles:
  - Architect
  - " SRE "
actions: [Shipping]
`
	kw, err := LoadKeywords(strings.NewReader(doc))
	require.NoError(t, err)

	def := DefaultKeywords()
	assert.Equal(t, []string{"architect", "sre"}, kw.Roles)
	assert.Equal(t, []string{"shipping"}, kw.Actions)
	assert.Equal(t, def.SkillStart, kw.SkillStart)
	assert.Equal(t, def.EducationStop, kw.EducationStop)
}

func TestLoadKeywordsEmptyDocument(t *testing.T) {
	kw, err := LoadKeywords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywords(), kw)
}

func TestLoadKeywordsInvalid(t *testing.T) {
	_, err := LoadKeywords(strings.NewReader("roles: {"))
	assert.Error(t, err)
}

func TestCustomKeywordsDriveSegmenter(t *testing.T) {
	kw := DefaultKeywords()
	kw.Roles = []string{"architect"}
	seg := newTestSegmenter(WithKeywords(kw))

	got := seg.Experience([]string{"Solutions Architect", "Jan 2020 Jan 2021", "Software Engineer", "Jan 2018 Jan 2019"})

	assert.Equal(t, []ExperienceEntry{{RoleLine: "Solutions Architect", Months: 12}}, got)
}
