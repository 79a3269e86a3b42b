package extract

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `John Doe
john.doe@mail.com  +62 81234567890
Skills
Go, Python and SQL
Docker
Experience
Backend Developer at Acme
Jan 2019 - Dec 2020
Developing payment APIs
Education
Bachelor Degree in Computer Science 2014
Graduated 2018`

func TestExtractorFromText(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-3b4d-4c5e-8f70-112233445566")
	ext := NewExtractor(newTestSegmenter(), WithIDSource(func() uuid.UUID { return id }))

	rec := ext.FromText(sampleResume)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "John Doe", rec.Name)
	assert.Equal(t, []string{"docker", "go", "python", "sql"}, rec.Skills)
	assert.Equal(t, []ExperienceEntry{{RoleLine: "Backend Developer at Acme", Months: 23}}, rec.Experience)
	assert.Equal(t, []string{"Developing payment APIs"}, rec.Abilities)
	assert.Equal(t, []string{
		"Education",
		"Bachelor Degree in Computer Science 2014",
		"Graduated 2018 [59 months]",
	}, rec.Education)
	assert.Equal(t, Clean(sampleResume), rec.RawText)

	flat := rec.Flat()
	assert.Equal(t, id.String(), flat.ID)
	assert.Equal(t, "Backend Developer at Acme [23 months]", flat.Experience)
	assert.Equal(t, "docker, go, python, sql", flat.Skill)
	assert.Equal(t, "Developing payment APIs", flat.Ability)
	assert.Equal(t, "Education, Bachelor Degree in Computer Science 2014, Graduated 2018 [59 months]", flat.Program)
}

func TestExtractorGeneratesFreshIDs(t *testing.T) {
	ext := NewExtractor(newTestSegmenter())

	a := ext.FromText(sampleResume)
	b := ext.FromText(sampleResume)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestExtractorPartialRecordIsValid(t *testing.T) {
	ext := NewExtractor(newTestSegmenter())

	rec := ext.FromText("12345\n")

	assert.Equal(t, UnknownName, rec.Name)
	assert.Empty(t, rec.Skills)
	assert.Empty(t, rec.Experience)
	assert.Equal(t, "", rec.Flat().Skill)
}

func TestExtractorFromDocumentLanguageGate(t *testing.T) {
	ext := NewExtractor(newTestSegmenter(), WithLanguageGate(EnglishGate()))

	_, err := ext.FromDocument(spanishText)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLanguageRejected))

	rec, err := ext.FromDocument(englishText)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
}

func TestExtractorFromDocumentWithoutGate(t *testing.T) {
	ext := NewExtractor(newTestSegmenter())

	_, err := ext.FromDocument(spanishText)
	assert.NoError(t, err)
}
