package ranking

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const titlesCSV = "id,title,description\n" +
	"1,Data Scientist,\"models, statistics\"\n" +
	"2, Backend Engineer ,apis\n" +
	"3,Product Manager,roadmaps\n"

func TestLoadCorpus(t *testing.T) {
	matrix := `{"dim": 3, "rows": [
		{"values": [1, 0, 0]},
		{"indices": [1, 2], "values": [1, 0.5]},
		{"indices": [], "values": []}
	]}`

	c, err := LoadCorpus(strings.NewReader(titlesCSV), strings.NewReader(matrix))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Dim())
	assert.Equal(t, "Backend Engineer", c.Title(1))
	assert.Equal(t, UnknownTitle, c.Title(3))
	assert.Equal(t, UnknownTitle, c.Title(-1))

	sims, err := c.Similarities([]float32{0, 1, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sims[1], 1e-9)
	assert.Equal(t, 0.0, sims[0])
	assert.Equal(t, 0.0, sims[2], "zero row scores zero")
}

func TestLoadCorpusRowCountMismatch(t *testing.T) {
	matrix := `{"dim": 2, "rows": [{"values": [1, 0]}, {"values": [0, 1]}]}`

	_, err := LoadCorpus(strings.NewReader(titlesCSV), strings.NewReader(matrix))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestReadTitlesRequiresTitleColumn(t *testing.T) {
	_, err := ReadTitles(strings.NewReader("id,name\n1,x\n"))
	assert.True(t, errors.Is(err, ErrModelUnavailable))

	titles, err := ReadTitles(strings.NewReader("\ufeffTitle\nAnalyst\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Analyst"}, titles)
}

func TestReadMatrixRejectsBadRows(t *testing.T) {
	bad := []string{
		`not json`,
		`{"dim": 0, "rows": []}`,
		`{"dim": 2, "rows": [{"values": [1]}]}`,
		`{"dim": 2, "rows": [{"indices": [0, 1], "values": [1]}]}`,
		`{"dim": 2, "rows": [{"indices": [2], "values": [1]}]}`,
	}
	for _, doc := range bad {
		_, err := ReadMatrix(strings.NewReader(doc))
		assert.True(t, errors.Is(err, ErrModelUnavailable), doc)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
