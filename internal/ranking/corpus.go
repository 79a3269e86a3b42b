package ranking

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrModelUnavailable marks a reference corpus, matrix or vectorizer that
// could not be loaded. The process must not serve rankings after it.
var ErrModelUnavailable = errors.New("model unavailable")

const UnknownTitle = "Unknown"

// Corpus is the read-only reference set: one title per matrix row.
type Corpus struct {
	titles []string
	rows   [][]float32
	norms  []float64
	dim    int
}

func NewCorpus(titles []string, rows [][]float32) (*Corpus, error) {
	if len(titles) != len(rows) {
		return nil, fmt.Errorf("%w: %d titles but %d matrix rows", ErrModelUnavailable, len(titles), len(rows))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty reference corpus", ErrModelUnavailable)
	}

	dim := len(rows[0])
	norms := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrModelUnavailable, i, len(row), dim)
		}
		norms[i] = norm(row)
	}

	return &Corpus{titles: titles, rows: rows, norms: norms, dim: dim}, nil
}

// LoadCorpus reads the title CSV and the reference matrix and checks that
// they line up.
func LoadCorpus(titles, matrix io.Reader) (*Corpus, error) {
	t, err := ReadTitles(titles)
	if err != nil {
		return nil, err
	}
	rows, err := ReadMatrix(matrix)
	if err != nil {
		return nil, err
	}
	return NewCorpus(t, rows)
}

func (c *Corpus) Len() int { return len(c.titles) }
func (c *Corpus) Dim() int { return c.dim }

// Title returns the title at idx, or UnknownTitle when idx is out of range.
func (c *Corpus) Title(idx int) string {
	if idx < 0 || idx >= len(c.titles) {
		return UnknownTitle
	}
	return c.titles[idx]
}

// Similarities returns the cosine similarity of q against every row.
func (c *Corpus) Similarities(q []float32) ([]float64, error) {
	if len(q) != c.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, corpus has %d", ErrDimensionMismatch, len(q), c.dim)
	}
	qNorm := norm(q)
	sims := make([]float64, len(c.rows))
	for i, row := range c.rows {
		sims[i] = cosine(q, row, qNorm, c.norms[i])
	}
	return sims, nil
}

// ReadTitles reads a delimited file with a header row and returns its
// title column.
func ReadTitles(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read corpus header: %v", ErrModelUnavailable, err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), "title") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: corpus has no title column", ErrModelUnavailable)
	}

	var titles []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read corpus row %d: %v", ErrModelUnavailable, len(titles)+1, err)
		}
		title := ""
		if col < len(rec) {
			title = strings.TrimSpace(rec[col])
		}
		titles = append(titles, title)
	}
	return titles, nil
}

type matrixFile struct {
	Dim  int         `json:"dim"`
	Rows []matrixRow `json:"rows"`
}

// matrixRow is sparse when Indices is set, dense otherwise.
type matrixRow struct {
	Indices []int     `json:"indices,omitempty"`
	Values  []float32 `json:"values"`
}

// ReadMatrix decodes a reference matrix into dense rows.
func ReadMatrix(r io.Reader) ([][]float32, error) {
	var mf matrixFile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("%w: decode matrix: %v", ErrModelUnavailable, err)
	}
	if mf.Dim <= 0 {
		return nil, fmt.Errorf("%w: matrix dim must be positive", ErrModelUnavailable)
	}

	rows := make([][]float32, len(mf.Rows))
	for i, mr := range mf.Rows {
		if mr.Indices == nil {
			if len(mr.Values) != mf.Dim {
				return nil, fmt.Errorf("%w: dense row %d has %d values, want %d", ErrModelUnavailable, i, len(mr.Values), mf.Dim)
			}
			rows[i] = mr.Values
			continue
		}
		if len(mr.Indices) != len(mr.Values) {
			return nil, fmt.Errorf("%w: sparse row %d has %d indices and %d values", ErrModelUnavailable, i, len(mr.Indices), len(mr.Values))
		}
		row := make([]float32, mf.Dim)
		for j, idx := range mr.Indices {
			if idx < 0 || idx >= mf.Dim {
				return nil, fmt.Errorf("%w: sparse row %d index %d out of range", ErrModelUnavailable, i, idx)
			}
			row[idx] = mr.Values[j]
		}
		rows[i] = row
	}
	return rows, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// CosineSimilarity returns 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(a, b, norm(a), norm(b))
}
