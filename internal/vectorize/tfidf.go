// Package vectorize holds the text-to-vector models the ranker can use.
package vectorize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
)

// tokens of two or more letters, digits or underscores
var tfidfTokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDF is a fitted term-frequency/inverse-document-frequency model loaded
// from disk. It is immutable after loading.
type TFIDF struct {
	vocab     map[string]int
	idf       []float64
	lowercase bool
	sublinear bool
	l2        bool
	ngramMin  int
	ngramMax  int
	stop      map[string]struct{}
}

type tfidfFile struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Lowercase   *bool          `json:"lowercase"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
	NgramRange  []int          `json:"ngram_range"`
	StopWords   []string       `json:"stop_words"`
}

func LoadTFIDF(r io.Reader) (*TFIDF, error) {
	var f tfidfFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode tfidf model: %w", err)
	}
	if len(f.Vocabulary) == 0 {
		return nil, fmt.Errorf("tfidf model has an empty vocabulary")
	}
	if len(f.IDF) != len(f.Vocabulary) {
		return nil, fmt.Errorf("tfidf model has %d idf weights for %d terms", len(f.IDF), len(f.Vocabulary))
	}
	for term, idx := range f.Vocabulary {
		if idx < 0 || idx >= len(f.IDF) {
			return nil, fmt.Errorf("tfidf term %q has index %d out of range", term, idx)
		}
	}

	m := &TFIDF{
		vocab:     f.Vocabulary,
		idf:       f.IDF,
		lowercase: f.Lowercase == nil || *f.Lowercase,
		sublinear: f.SublinearTF,
		ngramMin:  1,
		ngramMax:  1,
		stop:      make(map[string]struct{}, len(f.StopWords)),
	}
	switch f.Norm {
	case "", "l2":
		m.l2 = true
	case "none":
	default:
		return nil, fmt.Errorf("unsupported tfidf norm %q", f.Norm)
	}
	if len(f.NgramRange) == 2 {
		if f.NgramRange[0] < 1 || f.NgramRange[1] < f.NgramRange[0] {
			return nil, fmt.Errorf("invalid ngram range %v", f.NgramRange)
		}
		m.ngramMin, m.ngramMax = f.NgramRange[0], f.NgramRange[1]
	}
	for _, w := range f.StopWords {
		m.stop[w] = struct{}{}
	}
	return m, nil
}

func (m *TFIDF) Dim() int { return len(m.idf) }

func (m *TFIDF) Vectorize(_ context.Context, text string) ([]float32, error) {
	return m.Transform(text), nil
}

// Transform maps text to its weighted, optionally L2-normalized term vector.
func (m *TFIDF) Transform(text string) []float32 {
	counts := make(map[int]float64)
	for _, term := range m.terms(text) {
		if idx, ok := m.vocab[term]; ok {
			counts[idx]++
		}
	}

	weights := make([]float64, len(m.idf))
	var sumSq float64
	for idx, tf := range counts {
		if m.sublinear {
			tf = 1 + math.Log(tf)
		}
		w := tf * m.idf[idx]
		weights[idx] = w
		sumSq += w * w
	}

	scale := 1.0
	if m.l2 && sumSq > 0 {
		scale = 1 / math.Sqrt(sumSq)
	}
	vec := make([]float32, len(weights))
	for i, w := range weights {
		vec[i] = float32(w * scale)
	}
	return vec
}

func (m *TFIDF) terms(text string) []string {
	if m.lowercase {
		text = strings.ToLower(text)
	}
	var tokens []string
	for _, tok := range tfidfTokenRe.FindAllString(text, -1) {
		if _, skip := m.stop[tok]; !skip {
			tokens = append(tokens, tok)
		}
	}

	var terms []string
	for n := m.ngramMin; n <= m.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
