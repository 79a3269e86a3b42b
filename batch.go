package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/muhammadolammi/cvranker/internal/document"
	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/ranking"
)

type batchResult struct {
	CVIndex         int                      `json:"cv_index"`
	File            string                   `json:"file"`
	Name            string                   `json:"name"`
	Recommendations []ranking.Recommendation `json:"recommendations"`
}

// runBatch extracts every supported file in dir, ranks them in one batch and
// writes the results to w as JSON. Files that cannot be read are skipped.
func runBatch(ctx context.Context, dir string, ext *extract.Extractor, ranker *ranking.Ranker, topN int, w io.Writer, log zerolog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read batch dir: %w", err)
	}

	var (
		files   []string
		records []extract.ResumeRecord
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		mime := document.MimeFromFilename(entry.Name())
		if mime == "" {
			log.Debug().Str("file", path).Msg("skipping unsupported file")
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("failed to read file")
			continue
		}
		text, err := document.Decode(mime, data)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("text extraction failed")
			continue
		}
		rec, err := ext.FromDocument(text)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("resume rejected")
			continue
		}
		files = append(files, entry.Name())
		records = append(records, rec)
	}
	if len(records) == 0 {
		return fmt.Errorf("no readable resumes in %s", dir)
	}

	queries := make([]ranking.Query, len(records))
	for i, rec := range records {
		queries[i] = ranking.QueryFromRecord(rec)
	}
	results, err := ranker.Rank(ctx, queries, topN)
	if err != nil {
		return err
	}

	out := make([]batchResult, len(results))
	for i, res := range results {
		out[i] = batchResult{
			CVIndex:         res.CVIndex,
			File:            files[i],
			Name:            records[i].Name,
			Recommendations: res.Recommendations,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
