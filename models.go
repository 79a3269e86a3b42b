package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/muhammadolammi/cvranker/internal/database"
	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/metrics"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
)

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

type sessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (database.Session, error)
	GetResumesBySession(ctx context.Context, sessionID uuid.UUID) ([]database.Resume, error)
	UpdateSessionStatus(ctx context.Context, arg database.UpdateSessionStatusParams) error
	CreateOrUpdateRankingResults(ctx context.Context, arg database.CreateOrUpdateRankingResultsParams) error
}

type objectFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type statusPublisher interface {
	Publish(sessionID uuid.UUID, update map[string]any) error
}

type WorkerConfig struct {
	Store       sessionStore
	Fetcher     objectFetcher
	Publisher   statusPublisher
	Extractor   *extract.Extractor
	Ranker      *ranking.Ranker
	Reviewer    review.Reviewer
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
	RABBITMQUrl string
	TopN        int
}

// Session is the message published on the sessions queue.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	TopN      int       `json:"top_n"`
}

type ResumeOutcome struct {
	ResumeID        uuid.UUID                `json:"resume_id"`
	Filename        string                   `json:"original_filename"`
	Record          *extract.FlatRecord      `json:"record,omitempty"`
	Recommendations []ranking.Recommendation `json:"recommendations,omitempty"`
	Review          *review.Feedback         `json:"review,omitempty"`
	ReviewError     string                   `json:"review_error,omitempty"`
	// Error result entry
	IsErrorResult bool   `json:"is_error_result"`
	Error         string `json:"error,omitempty"`
}

type SessionResults struct {
	SessionID uuid.UUID       `json:"session_id"`
	Results   []ResumeOutcome `json:"results"`
}
