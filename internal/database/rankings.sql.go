package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const createOrUpdateRankingResults = `-- name: CreateOrUpdateRankingResults :exec
INSERT INTO ranking_results (
results, session_id)
VALUES ( $1, $2)
ON CONFLICT (session_id)
DO UPDATE SET
    results = EXCLUDED.results,
    updated_at = CURRENT_TIMESTAMP
`

type CreateOrUpdateRankingResultsParams struct {
	Results   json.RawMessage
	SessionID uuid.UUID
}

func (q *Queries) CreateOrUpdateRankingResults(ctx context.Context, arg CreateOrUpdateRankingResultsParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateRankingResults, arg.Results, arg.SessionID)
	return err
}

const getRankingResultsBySession = `-- name: GetRankingResultsBySession :one
SELECT id, session_id, results, created_at, updated_at FROM ranking_results WHERE session_id=$1
`

func (q *Queries) GetRankingResultsBySession(ctx context.Context, sessionID uuid.UUID) (RankingResult, error) {
	row := q.db.QueryRowContext(ctx, getRankingResultsBySession, sessionID)
	var i RankingResult
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.Results,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
