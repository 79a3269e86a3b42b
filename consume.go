package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/cvranker/internal/database"
	"github.com/muhammadolammi/cvranker/internal/document"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
)

const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

func failedOutcome(out ResumeOutcome, format string, args ...any) ResumeOutcome {
	out.IsErrorResult = true
	out.Error = fmt.Sprintf(format, args...)
	return out
}

// processResume downloads, decodes, extracts and ranks one resume. Failures
// become error entries; they never abort the session.
func processResume(ctx context.Context, resume database.Resume, topN int, wc *WorkerConfig) ResumeOutcome {
	log := wc.Log.With().Str("object_key", resume.ObjectKey).Logger()
	out := ResumeOutcome{ResumeID: resume.ID, Filename: resume.OriginalFilename}

	// network failures are transient
	fileBytes, err := retry(3, func() ([]byte, error) {
		return wc.Fetcher.Fetch(ctx, resume.ObjectKey)
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to download resume after retries")
		return failedOutcome(out, "file download error: %v", err)
	}

	text, err := document.Decode(resume.Mime, fileBytes)
	if err != nil {
		log.Warn().Err(err).Msg("text extraction failed")
		return failedOutcome(out, "text extraction error: %v", err)
	}

	rec, err := wc.Extractor.FromDocument(text)
	if err != nil {
		log.Info().Err(err).Msg("resume rejected")
		return failedOutcome(out, "%v", err)
	}

	results, err := wc.Ranker.Rank(ctx, []ranking.Query{ranking.QueryFromRecord(rec)}, topN)
	if err != nil {
		log.Error().Err(err).Msg("ranking failed")
		return failedOutcome(out, "ranking error: %v", err)
	}
	flat := rec.Flat()
	flat.ResumeStr = ""
	out.Record = &flat
	out.Recommendations = results[0].Recommendations

	if wc.Reviewer != nil && review.Validate(rec) == nil {
		fb, err := retry(2, func() (review.Feedback, error) {
			return wc.Reviewer.Review(ctx, rec)
		})
		wc.Metrics.ObserveReview(err)
		if err != nil {
			log.Warn().Err(err).Msg("review failed after retries")
			out.ReviewError = err.Error()
		} else {
			out.Review = &fb
		}
	}
	return out
}

// sessionTopN prefers the top_n carried by the message, then the one stored
// on the session row, then the worker default.
func sessionTopN(ctx context.Context, currentSession Session, wc *WorkerConfig) int {
	if currentSession.TopN > 0 {
		return currentSession.TopN
	}
	stored, err := wc.Store.GetSession(ctx, currentSession.ID)
	if err != nil {
		wc.Log.Warn().Err(err).Str("session_id", currentSession.ID.String()).Msg("failed to load session, using default top_n")
		return wc.TopN
	}
	if stored.TopN > 0 {
		return int(stored.TopN)
	}
	return wc.TopN
}

// processSession ranks every resume in a session and stores the results.
func processSession(ctx context.Context, currentSession Session, wc *WorkerConfig) (*SessionResults, error) {
	resumes, err := wc.Store.GetResumesBySession(ctx, currentSession.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting resumes for session %s: %w", currentSession.ID, err)
	}

	topN := sessionTopN(ctx, currentSession, wc)

	results := &SessionResults{SessionID: currentSession.ID, Results: []ResumeOutcome{}}
	for _, resume := range resumes {
		outcome := processResume(ctx, resume, topN, wc)
		wc.Metrics.ObserveResume(outcome.IsErrorResult)
		results.Results = append(results.Results, outcome)
	}

	resultsJSON, err := json.Marshal(results.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ranking results: %w", err)
	}
	_, err = retry(3, func() (any, error) {
		return nil, wc.Store.CreateOrUpdateRankingResults(ctx, database.CreateOrUpdateRankingResultsParams{
			Results:   resultsJSON,
			SessionID: results.SessionID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save ranking results after retries: %w", err)
	}
	return results, nil
}

func (wc *WorkerConfig) setStatus(ctx context.Context, id uuid.UUID, status, message string) {
	if err := wc.Store.UpdateSessionStatus(ctx, database.UpdateSessionStatusParams{
		Status: status,
		ID:     id,
	}); err != nil {
		wc.Log.Error().Err(err).Str("session_id", id.String()).Str("status", status).Msg("failed to update session status")
	}
	if err := wc.Publisher.Publish(id, sessionUpdate(id, status, message)); err != nil {
		wc.Log.Error().Err(err).Str("session_id", id.String()).Msg("failed to publish update")
	}
}

// handleSession runs one queue message through the pipeline and returns the
// final session status.
func handleSession(ctx context.Context, body []byte, wc *WorkerConfig) string {
	currentSession := Session{}
	if err := json.Unmarshal(body, &currentSession); err != nil {
		wc.Log.Error().Err(err).Msg("error unmarshalling message body")
		if currentSession.ID != uuid.Nil {
			wc.setStatus(ctx, currentSession.ID, statusFailed, "ranking failed")
		}
		return statusFailed
	}
	if currentSession.ID == uuid.Nil {
		wc.Log.Error().Msg("session message without id")
		return statusFailed
	}

	log := wc.Log.With().Str("session_id", currentSession.ID.String()).Logger()
	wc.Metrics.SessionStarted()
	wc.setStatus(ctx, currentSession.ID, statusProcessing, "ranking started")

	if _, err := processSession(ctx, currentSession, wc); err != nil {
		log.Error().Err(err).Msg("session failed")
		wc.setStatus(ctx, currentSession.ID, statusFailed, "ranking failed")
		wc.Metrics.SessionFinished(statusFailed)
		return statusFailed
	}

	wc.setStatus(ctx, currentSession.ID, statusCompleted, "ranking completed")
	wc.Metrics.SessionFinished(statusCompleted)
	log.Info().Msg("session ranked")
	return statusCompleted
}

func worker(ctx context.Context, id int, wc *WorkerConfig, wg *sync.WaitGroup) {
	defer wg.Done()
	log := wc.Log.With().Int("worker", id+1).Logger()

	conn, err := amqp.Dial(wc.RABBITMQUrl)
	if err != nil {
		log.Error().Err(err).Msg("error dialling rabbitmq")
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("error connecting to rabbitmq channel")
		return
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		"sessions", // queue name
		true,       // durable (survives broker restarts)
		false,      // auto-delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to declare queue")
		return
	}
	if err := ch.Qos(1, 0, false); err != nil {
		log.Error().Err(err).Msg("failed to set prefetch")
		return
	}

	msgs, err := ch.Consume(
		"sessions", // queue name
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		log.Error().Err(err).Msg("error consuming rabbitmq message")
		return
	}

	log.Info().Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Msg("delivery channel closed")
				return
			}
			status := handleSession(ctx, msg.Body, wc)
			log.Debug().Str("status", status).Msg("message handled")
			if err := msg.Ack(false); err != nil {
				log.Error().Err(err).Msg("failed to ack message")
			}
		}
	}
}

// StartConsumerWorkerPool blocks until every worker has stopped.
func (wc *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		go worker(ctx, i, wc, &wg)
	}
	wg.Wait()
}
