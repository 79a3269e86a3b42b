package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/review"
)

const reviewerUserID = "cvranker"

// agentReviewer asks a Gemini agent for CV feedback. Each review runs in
// its own short-lived agent session.
type agentReviewer struct {
	runner   *runner.Runner
	sessions session.Service
	appName  string
	log      zerolog.Logger
}

func newAgentReviewer(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*agentReviewer, error) {
	reviewer, err := newReviewerAgent(ctx, apiKey, modelName)
	if err != nil {
		return nil, err
	}

	inMemoryService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        reviewer.Name(),
		Agent:          reviewer,
		SessionService: inMemoryService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &agentReviewer{runner: r, sessions: inMemoryService, appName: reviewer.Name(), log: log}, nil
}

func (a *agentReviewer) Review(ctx context.Context, rec extract.ResumeRecord) (review.Feedback, error) {
	created, err := a.sessions.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    reviewerUserID,
		SessionID: rec.ID.String(),
	})
	if err != nil {
		return review.Feedback{}, fmt.Errorf("failed to create agent session: %w", err)
	}
	defer a.deleteSession(context.WithoutCancel(ctx), created.Session)

	stream := a.runner.Run(ctx, created.Session.UserID(), created.Session.ID(), &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: review.BuildPrompt(rec)},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return review.Feedback{}, err
		}
		if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}
	if output == "" {
		return review.Feedback{}, fmt.Errorf("empty agent response")
	}
	return review.ParseFeedback(output)
}

func (a *agentReviewer) deleteSession(ctx context.Context, s session.Session) {
	err := a.sessions.Delete(ctx, &session.DeleteRequest{
		AppName:   s.AppName(),
		UserID:    s.UserID(),
		SessionID: s.ID(),
	})
	if err != nil {
		a.log.Debug().Err(err).Str("agent_session", s.ID()).Msg("failed to delete agent session")
	}
}
