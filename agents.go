package main

import (
	"context"
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

const (
	reviewerAgentName   = "cv reviewer"
	reviewerTemperature = 0.2
)

// newReviewerAgent builds the Gemini agent that writes CV feedback. The model
// is asked for JSON only; ParseFeedback still copes with fenced output.
func newReviewerAgent(ctx context.Context, apiKey, modelName string) (agent.Agent, error) {
	model, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model %s: %w", modelName, err)
	}

	reviewer, err := llmagent.New(llmagent.Config{
		Name:        reviewerAgentName,
		Model:       model,
		Description: "Reviews a CV and returns strengths, weaknesses and suggestions",
		Instruction: prompt(),
		GenerateContentConfig: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](reviewerTemperature),
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reviewer agent: %w", err)
	}
	return reviewer, nil
}
