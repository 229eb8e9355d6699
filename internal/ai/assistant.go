package ai

import "context"

// Generator completes a prompt with a hosted model.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

