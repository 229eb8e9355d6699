// Package embedding holds the text embedding providers and the lazily
// initialised process-wide embedder.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Lazy builds its embedder on first use and reuses it for the rest of the
// process. A failed build is remembered and returned on every call.
type Lazy struct {
	build func() (Embedder, error)

	once     sync.Once
	embedder Embedder
	err      error
}

func NewLazy(build func() (Embedder, error)) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	l.once.Do(func() {
		if l.build == nil {
			l.err = errors.New("embedding provider is not configured")
			return
		}
		l.embedder, l.err = l.build()
		if l.err == nil && l.embedder == nil {
			l.err = errors.New("embedding provider returned no embedder")
		}
	})
	if l.err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", l.err)
	}

	return l.embedder.Embed(ctx, text)
}
