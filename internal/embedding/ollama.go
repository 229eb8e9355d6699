package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/logger"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
	defaultMaxRetries  = 3
)

// Ollama calls the Ollama embeddings API.
type Ollama struct {
	baseURL    string
	model      string
	maxRetries int
	client     *http.Client
	logger     *zap.Logger

	newBackOff func() backoff.BackOff
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewOllama(baseURL, model string, maxRetries int, log *zap.Logger) *Ollama {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultOllamaModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Ollama{
		baseURL:    baseURL,
		model:      model,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: 60 * time.Second},
		logger:     logger.WithCommonFields(log, ProviderOllama, model),
		newBackOff: func() backoff.BackOff {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = 500 * time.Millisecond
			expo.MaxElapsedTime = time.Minute
			return expo
		},
	}
}

func (o *Ollama) Model() string {
	return o.model
}

// Embed posts text to /api/embeddings. Transport errors, 429 and 5xx are
// retried; any other non-200 status fails immediately.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := o.baseURL + "/api/embeddings"
	attempt := 0

	var out ollamaResponse
	op := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			o.logger.Warn("embedding request failed", zap.Int("attempt", attempt), zap.Error(err))
			return fmt.Errorf("call ollama: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			o.logger.Warn("embedding request rejected, retrying",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			return fmt.Errorf("ollama returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, snippet(resp.Body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), uint64(o.maxRetries-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}

	if len(out.Embedding) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}

	o.logger.Debug("embedding computed", zap.Int("dimensions", len(out.Embedding)), zap.Int("attempts", attempt))

	return out.Embedding, nil
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
