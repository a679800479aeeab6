package insight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// Generator produces an InsightRecord for a batch of tagged entries.
type Generator interface {
	Generate(ctx context.Context, batch Batch) (model.InsightRecord, error)
}

// Config configures the HTTP generator client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

// HTTPGenerator talks to the external insight-generation service. Transient
// failures (timeouts, 429, 5xx) are retried with exponential backoff up to
// the attempt ceiling; everything else is a typed GeneratorError.
type HTTPGenerator struct {
	cfg        Config
	httpClient *http.Client
}

// request/response are the generator wire contract.

type requestEntry struct {
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
	Contexts  []string `json:"contexts,omitempty"`
	Text      string   `json:"text"`
}

type generateRequest struct {
	Model   string         `json:"model,omitempty"`
	Entries []requestEntry `json:"entries"`
}

type generateResponse struct {
	Summary  string   `json:"summary"`
	Contexts []string `json:"contexts,omitempty"`
	Error    *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewHTTPGenerator creates a generator client.
func NewHTTPGenerator(cfg Config) *HTTPGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 4
	}
	return &HTTPGenerator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate sends one batch and returns the generated record or a typed
// failure once retries are exhausted.
func (g *HTTPGenerator) Generate(ctx context.Context, batch Batch) (model.InsightRecord, error) {
	body, err := g.encodeRequest(batch)
	if err != nil {
		return model.InsightRecord{}, &model.GeneratorError{Message: fmt.Sprintf("encode request: %v", err)}
	}

	var lastErr *model.GeneratorError
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoffDelay(attempt, lastErr)
			util.LogDebugf("Generator retry %d/%d in %v (last error: %v)",
				attempt, g.cfg.MaxAttempts, wait, lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return model.InsightRecord{}, &model.GeneratorError{Message: ctx.Err().Error(), Transient: true}
			case <-t.C:
			}
		}

		rec, genErr := g.doRequest(ctx, batch, body)
		if genErr == nil {
			return rec, nil
		}
		if !genErr.Transient {
			return model.InsightRecord{}, genErr
		}
		lastErr = genErr
	}

	return model.InsightRecord{}, lastErr
}

// GenerateWithFallback degrades to a raw pass-through record when the
// service stays unavailable. The returned flag reports degradation; this
// path never fails the cycle.
func (g *HTTPGenerator) GenerateWithFallback(ctx context.Context, batch Batch) (model.InsightRecord, bool) {
	rec, err := g.Generate(ctx, batch)
	if err == nil {
		return rec, false
	}
	util.LogWarnf("Generator unavailable, emitting raw pass-through for %d entries: %v",
		len(batch.Entries), err)
	return batch.RawRecord(), true
}

func (g *HTTPGenerator) encodeRequest(batch Batch) ([]byte, error) {
	req := generateRequest{Model: g.cfg.Model}
	for _, entry := range batch.Entries {
		req.Entries = append(req.Entries, requestEntry{
			Timestamp: entry.Timestamp.Format(time.RFC3339),
			Source:    entry.SourceFile,
			Contexts:  entry.Contexts,
			Text:      entry.RawText,
		})
	}
	return sonic.Marshal(req)
}

func (g *HTTPGenerator) doRequest(ctx context.Context, batch Batch, body []byte) (model.InsightRecord, *model.GeneratorError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return model.InsightRecord{}, &model.GeneratorError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are retryable.
		return model.InsightRecord{}, &model.GeneratorError{Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.InsightRecord{}, &model.GeneratorError{Message: err.Error(), Transient: true}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		genErr := &model.GeneratorError{
			StatusCode: resp.StatusCode,
			Message:    truncateBody(respBody),
			Transient:  true,
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				genErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return model.InsightRecord{}, genErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.InsightRecord{}, &model.GeneratorError{
			StatusCode: resp.StatusCode,
			Message:    truncateBody(respBody),
		}
	}

	var parsed generateResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return model.InsightRecord{}, &model.GeneratorError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if parsed.Error != nil {
		return model.InsightRecord{}, &model.GeneratorError{Message: parsed.Error.Message}
	}

	contexts := parsed.Contexts
	if len(contexts) == 0 {
		contexts = batch.Contexts()
	}

	return model.InsightRecord{
		PeriodStart:  batch.PeriodStart(),
		PeriodEnd:    batch.PeriodEnd(),
		Contexts:     model.SortSet(contexts),
		Summary:      parsed.Summary,
		CitedEntries: batch.CitedEntries(),
	}, nil
}

func backoffDelay(attempt int, lastErr *model.GeneratorError) time.Duration {
	if lastErr != nil && lastErr.RetryAfter > 0 {
		return lastErr.RetryAfter
	}
	// 1s, 2s, 4s, ...
	return time.Duration(1<<(attempt-2)) * time.Second
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

// IsTransient reports whether err is a retryable generator failure.
func IsTransient(err error) bool {
	var genErr *model.GeneratorError
	if errors.As(err, &genErr) {
		return genErr.Transient
	}
	return false
}
