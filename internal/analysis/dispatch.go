package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/rxguard/internal/llm"
	"github.com/Skufu/rxguard/internal/metrics"
)

// Attempt is one step of an ordered fallback chain.
type Attempt[T any] func(ctx context.Context) (T, error)

// FirstSuccess runs attempts in order and returns the first success.
// Later attempts are never started once one succeeds. If all fail, the
// last error is returned. A cancelled ctx stops the chain.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T]) (T, error) {
	var zero T
	lastErr := errors.New("no attempts configured")
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := attempt(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

// Dispatcher walks the candidate models of one provider.
type Dispatcher struct {
	client     llm.Client
	candidates []string
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewDispatcher(client llm.Client, candidates []string, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	list := make([]string, len(candidates))
	copy(list, candidates)
	return &Dispatcher{
		client:     client,
		candidates: list,
		timeout:    timeout,
		logger:     logger,
	}
}

// Dispatch sends prompt and images to each candidate until one returns
// parseable JSON.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string, images []llm.Image) (RawResult, error) {
	req := llm.Request{Prompt: prompt, Images: images}

	attempts := make([]Attempt[RawResult], 0, len(d.candidates))
	for _, model := range d.candidates {
		attempts = append(attempts, d.attempt(model, req))
	}

	raw, err := FirstSuccess(ctx, attempts)
	if err != nil {
		return RawResult{}, fmt.Errorf("%w: %w", ErrAllModelsFailed, err)
	}
	return raw, nil
}

func (d *Dispatcher) attempt(model string, req llm.Request) Attempt[RawResult] {
	return func(ctx context.Context) (RawResult, error) {
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		start := time.Now()
		d.logger.Debug().Str("model", model).Str("provider", d.client.SourceName()).Msg("attempting analysis")

		text, err := d.client.Generate(ctx, model, req)
		var raw RawResult
		if err == nil {
			raw, err = parseRaw(text)
		}
		if err != nil {
			metrics.ModelAttemptsTotal.WithLabelValues(model, "failure").Inc()
			d.logger.Warn().Err(err).Str("model", model).Dur("latency", time.Since(start)).Msg("model attempt failed")
			return RawResult{}, err
		}

		metrics.ModelAttemptsTotal.WithLabelValues(model, "success").Inc()
		d.logger.Info().Str("model", model).Dur("latency", time.Since(start)).Msg("model attempt succeeded")
		return raw, nil
	}
}

func parseRaw(text string) (RawResult, error) {
	clean := StripCodeFence(text)
	if clean == "" {
		return RawResult{}, errors.New("empty model response")
	}
	var raw RawResult
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return RawResult{}, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	return raw, nil
}

// StripCodeFence removes a leading ``` or ```json marker and a trailing
// ``` marker, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
