// Package intent derives a buying-intent label for a lead from a chat
// completion model's free-text answer.
package intent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// FallbackText replaces the model reply when the call fails. It contains
// "High", so failed calls are labelled High with full points. Fallback on the
// Classification tells such results apart from real High answers.
const FallbackText = "High"

// Intent points awarded per label.
const (
	PointsHigh   = 50
	PointsMedium = 30
	PointsLow    = 10
)

var (
	errNoResponse = errors.New("model produced no response")
	errNoContent  = errors.New("model response has no content")
)

// Classification is the classifier outcome for one lead.
type Classification struct {
	Points    int
	Label     domain.Intent
	Rationale string
	Fallback  bool
}

// Options tune the call policy.
type Options struct {
	// Model overrides the model name of the LLM when set.
	Model string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts is the number of calls made before falling back; minimum 1.
	MaxAttempts int
	// RetryBaseDelay scales the quadratic backoff between attempts.
	RetryBaseDelay time.Duration
}

// Classifier calls an LLM once per lead and maps its answer to an intent label.
type Classifier struct {
	llm  model.LLM
	opts Options
	log  *logger.Logger
}

// New creates a classifier.
func New(llm model.LLM, opts Options, log *logger.Logger) *Classifier {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Classifier{llm: llm, opts: opts, log: log}
}

// MapText maps a model reply to points and label. Matching is a
// case-sensitive substring search; High is checked before Medium, and
// anything else is Low.
func MapText(text string) (int, domain.Intent) {
	switch {
	case strings.Contains(text, string(domain.IntentHigh)):
		return PointsHigh, domain.IntentHigh
	case strings.Contains(text, string(domain.IntentMedium)):
		return PointsMedium, domain.IntentMedium
	default:
		return PointsLow, domain.IntentLow
	}
}

// Classify never returns an error: failures are absorbed into the fallback.
func (c *Classifier) Classify(ctx context.Context, lead domain.Lead, offer domain.Offer) Classification {
	text, attempts, err := c.complete(ctx, BuildPrompt(lead, offer))
	fallback := false
	if err != nil {
		c.log.WithContext(ctx).IntentFallback(lead.Name, attempts, err)
		metrics.IntentFallbacks.Inc()
		text = FallbackText
		fallback = true
	}

	points, label := MapText(text)
	return Classification{
		Points:    points,
		Label:     label,
		Rationale: text,
		Fallback:  fallback,
	}
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, int, error) {
	var lastErr error
	attempt := 0
	for attempt < c.opts.MaxAttempts {
		attempt++
		if err := ctx.Err(); err != nil {
			return "", attempt, err
		}

		text, err := c.callOnce(ctx, prompt)
		if err == nil {
			return text, attempt, nil
		}
		lastErr = err

		if attempt < c.opts.MaxAttempts {
			delay := time.Duration(attempt*attempt) * c.opts.RetryBaseDelay
			select {
			case <-ctx.Done():
				return "", attempt, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return "", attempt, lastErr
}

func (c *Classifier) callOnce(ctx context.Context, prompt string) (string, error) {
	if c.llm == nil {
		return "", errors.New("no language model configured")
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req := &model.LLMRequest{
		Model:    c.opts.Model,
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
		},
	}

	start := time.Now()
	text, err := collectText(c.llm.GenerateContent(ctx, req, false))
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.IntentRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}
	return text, nil
}

func collectText(responses iter.Seq2[*model.LLMResponse, error]) (string, error) {
	var out strings.Builder
	got, hasContent := false, false
	for resp, err := range responses {
		if err != nil {
			return "", err
		}
		if resp == nil {
			continue
		}
		got = true
		if resp.Content == nil {
			continue
		}
		hasContent = true
		for _, part := range resp.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
	}
	if !got {
		return "", errNoResponse
	}
	if !hasContent {
		return "", errNoContent
	}
	return strings.TrimSpace(out.String()), nil
}
