package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"talentrank/internal/llm"
	"talentrank/internal/models"
)

// RetryPolicy is an exponential backoff schedule: base delay doubled per
// attempt, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<attempt)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// sleep waits for the backoff delay unless the context ends first.
// Swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BatchScorer drives one batch through prompt building, the provider call and
// response parsing. Provider-level retries (rate limit, transient failures)
// and parse re-asks are two separately tuned policies: their triggering
// conditions and sensible attempt counts are independent.
type BatchScorer struct {
	provider      llm.Provider
	promptBuilder *PromptBuilder
	parser        *ResponseParser
	callRetry     RetryPolicy
	parseAttempts int
}

func NewBatchScorer(provider llm.Provider, callRetry RetryPolicy, parseAttempts int) *BatchScorer {
	if callRetry.MaxAttempts < 1 {
		callRetry.MaxAttempts = 1
	}
	if parseAttempts < 1 {
		parseAttempts = 1
	}

	return &BatchScorer{
		provider:      provider,
		promptBuilder: NewPromptBuilder(),
		parser:        NewResponseParser(),
		callRetry:     callRetry,
		parseAttempts: parseAttempts,
	}
}

// BatchOutcome is the result of scoring one batch. Exactly one of Scored or
// Err is meaningful: a failed batch carries a single descriptive error string
// and nothing else. Failures never propagate as Go errors past the scorer.
type BatchOutcome struct {
	Scored []models.ScoredCandidate
	Err    string
}

func (o BatchOutcome) Failed() bool { return o.Err != "" }

// ScoreBatch scores one batch of candidates. batchNum is 1-based and only
// used to label the outcome.
func (s *BatchScorer) ScoreBatch(ctx context.Context, jobDescription string, batch []models.Candidate, batchNum int) BatchOutcome {
	prompt := s.promptBuilder.BuildScoringPrompt(jobDescription, batch)
	label := batchLabel(batchNum, batch)

	var lastParseErr *ParseError
	for attempt := 1; attempt <= s.parseAttempts; attempt++ {
		raw, err := s.callProviderWithRetry(ctx, prompt)
		if err != nil {
			return BatchOutcome{Err: fmt.Sprintf("%s: %v", label, err)}
		}

		scored, parseErr := s.parser.ParseScoredCandidates(raw, batch)
		if parseErr == nil {
			return BatchOutcome{Scored: scored}
		}

		var validationErr *ValidationError
		if errors.As(parseErr, &validationErr) {
			// Partial acceptance: unknown ids were dropped, the rest are good.
			log.Warnf("⚠️  %s: %v", label, validationErr)
			return BatchOutcome{Scored: scored}
		}

		errors.As(parseErr, &lastParseErr)
		log.Warnf("⚠️  %s: parse attempt %d/%d failed: %v", label, attempt, s.parseAttempts, parseErr)

		if attempt < s.parseAttempts {
			// Re-ask the model with the same prompt; it may well produce
			// valid output on a second try.
			continue
		}
	}

	return BatchOutcome{Err: fmt.Sprintf("%s: malformed JSON after %d attempts: %v", label, s.parseAttempts, lastParseErr)}
}

// callProviderWithRetry sends the prompt, backing off and retrying on rate
// limits and transient failures. Configuration errors and context
// cancellation abort immediately.
func (s *BatchScorer) callProviderWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < s.callRetry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.callRetry.Delay(attempt-1)); err != nil {
				return "", err
			}
		}

		raw, err := s.provider.Generate(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if llm.IsConfig(err) {
			return "", err
		}
		if !llm.IsRateLimit(err) && !llm.IsTransient(err) {
			// Context cancellation and anything else outside the retryable
			// taxonomy.
			return "", err
		}

		log.Warnf("⚠️  %s call attempt %d/%d failed: %v", s.provider.Name(), attempt+1, s.callRetry.MaxAttempts, err)
	}

	return "", fmt.Errorf("provider failed after %d attempts: %w", s.callRetry.MaxAttempts, lastErr)
}

func batchLabel(batchNum int, batch []models.Candidate) string {
	if len(batch) == 0 {
		return fmt.Sprintf("batch %d", batchNum)
	}
	return fmt.Sprintf("batch %d (ids %s..%s)", batchNum, batch[0].ID, batch[len(batch)-1].ID)
}
