package services

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"talentrank/internal/config"
	"talentrank/internal/llm"
	"talentrank/internal/models"
)

// ProgressFunc receives human-readable progress lines while a scoring run is
// underway.
type ProgressFunc func(message string)

// ProviderFactory builds the provider selected for a scoring run. Injected so
// tests can substitute fakes.
type ProviderFactory func(ctx context.Context, name string) (llm.Provider, error)

func DefaultProviderFactory(cfg *config.Config) ProviderFactory {
	return func(ctx context.Context, name string) (llm.Provider, error) {
		return llm.NewProvider(ctx, name, cfg)
	}
}

// ScoringService runs a full scoring request: partitions the candidate pool
// into batches, scores them concurrently and merges the outcomes.
type ScoringService interface {
	Score(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error)
}

type scoringService struct {
	cfg             config.ScoringConfig
	providerFactory ProviderFactory
	promptBuilder   *PromptBuilder
}

func NewScoringService(cfg config.ScoringConfig, factory ProviderFactory) ScoringService {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}

	return &scoringService{
		cfg:             cfg,
		providerFactory: factory,
		promptBuilder:   NewPromptBuilder(),
	}
}

// Score implements ScoringService. It returns an error only for run-level
// faults (unknown provider, missing credential); individual batch failures
// land in ScoringResult.Errors while sibling batches keep running.
func (s *scoringService) Score(ctx context.Context, jobDescription string, candidates []models.Candidate, providerName string, progress ProgressFunc) (*models.ScoringResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to score")
	}

	provider, err := s.providerFactory(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerName, err)
	}

	batches := s.partition(jobDescription, candidates)
	scorer := NewBatchScorer(provider, RetryPolicy{
		MaxAttempts: s.cfg.RetryMaxAttempts,
		BaseDelay:   s.cfg.RetryBaseDelay,
		MaxDelay:    s.cfg.RetryMaxDelay,
	}, s.cfg.ParseMaxAttempts)

	log.Infof("Scoring %d candidates in %d batches with %s", len(candidates), len(batches), provider.Name())

	// Batches are independent; fan out bounded by the concurrency limit so we
	// do not hammer the provider into rate limiting.
	outcomes := make([]BatchOutcome, len(batches))
	sem := make(chan struct{}, s.cfg.BatchConcurrency)
	var wg sync.WaitGroup

	for i := range batches {
		// Cooperative cancellation: stop dispatching once the run is
		// cancelled, but let in-flight batches finish.
		select {
		case <-ctx.Done():
			outcomes[i] = BatchOutcome{Err: fmt.Sprintf("batch %d: cancelled before dispatch", i+1)}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, batch []models.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			reportProgress(progress, fmt.Sprintf("Processing batch %d of %d... (%d candidates)", i+1, len(batches), len(batch)))
			outcomes[i] = scorer.ScoreBatch(ctx, jobDescription, batch, i+1)
		}(i, batches[i])
	}

	wg.Wait()

	// Merge by batch index, not completion order.
	result := &models.ScoringResult{
		ScoredCandidates: []models.ScoredCandidate{},
		Errors:           []string{},
	}
	for _, outcome := range outcomes {
		if outcome.Failed() {
			result.Errors = append(result.Errors, outcome.Err)
			continue
		}
		result.ScoredCandidates = append(result.ScoredCandidates, outcome.Scored...)
	}

	log.Infof("Scoring finished: %d candidates scored, %d batch errors", len(result.ScoredCandidates), len(result.Errors))
	return result, nil
}

// partition splits candidates into contiguous batches of the configured size
// (last batch may be smaller). A batch whose serialized prompt would blow the
// context budget is halved until it fits or is a single candidate.
func (s *scoringService) partition(jobDescription string, candidates []models.Candidate) [][]models.Candidate {
	var batches [][]models.Candidate
	for start := 0; start < len(candidates); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, s.fitToBudget(jobDescription, candidates[start:end])...)
	}
	return batches
}

func (s *scoringService) fitToBudget(jobDescription string, batch []models.Candidate) [][]models.Candidate {
	if s.cfg.MaxPromptChars <= 0 || len(batch) <= 1 {
		return [][]models.Candidate{batch}
	}
	if len(s.promptBuilder.BuildScoringPrompt(jobDescription, batch)) <= s.cfg.MaxPromptChars {
		return [][]models.Candidate{batch}
	}

	mid := len(batch) / 2
	return append(
		s.fitToBudget(jobDescription, batch[:mid]),
		s.fitToBudget(jobDescription, batch[mid:])...,
	)
}

func reportProgress(progress ProgressFunc, message string) {
	log.Info(message)
	if progress != nil {
		progress(message)
	}
}
