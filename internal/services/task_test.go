package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentrank/internal/config"
	"talentrank/internal/models"
	"talentrank/internal/repositories"
)

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueJob(taskID uuid.UUID) {
	f.enqueued = append(f.enqueued, taskID)
}

type fakeScoring struct {
	fn func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error)
}

func (f *fakeScoring) Score(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
	return f.fn(ctx, jobDescription, candidates, provider, progress)
}

func testTaskConfig() config.TaskConfig {
	return config.TaskConfig{Retention: time.Hour, CleanupInterval: time.Minute}
}

func newTestManager() (TaskManager, repositories.TaskRepository, *fakeEnqueuer, *CancelRegistry) {
	repo := repositories.NewTaskRepository()
	enq := &fakeEnqueuer{}
	cancels := NewCancelRegistry()
	return NewTaskManager(repo, enq, cancels, testTaskConfig()), repo, enq, cancels
}

func TestTaskManager_Create(t *testing.T) {
	manager, repo, enq, _ := newTestManager()

	task, err := manager.Create("Go Engineer", []models.Candidate{
		{ID: "c1", Name: "Alice Smith"},
		{Name: "Bob Jones"}, // no id
	}, "openai")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, "openai", task.Provider)
	// Missing ids get positional fallbacks.
	assert.Equal(t, "c1", task.Candidates[0].ID)
	assert.Equal(t, "candidate_2", task.Candidates[1].ID)

	require.Len(t, enq.enqueued, 1)
	assert.Equal(t, task.ID, enq.enqueued[0])

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestTaskManager_CreateRequiresCandidates(t *testing.T) {
	manager, _, enq, _ := newTestManager()

	_, err := manager.Create("Go Engineer", nil, "openai")
	assert.Error(t, err)
	assert.Empty(t, enq.enqueued)
}

func TestTaskManager_GetUnknownTask(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, err := manager.Get(uuid.New())
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestTaskManager_DeleteIsIdempotentlyNotFound(t *testing.T) {
	manager, _, _, _ := newTestManager()

	task, err := manager.Create("Go Engineer", []models.Candidate{{Name: "Alice"}}, "openai")
	require.NoError(t, err)

	require.NoError(t, manager.Delete(task.ID))
	assert.ErrorIs(t, manager.Delete(task.ID), models.ErrTaskNotFound)

	_, err = manager.Get(task.ID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestTaskManager_DeleteCancelsRunningTask(t *testing.T) {
	manager, _, _, cancels := newTestManager()

	task, err := manager.Create("Go Engineer", []models.Candidate{{Name: "Alice"}}, "openai")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancels.register(task.ID, cancel)

	require.NoError(t, manager.Delete(task.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func runnerFixture(scoring ScoringService) (TaskRunner, repositories.TaskRepository, TaskManager) {
	repo := repositories.NewTaskRepository()
	cancels := NewCancelRegistry()
	manager := NewTaskManager(repo, &fakeEnqueuer{}, cancels, testTaskConfig())
	return NewTaskRunner(repo, scoring, cancels), repo, manager
}

func TestTaskRunner_CompletesTask(t *testing.T) {
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		progress("Processing batch 1 of 1... (1 candidates)")
		return &models.ScoringResult{
			ScoredCandidates: []models.ScoredCandidate{{ID: "c1", Name: "Alice", Score: 77, Highlights: []string{}}},
			Errors:           []string{},
		}, nil
	}}
	runner, repo, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1", Name: "Alice"}}, "openai")
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background(), task.ID))

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 77, stored.Result.ScoredCandidates[0].Score)
	assert.Empty(t, stored.Message)
}

func TestTaskRunner_PartialResultStillCompletes(t *testing.T) {
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		return &models.ScoringResult{
			ScoredCandidates: []models.ScoredCandidate{{ID: "c1", Score: 60, Highlights: []string{}}},
			Errors:           []string{"batch 2 (ids c11..c20): provider failed after 3 attempts: quota exceeded"},
		}, nil
	}}
	runner, repo, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), task.ID))

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Len(t, stored.Result.Errors, 1)
}

func TestTaskRunner_AllBatchesFailedFailsTask(t *testing.T) {
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		return &models.ScoringResult{
			ScoredCandidates: []models.ScoredCandidate{},
			Errors:           []string{"batch 1 (ids c1..c10): malformed JSON after 3 attempts"},
		}, nil
	}}
	runner, repo, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), task.ID))

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "all batches failed")
}

func TestTaskRunner_RunLevelErrorFailsTask(t *testing.T) {
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		return nil, fmt.Errorf("create gemini provider: GEMINI_API_KEY is not set")
	}}
	runner, repo, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "gemini")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), task.ID))

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "GEMINI_API_KEY")
}

func TestTaskRunner_SkipsDeletedTask(t *testing.T) {
	called := false
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		called = true
		return &models.ScoringResult{}, nil
	}}
	runner, _, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)
	require.NoError(t, manager.Delete(task.ID))

	require.NoError(t, runner.Run(context.Background(), task.ID))
	assert.False(t, called)
}

func TestTaskRunner_SkipsAlreadyProcessingTask(t *testing.T) {
	called := false
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		called = true
		return &models.ScoringResult{}, nil
	}}
	runner, repo, manager := runnerFixture(scoring)

	task, err := manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)
	require.NoError(t, repo.Transition(task.ID, models.StatusPending, models.StatusProcessing))

	require.NoError(t, runner.Run(context.Background(), task.ID))
	assert.False(t, called)
}

func TestTaskRunner_DiscardsResultOfTaskDeletedMidRun(t *testing.T) {
	repo := repositories.NewTaskRepository()
	cancels := NewCancelRegistry()
	manager := NewTaskManager(repo, &fakeEnqueuer{}, cancels, testTaskConfig())

	var task *models.Task
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		// Simulate a delete racing the run.
		require.NoError(t, manager.Delete(task.ID))
		return &models.ScoringResult{
			ScoredCandidates: []models.ScoredCandidate{{ID: "c1", Score: 50, Highlights: []string{}}},
			Errors:           []string{},
		}, nil
	}}
	runner := NewTaskRunner(repo, scoring, cancels)

	var err error
	task, err = manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background(), task.ID))

	_, err = repo.FindByID(task.ID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestTaskRunner_RecordsProgressMessages(t *testing.T) {
	repo := repositories.NewTaskRepository()
	cancels := NewCancelRegistry()
	manager := NewTaskManager(repo, &fakeEnqueuer{}, cancels, testTaskConfig())

	var task *models.Task
	scoring := &fakeScoring{fn: func(ctx context.Context, jobDescription string, candidates []models.Candidate, provider string, progress ProgressFunc) (*models.ScoringResult, error) {
		progress("Processing batch 1 of 2... (10 candidates)")

		// Progress is visible to pollers while the run is still underway.
		mid, err := repo.FindByID(task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, mid.Status)
		assert.Equal(t, "Processing batch 1 of 2... (10 candidates)", mid.Message)

		return &models.ScoringResult{
			ScoredCandidates: []models.ScoredCandidate{{ID: "c1", Score: 50, Highlights: []string{}}},
			Errors:           []string{},
		}, nil
	}}
	runner := NewTaskRunner(repo, scoring, cancels)

	var err error
	task, err = manager.Create("Go Engineer", []models.Candidate{{ID: "c1"}}, "openai")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), task.ID))

	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	// Completion clears the progress message.
	assert.Empty(t, stored.Message)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}
