package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentrank/internal/models"
)

func newTask() *models.Task {
	return &models.Task{
		ID:             uuid.New(),
		JobDescription: "Go Engineer",
		Provider:       "openai",
		Candidates:     []models.Candidate{{ID: "c1", Name: "Alice Smith"}},
		Status:         models.StatusPending,
	}
}

func TestTaskRepository_CreateAndFind(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()

	require.NoError(t, repo.Create(task))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, found.ID)
	assert.Equal(t, models.StatusPending, found.Status)
	assert.False(t, found.CreatedAt.IsZero())
	assert.False(t, found.UpdatedAt.IsZero())
}

func TestTaskRepository_FindReturnsSnapshot(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()
	require.NoError(t, repo.Create(task))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	found.Status = models.StatusFailed

	again, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestTaskRepository_FindUnknown(t *testing.T) {
	repo := NewTaskRepository()

	_, err := repo.FindByID(uuid.New())
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestTaskRepository_Delete(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()
	require.NoError(t, repo.Create(task))

	require.NoError(t, repo.Delete(task.ID))
	assert.ErrorIs(t, repo.Delete(task.ID), models.ErrTaskNotFound)
}

func TestTaskRepository_Transition(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()
	require.NoError(t, repo.Create(task))

	require.NoError(t, repo.Transition(task.ID, models.StatusPending, models.StatusProcessing))

	// Second claim loses.
	assert.ErrorIs(t,
		repo.Transition(task.ID, models.StatusPending, models.StatusProcessing),
		models.ErrTaskConflict)

	assert.ErrorIs(t,
		repo.Transition(uuid.New(), models.StatusPending, models.StatusProcessing),
		models.ErrTaskNotFound)
}

func TestTaskRepository_UpdateResult(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()
	require.NoError(t, repo.Create(task))
	require.NoError(t, repo.UpdateMessage(task.ID, "Processing batch 1 of 1... (1 candidates)"))

	result := &models.ScoringResult{
		ScoredCandidates: []models.ScoredCandidate{{ID: "c1", Name: "Alice Smith", Score: 81, Highlights: []string{}}},
		Errors:           []string{},
	}
	require.NoError(t, repo.UpdateResult(task.ID, result))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, found.Status)
	assert.Equal(t, result, found.Result)
	// Terminal states clear the progress message.
	assert.Empty(t, found.Message)
}

func TestTaskRepository_UpdateError(t *testing.T) {
	repo := NewTaskRepository()
	task := newTask()
	require.NoError(t, repo.Create(task))

	require.NoError(t, repo.UpdateError(task.ID, "all batches failed: batch 1: quota exceeded"))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, found.Status)
	assert.Contains(t, found.ErrorMessage, "quota exceeded")

	assert.ErrorIs(t, repo.UpdateError(uuid.New(), "x"), models.ErrTaskNotFound)
}

func TestTaskRepository_FindPending(t *testing.T) {
	repo := NewTaskRepository()

	first := newTask()
	require.NoError(t, repo.Create(first))
	time.Sleep(time.Millisecond)

	second := newTask()
	require.NoError(t, repo.Create(second))

	done := newTask()
	require.NoError(t, repo.Create(done))
	require.NoError(t, repo.Transition(done.ID, models.StatusPending, models.StatusProcessing))

	pending, err := repo.FindPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Oldest first.
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	limited, err := repo.FindPending(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestTaskRepository_DeleteExpired(t *testing.T) {
	repo := NewTaskRepository()

	failed := newTask()
	require.NoError(t, repo.Create(failed))
	require.NoError(t, repo.UpdateError(failed.ID, "boom"))

	completed := newTask()
	require.NoError(t, repo.Create(completed))
	require.NoError(t, repo.UpdateResult(completed.ID, &models.ScoringResult{}))

	stillPending := newTask()
	require.NoError(t, repo.Create(stillPending))

	time.Sleep(5 * time.Millisecond)

	// Terminal tasks older than the window go; pending tasks stay regardless
	// of age.
	removed := repo.DeleteExpired(time.Millisecond)
	assert.Equal(t, 2, removed)

	_, err := repo.FindByID(failed.ID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
	_, err = repo.FindByID(completed.ID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
	_, err = repo.FindByID(stillPending.ID)
	assert.NoError(t, err)
}
