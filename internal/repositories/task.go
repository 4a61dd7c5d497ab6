package repositories

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"talentrank/internal/models"
)

// TaskRepository is the narrow seam around task state. Callers never touch
// the underlying table, so a persistent store could replace the in-memory one
// without touching the services.
type TaskRepository interface {
	Create(task *models.Task) error
	FindByID(id uuid.UUID) (*models.Task, error)
	Delete(id uuid.UUID) error
	// Transition moves a task from one status to another and fails with
	// ErrTaskConflict when the task is no longer in the expected status.
	Transition(id uuid.UUID, from, to models.TaskStatus) error
	UpdateMessage(id uuid.UUID, message string) error
	UpdateResult(id uuid.UUID, result *models.ScoringResult) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPending(limit int) ([]*models.Task, error)
	// DeleteExpired removes terminal tasks untouched for longer than the
	// retention window and reports how many were dropped.
	DeleteExpired(retention time.Duration) int
}

// taskRepository keeps all task state in process memory. Nothing survives a
// restart; the retention janitor keeps the table from growing without bound.
type taskRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*models.Task
}

func NewTaskRepository() TaskRepository {
	return &taskRepository{
		tasks: make(map[uuid.UUID]*models.Task),
	}
}

func (r *taskRepository) Create(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = task
	return nil
}

func (r *taskRepository) FindByID(id uuid.UUID) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, models.ErrTaskNotFound
	}

	snapshot := *task
	return &snapshot, nil
}

func (r *taskRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return models.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *taskRepository) Transition(id uuid.UUID, from, to models.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.ErrTaskNotFound
	}
	if task.Status != from {
		return models.ErrTaskConflict
	}

	task.Status = to
	task.UpdatedAt = time.Now()
	return nil
}

func (r *taskRepository) UpdateMessage(id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.ErrTaskNotFound
	}

	task.Message = message
	task.UpdatedAt = time.Now()
	return nil
}

func (r *taskRepository) UpdateResult(id uuid.UUID, result *models.ScoringResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.ErrTaskNotFound
	}

	task.Status = models.StatusCompleted
	task.Result = result
	task.Message = ""
	task.UpdatedAt = time.Now()
	return nil
}

func (r *taskRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.ErrTaskNotFound
	}

	task.Status = models.StatusFailed
	task.ErrorMessage = errorMsg
	task.Message = ""
	task.UpdatedAt = time.Now()
	return nil
}

func (r *taskRepository) FindPending(limit int) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*models.Task
	for _, task := range r.tasks {
		if task.Status == models.StatusPending {
			snapshot := *task
			pending = append(pending, &snapshot)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *taskRepository) DeleteExpired(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	removed := 0
	for id, task := range r.tasks {
		if task.Status.Terminal() && task.UpdatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}
