package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"talentrank/internal/config"
	"talentrank/internal/models"
	"talentrank/internal/repositories"
)

// Enqueuer is the slice of the worker the task manager needs: hand a task id
// to the background pool.
type Enqueuer interface {
	EnqueueJob(taskID uuid.UUID)
}

// TaskManager is the public contract of the asynchronous scoring lifecycle:
// accept a request, answer status polls, delete tasks.
type TaskManager interface {
	Create(jobDescription string, candidates []models.Candidate, provider string) (*models.Task, error)
	Get(id uuid.UUID) (*models.Task, error)
	Delete(id uuid.UUID) error
	StartJanitor(ctx context.Context)
}

type taskManager struct {
	repo    repositories.TaskRepository
	worker  Enqueuer
	cancels *CancelRegistry
	cfg     config.TaskConfig
}

func NewTaskManager(repo repositories.TaskRepository, worker Enqueuer, cancels *CancelRegistry, cfg config.TaskConfig) TaskManager {
	return &taskManager{
		repo:    repo,
		worker:  worker,
		cancels: cancels,
		cfg:     cfg,
	}
}

// Create stores a new pending task and schedules it for background scoring.
func (m *taskManager) Create(jobDescription string, candidates []models.Candidate, provider string) (*models.Task, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates provided")
	}

	// Candidates normally arrive with loader-assigned ids; fill positional
	// fallbacks so every profile stays addressable in the result.
	for i := range candidates {
		if candidates[i].ID == "" {
			candidates[i].ID = fmt.Sprintf("candidate_%d", i+1)
		}
	}

	task := &models.Task{
		ID:             uuid.New(),
		JobDescription: jobDescription,
		Provider:       provider,
		Candidates:     candidates,
		Status:         models.StatusPending,
	}

	if err := m.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	m.worker.EnqueueJob(task.ID)

	snapshot := *task
	return &snapshot, nil
}

func (m *taskManager) Get(id uuid.UUID) (*models.Task, error) {
	return m.repo.FindByID(id)
}

// Delete removes the task record and cancels any in-flight run. Cancellation
// is cooperative: batches already dispatched to the provider finish, and
// their results are discarded when they find the task gone.
func (m *taskManager) Delete(id uuid.UUID) error {
	m.cancels.cancel(id)
	return m.repo.Delete(id)
}

// StartJanitor sweeps terminal tasks past the retention window until ctx
// ends.
func (m *taskManager) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.repo.DeleteExpired(m.cfg.Retention); removed > 0 {
					log.Infof("🧹 Removed %d expired tasks", removed)
				}
			}
		}
	}()
}

// TaskRunner executes one task end to end; the worker pool calls it.
type TaskRunner interface {
	Run(ctx context.Context, taskID uuid.UUID) error
}

type taskRunner struct {
	repo    repositories.TaskRepository
	scoring ScoringService
	cancels *CancelRegistry
}

func NewTaskRunner(repo repositories.TaskRepository, scoring ScoringService, cancels *CancelRegistry) TaskRunner {
	return &taskRunner{
		repo:    repo,
		scoring: scoring,
		cancels: cancels,
	}
}

// Run drives one task through the scoring pipeline and records the outcome.
// A task completes as long as every batch was attempted; it fails only on a
// run-level fault or when not a single candidate could be scored.
func (r *taskRunner) Run(ctx context.Context, taskID uuid.UUID) error {
	if err := r.repo.Transition(taskID, models.StatusPending, models.StatusProcessing); err != nil {
		switch {
		case errors.Is(err, models.ErrTaskNotFound):
			log.Infof("Task %s deleted before it started, skipping", taskID)
			return nil
		case errors.Is(err, models.ErrTaskConflict):
			// Already picked up by another worker or the pending poller.
			return nil
		default:
			return err
		}
	}

	task, err := r.repo.FindByID(taskID)
	if err != nil {
		log.Infof("Task %s disappeared after pickup, skipping", taskID)
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancels.register(taskID, cancel)
	defer r.cancels.unregister(taskID)

	progress := func(message string) {
		_ = r.repo.UpdateMessage(taskID, message)
	}

	result, err := r.scoring.Score(runCtx, task.JobDescription, task.Candidates, task.Provider, progress)
	if err != nil {
		if updateErr := r.repo.UpdateError(taskID, err.Error()); errors.Is(updateErr, models.ErrTaskNotFound) {
			log.Infof("Task %s deleted mid-run, discarding failure", taskID)
			return nil
		}
		return err
	}

	// A run where every single batch failed has nothing to show; calling
	// that completed would hide the failure from the client.
	if len(result.ScoredCandidates) == 0 && len(result.Errors) > 0 {
		detail := fmt.Sprintf("all batches failed: %s", strings.Join(result.Errors, "; "))
		if updateErr := r.repo.UpdateError(taskID, detail); errors.Is(updateErr, models.ErrTaskNotFound) {
			log.Infof("Task %s deleted mid-run, discarding failure", taskID)
		}
		return nil
	}

	if updateErr := r.repo.UpdateResult(taskID, result); errors.Is(updateErr, models.ErrTaskNotFound) {
		log.Infof("Task %s deleted mid-run, discarding result", taskID)
	}
	return nil
}

// CancelRegistry maps running tasks to their cancel funcs so a delete can
// stop a run at the next batch boundary.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (c *CancelRegistry) register(id uuid.UUID, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels[id] = cancel
}

func (c *CancelRegistry) unregister(id uuid.UUID) {
	c.mu.Lock()
	cancel, ok := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

func (c *CancelRegistry) cancel(id uuid.UUID) {
	c.mu.Lock()
	cancel, ok := c.cancels[id]
	c.mu.Unlock()

	if ok {
		cancel()
	}
}
