package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"talentrank/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(taskID uuid.UUID)
}

type worker struct {
	taskRepo    repositories.TaskRepository
	runner      TaskRunner
	jobQueue    chan uuid.UUID
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

func NewWorker(taskRepo repositories.TaskRepository, runner TaskRunner, concurrency int) Worker {
	return &worker{
		taskRepo:    taskRepo,
		runner:      runner,
		jobQueue:    make(chan uuid.UUID, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Infof("🚀 Starting worker with %d concurrent workers", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	// Safety net: pick up pending tasks whose enqueue was lost (e.g. the
	// queue was full at creation time).
	w.wg.Add(1)
	go w.pollPendingTasks(ctx)

	log.Info("✅ Worker started successfully")
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Info("🛑 Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Info("✅ Worker stopped")
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(taskID uuid.UUID) {
	select {
	case w.jobQueue <- taskID:
		log.Infof("📥 Task %s enqueued", taskID)
	case <-w.stopChan:
		log.Warnf("⚠️  Worker stopped, cannot enqueue task %s", taskID)
	default:
		// Queue full; the pending poller will pick the task up later.
		log.Warnf("⚠️  Job queue full, task %s deferred to poller", taskID)
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Infof("👷 Worker #%d stopped", workerID)
			return
		case taskID := <-w.jobQueue:
			log.Infof("👷 Worker #%d processing task %s", workerID, taskID)
			if err := w.runner.Run(ctx, taskID); err != nil {
				log.Errorf("❌ Worker #%d failed to process task %s: %v", workerID, taskID, err)
			} else {
				log.Infof("✅ Worker #%d finished task %s", workerID, taskID)
			}
		}
	}
}

func (w *worker) pollPendingTasks(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.taskRepo.FindPending(10)
			if err != nil {
				log.Warnf("⚠️  Failed to fetch pending tasks: %v", err)
				continue
			}

			for _, task := range pending {
				w.EnqueueJob(task.ID)
			}
		}
	}
}
