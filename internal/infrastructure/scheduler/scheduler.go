// Package scheduler выполняет фоновые задачи генерации строго по одной:
// inference-сервис и индексы не рассчитаны на конкурентную нагрузку
// от нескольких тяжёлых пайплайнов.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/metrics"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

type queuedJob struct {
	taskID string
	job    *usecase.Job
}

// Scheduler — однопоточный планировщик фоновых задач. Очередь ограничена,
// Submit не блокируется: переполнение — ошибка вызывающему.
type Scheduler struct {
	queue     chan queuedJob
	taskStore usecase.TaskStore
	cfg       *cfg.SchedulerCfg
	logger    logger.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func NewScheduler(taskStore usecase.TaskStore, cfg *cfg.SchedulerCfg, logger logger.Logger) *Scheduler {
	return &Scheduler{
		queue:     make(chan queuedJob, cfg.QueueSize),
		taskStore: taskStore,
		cfg:       cfg,
		logger:    logger,
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает единственный воркер. Контекст задаёт время жизни воркера,
// его отмена прерывает и текущую задачу.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop запрещает приём новых задач и дожидается завершения текущей.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
	<-s.done
}

// Submit регистрирует задачу и ставит её в очередь. Возвращает ID задачи
// для последующего опроса, не дожидаясь выполнения.
func (s *Scheduler) Submit(ctx context.Context, job *usecase.Job) (string, error) {
	const op = "Scheduler.Submit"

	select {
	case <-s.stopped:
		return "", e.Wrap(op, e.ErrSchedulerStopped)
	default:
	}

	task := domain.NewTask(uuid.NewString())
	if err := s.taskStore.Create(ctx, task); err != nil {
		return "", e.Wrap(op, err)
	}

	select {
	case s.queue <- queuedJob{taskID: task.ID, job: job}:
		metrics.TaskQueueDepth.Set(float64(len(s.queue)))
		return task.ID, nil
	default:
		// задача не встала в очередь, запись о ней никому не нужна
		if err := s.taskStore.Delete(ctx, task.ID); err != nil {
			s.logger.Warnf("failed to delete rejected task. task_id: %s, error: %v", task.ID, err)
		}
		return "", e.Wrap(op, fmt.Errorf("task queue is full (%d jobs)", s.cfg.QueueSize))
	}
}

// run — цикл воркера: задачи забираются из очереди по одной, следующая
// не начинается до завершения текущей.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			// добиваем уже принятые задачи
			for {
				select {
				case item := <-s.queue:
					s.execute(ctx, item)
				default:
					return
				}
			}
		case item := <-s.queue:
			metrics.TaskQueueDepth.Set(float64(len(s.queue)))
			s.execute(ctx, item)
		}
	}
}

// execute выполняет одну задачу с ограничением по времени. Паника пайплайна
// превращается в failure-результат, воркер продолжает работу.
func (s *Scheduler) execute(ctx context.Context, item queuedJob) {
	task, err := s.taskStore.Get(ctx, item.taskID)
	if err != nil {
		s.logger.Warnf("task disappeared before execution. task_id: %s, error: %v", item.taskID, err)
		return
	}

	task.Status = domain.TaskStarted
	task.UpdatedAt = time.Now().UTC()
	if err := s.taskStore.Update(ctx, task); err != nil {
		s.logger.Warnf("failed to mark task as started. task_id: %s, error: %v", task.ID, err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeLimit)
	defer cancel()

	started := time.Now()
	result := s.runJob(jobCtx, task, item.job)
	elapsed := time.Since(started)

	task.Result = result
	task.Status = domain.TaskSuccess
	if !result.Success {
		task.Status = domain.TaskFailure
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.taskStore.Update(ctx, task); err != nil {
		s.logger.Errorf(err, "failed to record task result. task_id: %s", task.ID)
	}

	metrics.TasksTotal.WithLabelValues(string(item.job.Kind), string(task.Status)).Inc()
	metrics.TaskDuration.WithLabelValues(string(item.job.Kind)).Observe(elapsed.Seconds())

	s.logger.Infof("task finished. task_id: %s, kind: %s, status: %s, took: %v",
		task.ID, item.job.Kind, task.Status, elapsed)
}

func (s *Scheduler) runJob(ctx context.Context, task *domain.Task, job *usecase.Job) (result *domain.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf(fmt.Errorf("%v", r), "panic in task pipeline. task_id: %s", task.ID)
			result = &domain.TaskResult{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return &domain.TaskResult{Success: false, Error: err.Error()}
	}

	return job.Run(ctx, task)
}
