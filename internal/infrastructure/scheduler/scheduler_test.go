package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[string]*domain.Task)}
}

func (m *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return m.Create(ctx, task)
}

func (m *memTaskStore) Delete(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *memTaskStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *memTaskStore) Get(_ context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, errors.New("task not found")
	}
	cp := *task
	return &cp, nil
}

func testSchedulerCfg(queueSize int) *cfg.SchedulerCfg {
	return &cfg.SchedulerCfg{
		QueueSize:     queueSize,
		TaskTimeLimit: 5 * time.Second,
	}
}

func startScheduler(t *testing.T, store usecase.TaskStore, queueSize int) *Scheduler {
	t.Helper()

	s := NewScheduler(store, testSchedulerCfg(queueSize), nopLogger{})
	s.Start(context.Background())
	t.Cleanup(s.Stop)

	return s
}

// waitTerminal опрашивает задачу до терминального статуса.
func waitTerminal(t *testing.T, store *memTaskStore, taskID string) *domain.Task {
	t.Helper()

	var task *domain.Task
	require.Eventually(t, func() bool {
		got, err := store.Get(context.Background(), taskID)
		if err != nil || !got.Status.Terminal() {
			return false
		}
		task = got
		return true
	}, 3*time.Second, 10*time.Millisecond)

	return task
}

func successJob(kind usecase.JobKind) *usecase.Job {
	return &usecase.Job{
		Kind: kind,
		Run: func(context.Context, *domain.Task) *domain.TaskResult {
			return &domain.TaskResult{Success: true, PlaylistID: 1}
		},
	}
}

func TestSchedulerExecutesJob(t *testing.T) {
	store := newMemTaskStore()
	s := startScheduler(t, store, 4)

	taskID, err := s.Submit(context.Background(), successJob(usecase.JobGenerateFromTrack))
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task := waitTerminal(t, store, taskID)
	assert.Equal(t, domain.TaskSuccess, task.Status)
	require.NotNil(t, task.Result)
	assert.True(t, task.Result.Success)
	assert.Equal(t, int64(1), task.Result.PlaylistID)
}

// Воркер единственный: задачи не перекрываются и выполняются в порядке подачи.
func TestSchedulerSingleFlightFIFO(t *testing.T) {
	store := newMemTaskStore()
	s := startScheduler(t, store, 8)

	var (
		mu      sync.Mutex
		order   []int
		running int
	)

	makeJob := func(n int) *usecase.Job {
		return &usecase.Job{
			Kind: usecase.JobGenerateFromUpload,
			Run: func(context.Context, *domain.Task) *domain.TaskResult {
				mu.Lock()
				running++
				assert.Equal(t, 1, running, "jobs must not overlap")
				order = append(order, n)
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()

				return &domain.TaskResult{Success: true}
			},
		}
	}

	var taskIDs []string
	for n := 0; n < 3; n++ {
		taskID, err := s.Submit(context.Background(), makeJob(n))
		require.NoError(t, err)
		taskIDs = append(taskIDs, taskID)
	}

	for _, taskID := range taskIDs {
		waitTerminal(t, store, taskID)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	store := newMemTaskStore()
	s := startScheduler(t, store, 4)

	panicJob := &usecase.Job{
		Kind: usecase.JobGenerateFromUpload,
		Run: func(context.Context, *domain.Task) *domain.TaskResult {
			panic("pipeline exploded")
		},
	}

	taskID, err := s.Submit(context.Background(), panicJob)
	require.NoError(t, err)

	task := waitTerminal(t, store, taskID)
	assert.Equal(t, domain.TaskFailure, task.Status)
	require.NotNil(t, task.Result)
	assert.Contains(t, task.Result.Error, "internal error")

	// воркер пережил панику и выполняет следующие задачи
	taskID, err = s.Submit(context.Background(), successJob(usecase.JobGenerateFromTrack))
	require.NoError(t, err)
	task = waitTerminal(t, store, taskID)
	assert.Equal(t, domain.TaskSuccess, task.Status)
}

func TestSchedulerEnforcesTimeLimit(t *testing.T) {
	store := newMemTaskStore()

	s := NewScheduler(store, &cfg.SchedulerCfg{QueueSize: 4, TaskTimeLimit: 30 * time.Millisecond}, nopLogger{})
	s.Start(context.Background())
	t.Cleanup(s.Stop)

	slowJob := &usecase.Job{
		Kind: usecase.JobGenerateFromUpload,
		Run: func(ctx context.Context, _ *domain.Task) *domain.TaskResult {
			<-ctx.Done()
			return &domain.TaskResult{Success: false, Error: ctx.Err().Error()}
		},
	}

	taskID, err := s.Submit(context.Background(), slowJob)
	require.NoError(t, err)

	task := waitTerminal(t, store, taskID)
	assert.Equal(t, domain.TaskFailure, task.Status)
	assert.Contains(t, task.Result.Error, "deadline")
}

func TestSchedulerSubmitAfterStop(t *testing.T) {
	store := newMemTaskStore()
	s := NewScheduler(store, testSchedulerCfg(4), nopLogger{})
	s.Start(context.Background())
	s.Stop()

	_, err := s.Submit(context.Background(), successJob(usecase.JobGenerateFromTrack))
	assert.ErrorIs(t, err, e.ErrSchedulerStopped)
}

func TestSchedulerQueueOverflow(t *testing.T) {
	store := newMemTaskStore()

	block := make(chan struct{})
	blockingJob := &usecase.Job{
		Kind: usecase.JobGenerateFromUpload,
		Run: func(context.Context, *domain.Task) *domain.TaskResult {
			<-block
			return &domain.TaskResult{Success: true}
		},
	}

	s := NewScheduler(store, testSchedulerCfg(1), nopLogger{})
	s.Start(context.Background())

	// первая задача уходит воркеру и виснет, вторая занимает очередь
	first, err := s.Submit(context.Background(), blockingJob)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, err := store.Get(context.Background(), first)
		return err == nil && task.Status == domain.TaskStarted
	}, 3*time.Second, 10*time.Millisecond)

	_, err = s.Submit(context.Background(), successJob(usecase.JobGenerateFromTrack))
	require.NoError(t, err)

	accepted := store.len()

	_, err = s.Submit(context.Background(), successJob(usecase.JobGenerateFromTrack))
	assert.ErrorContains(t, err, "queue is full")

	// отклонённая задача не оставляет за собой pending-записи
	assert.Equal(t, accepted, store.len())

	close(block)
	s.Stop()
}

// Порядок остановки приложения: сначала Stop, затем отмена контекста воркера.
// Текущая задача должна доработать и записать результат.
func TestSchedulerStopFinishesInFlightBeforeContextCancel(t *testing.T) {
	store := newMemTaskStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(store, testSchedulerCfg(4), nopLogger{})
	s.Start(ctx)

	release := make(chan struct{})
	job := &usecase.Job{
		Kind: usecase.JobGenerateFromUpload,
		Run: func(jobCtx context.Context, _ *domain.Task) *domain.TaskResult {
			select {
			case <-release:
				return &domain.TaskResult{Success: true}
			case <-jobCtx.Done():
				return &domain.TaskResult{Success: false, Error: jobCtx.Err().Error()}
			}
		},
	}

	taskID, err := s.Submit(ctx, job)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	s.Stop()
	cancel()

	task, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	require.NotNil(t, task.Result)
	assert.Equal(t, domain.TaskSuccess, task.Status)
}

// Stop дожидается уже принятых задач.
func TestSchedulerStopDrainsQueue(t *testing.T) {
	store := newMemTaskStore()
	s := NewScheduler(store, testSchedulerCfg(8), nopLogger{})
	s.Start(context.Background())

	var taskIDs []string
	for n := 0; n < 3; n++ {
		taskID, err := s.Submit(context.Background(), successJob(usecase.JobGenerateFromUpload))
		require.NoError(t, err)
		taskIDs = append(taskIDs, taskID)
	}

	s.Stop()

	for _, taskID := range taskIDs {
		task, err := store.Get(context.Background(), taskID)
		require.NoError(t, err)
		assert.True(t, task.Status.Terminal(), "task %s left unfinished after Stop", taskID)
	}
}
