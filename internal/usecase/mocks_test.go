package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

// fakeTrackRepo пропускает только треки из existing.
type fakeTrackRepo struct {
	existing map[int64]struct{}
}

func (f *fakeTrackRepo) FilterExisting(_ context.Context, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.existing[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	histories map[int64][]int64
}

func (f *fakeHistoryRepo) GetForUser(_ context.Context, userID int64) ([]int64, error) {
	return f.histories[userID], nil
}

func (f *fakeHistoryRepo) GetForUsers(_ context.Context, userIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64)
	for _, id := range userIDs {
		if h, ok := f.histories[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	ids       []int64
	following map[int64][]int64
}

func (f *fakeUserRepo) ListIDs(context.Context) ([]int64, error) {
	return f.ids, nil
}

func (f *fakeUserRepo) FollowingIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.following[userID], nil
}

type fakeEmbeddingStore struct {
	vectors map[int64][]float32
}

func (f *fakeEmbeddingStore) GetVector(_ context.Context, trackID int64) ([]float32, error) {
	return f.vectors[trackID], nil
}

func (f *fakeEmbeddingStore) ListTrackIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.vectors))
	for id := range f.vectors {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeTaskStore хранит задачи в памяти.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*domain.Task)}
}

func (f *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return f.Create(ctx, task)
}

func (f *fakeTaskStore) Delete(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskStore) Get(_ context.Context, taskID string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, errors.New("task not found")
	}
	cp := *task
	return &cp, nil
}

// fakeScheduler выполняет задачу синхронно либо отклоняет её.
type fakeScheduler struct {
	rejectWith error
	submitted  []*Job
}

func (f *fakeScheduler) Submit(_ context.Context, job *Job) (string, error) {
	if f.rejectWith != nil {
		return "", f.rejectWith
	}
	f.submitted = append(f.submitted, job)
	return "task-1", nil
}

// fakeUploads — временное хранилище в памяти с учётом удалений.
type fakeUploads struct {
	mu      sync.Mutex
	objects map[string][]byte
	cleaned []string
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{objects: make(map[string][]byte)}
}

func (f *fakeUploads) StoreScratch(_ context.Context, req *StoreScratchReq) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := "scratch/" + req.Name
	f.objects[key] = req.Audio.Data
	return key, nil
}

func (f *fakeUploads) FetchScratch(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("scratch object not found")
	}
	return data, nil
}

func (f *fakeUploads) CleanupScratch(keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.objects, key)
		f.cleaned = append(f.cleaned, key)
	}
}

// fakePlaylistRepo присваивает созданному плейлисту фиксированный ID.
type fakePlaylistRepo struct {
	created  *domain.Playlist
	failWith error
}

func (f *fakePlaylistRepo) Create(_ context.Context, playlist *domain.Playlist) (*domain.Playlist, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	playlist.ID = 501
	f.created = playlist
	return playlist, nil
}

type fakeOutboxRepo struct {
	events   []*OutboxEvent
	failWith error
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(context.Context, int64) error {
	return nil
}

// fakeTx реализует pgx.Tx ровно настолько, чтобы пройти через
// транзакционный менеджер: фиксирует Commit и Rollback.
type fakeTx struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                         { return nil }

// fakeTxPool подменяет пул соединений при открытии транзакции.
type fakeTxPool struct {
	tx *fakeTx
}

func (f *fakeTxPool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedAudio(context.Context, *UploadedAudio) ([]float32, error) {
	return f.vector, f.err
}
