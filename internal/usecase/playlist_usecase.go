package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/metrics"
	"github.com/jayyoonakajaeha/MUSEED/internal/ml"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// Стадии пайплайна, записываются в задачу для диагностики.
const (
	stageEmbedding  = "embedding"
	stageSearching  = "searching"
	stageValidating = "validating"
	stagePersisting = "persisting"
	stageDone       = "done"
	stageFailed     = "failed"
)

var supportedAudioTypes = map[string]struct{}{
	"audio/wav":                {},
	"audio/x-wav":              {},
	"audio/wave":               {},
	"audio/mpeg":               {},
	"audio/mp3":                {},
	"audio/mpeg3":              {},
	"application/octet-stream": {},
}

// PlaylistUseCase реализует генерацию плейлистов по seed-аудио или seed-треку.
// Тяжёлая работа выполняется воркером планировщика, внешние методы только
// ставят задачу в очередь и читают её состояние.
type PlaylistUseCase struct {
	trackRepo    TrackRepository
	playlistRepo PlaylistRepository
	outboxRepo   OutboxRepository
	embeddings   EmbeddingStore
	embedder     EmbedderInfra
	uploads      UploadsInfra
	scheduler    SchedulerInfra
	taskStore    TaskStore
	trackIndex   *ml.VectorIndex
	dbPool       transaction.Transactional
	cfg          *cfg.RecsCfg
	logger       logger.Logger
}

func NewPlaylistUC(
	trackRepo TrackRepository,
	playlistRepo PlaylistRepository,
	outboxRepo OutboxRepository,
	embeddings EmbeddingStore,
	embedder EmbedderInfra,
	uploads UploadsInfra,
	scheduler SchedulerInfra,
	taskStore TaskStore,
	trackIndex *ml.VectorIndex,
	dbPool transaction.Transactional,
	cfg *cfg.RecsCfg,
	logger logger.Logger,
) *PlaylistUseCase {
	return &PlaylistUseCase{
		trackRepo:    trackRepo,
		playlistRepo: playlistRepo,
		outboxRepo:   outboxRepo,
		embeddings:   embeddings,
		embedder:     embedder,
		uploads:      uploads,
		scheduler:    scheduler,
		taskStore:    taskStore,
		trackIndex:   trackIndex,
		dbPool:       dbPool,
		cfg:          cfg,
		logger:       logger,
	}
}

// EnqueueFromUpload сохраняет загруженное аудио во временное хранилище и ставит
// задачу генерации в очередь. Возвращает ID задачи для последующего опроса.
func (p *PlaylistUseCase) EnqueueFromUpload(ctx context.Context, req *GenerateFromUploadReq) (string, error) {
	const op = "PlaylistUseCase.EnqueueFromUpload"

	if err := p.validateUploadReq(req); err != nil {
		return "", e.Wrap(op, err)
	}

	scratchKey, err := p.uploads.StoreScratch(ctx, NewStoreScratchReq(req.Name, req.Audio))
	if err != nil {
		return "", e.Wrap(op, err)
	}

	job := &Job{
		Kind: JobGenerateFromUpload,
		Run: func(ctx context.Context, task *domain.Task) *domain.TaskResult {
			return p.runUploadPipeline(ctx, task, scratchKey, req.Name, req.OwnerID)
		},
	}

	taskID, err := p.scheduler.Submit(ctx, job)
	if err != nil {
		// задача не встала в очередь, временный объект никто не удалит
		p.uploads.CleanupScratch([]string{scratchKey})
		return "", e.Wrap(op, err)
	}

	return taskID, nil
}

// EnqueueFromTrack ставит в очередь генерацию плейлиста по существующему треку.
func (p *PlaylistUseCase) EnqueueFromTrack(ctx context.Context, req *GenerateFromTrackReq) (string, error) {
	const op = "PlaylistUseCase.EnqueueFromTrack"

	if strings.TrimSpace(req.Name) == "" {
		return "", e.Wrap(op, e.ErrPlaylistNameRequired)
	}

	if req.SeedTrackID <= 0 {
		return "", e.Wrap(op, e.ErrInvalidID)
	}

	job := &Job{
		Kind: JobGenerateFromTrack,
		Run: func(ctx context.Context, task *domain.Task) *domain.TaskResult {
			return p.runTrackPipeline(ctx, task, req.SeedTrackID, req.Name, req.OwnerID)
		},
	}

	taskID, err := p.scheduler.Submit(ctx, job)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return taskID, nil
}

// GetTask возвращает текущее состояние задачи генерации.
func (p *PlaylistUseCase) GetTask(ctx context.Context, taskID string) (*TaskStatusRes, error) {
	const op = "PlaylistUseCase.GetTask"

	task, err := p.taskStore.Get(ctx, taskID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewTaskStatusRes(task), nil
}

// runUploadPipeline выполняет полный цикл генерации по загруженному аудио.
// Любая ошибка превращается в TaskResult{Success: false}, наверх не поднимается.
func (p *PlaylistUseCase) runUploadPipeline(ctx context.Context, task *domain.Task, scratchKey, name string, ownerID *int64) *domain.TaskResult {
	const op = "PlaylistUseCase.runUploadPipeline"

	// временный объект удаляется на любом исходе пайплайна
	defer p.uploads.CleanupScratch([]string{scratchKey})

	p.setStage(ctx, task, stageEmbedding)

	data, err := p.uploads.FetchScratch(ctx, scratchKey)
	if err != nil {
		return p.failResult(op, task, err)
	}

	seed, err := p.embedder.EmbedAudio(ctx, NewUploadedAudio(data, "", int64(len(data)), scratchKey))
	if err != nil {
		return p.failResult(op, task, err)
	}

	trackIDs, err := p.searchAndValidate(ctx, task, seed, p.cfg.NumRecommendations, 0)
	if err != nil {
		return p.failResult(op, task, err)
	}

	return p.persist(ctx, task, name, ownerID, trackIDs)
}

// runTrackPipeline выполняет генерацию по seed-треку: seed закрепляется на
// нулевой позиции, его эмбеддинг берётся из хранилища без инференса.
func (p *PlaylistUseCase) runTrackPipeline(ctx context.Context, task *domain.Task, seedTrackID int64, name string, ownerID *int64) *domain.TaskResult {
	const op = "PlaylistUseCase.runTrackPipeline"

	p.setStage(ctx, task, stageEmbedding)

	seed, err := p.embeddings.GetVector(ctx, seedTrackID)
	if err != nil {
		return p.failResult(op, task, err)
	}
	if seed == nil {
		return p.failResult(op, task, e.ErrSeedEmbeddingNotFound)
	}

	// запрашиваем на один больше: seed почти наверняка вернётся первым
	trackIDs, err := p.searchAndValidate(ctx, task, seed, p.cfg.NumRecommendations+1, seedTrackID)
	if err != nil {
		return p.failResult(op, task, err)
	}

	// seed ровно один раз и строго первым
	ordered := make([]int64, 0, len(trackIDs)+1)
	ordered = append(ordered, seedTrackID)
	for _, id := range trackIDs {
		if id == seedTrackID {
			continue
		}
		ordered = append(ordered, id)
	}
	if len(ordered) > p.cfg.NumRecommendations+1 {
		ordered = ordered[:p.cfg.NumRecommendations+1]
	}

	return p.persist(ctx, task, name, ownerID, ordered)
}

// searchAndValidate ищет похожие треки и отбрасывает ID, отсутствующие в
// каталоге. Протухший ID в индексе — деградация, а не фатальная ошибка.
func (p *PlaylistUseCase) searchAndValidate(ctx context.Context, task *domain.Task, seed []float32, limit int, seedTrackID int64) ([]int64, error) {
	p.setStage(ctx, task, stageSearching)

	started := time.Now()
	found, err := p.trackIndex.Search(seed, limit)
	if err != nil {
		return nil, err
	}
	metrics.IndexSearchDuration.WithLabelValues("tracks").Observe(time.Since(started).Seconds())

	p.setStage(ctx, task, stageValidating)

	valid, err := p.trackRepo.FilterExisting(ctx, found)
	if err != nil {
		return nil, err
	}

	if len(valid) < len(found) {
		p.logger.Warnf("track index is stale: %d of %d found ids missing from catalog", len(found)-len(valid), len(found))
	}

	// единственный результат — сам seed: рекомендовать нечего
	if len(valid) == 0 || (seedTrackID != 0 && len(valid) == 1 && valid[0] == seedTrackID) {
		return nil, e.ErrNoSimilarTracks
	}

	return valid, nil
}

// persist сохраняет плейлист и outbox-событие в одной транзакции.
func (p *PlaylistUseCase) persist(ctx context.Context, task *domain.Task, name string, ownerID *int64, trackIDs []int64) *domain.TaskResult {
	const op = "PlaylistUseCase.persist"

	p.setStage(ctx, task, stagePersisting)

	var err error
	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, p.dbPool)
	if err != nil {
		return p.failResult(op, task, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	playlist, err := p.playlistRepo.Create(ctx, domain.NewPlaylist(name, ownerID, trackIDs))
	if err != nil {
		return p.failResult(op, task, err)
	}

	if err = p.createOutboxEvent(ctx, playlist); err != nil {
		return p.failResult(op, task, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return p.failResult(op, task, err)
	}

	p.setStage(ctx, task, stageDone)

	return &domain.TaskResult{Success: true, PlaylistID: playlist.ID}
}

// createOutboxEvent пишет событие о созданном плейлисте в таблицу outbox,
// откуда фоновый воркер доставит его в Kafka.
func (p *PlaylistUseCase) createOutboxEvent(ctx context.Context, playlist *domain.Playlist) error {
	payload, err := json.Marshal(struct {
		EventID    string  `json:"event_id"`
		EventType  string  `json:"event_type"`
		PlaylistID int64   `json:"playlist_id"`
		Name       string  `json:"name"`
		OwnerID    *int64  `json:"owner_id,omitempty"`
		TrackIDs   []int64 `json:"track_ids"`
		CreatedAt  int64   `json:"created_at"`
	}{
		EventID:    uuid.NewString(),
		EventType:  string(PlaylistCreated),
		PlaylistID: playlist.ID,
		Name:       playlist.Name,
		OwnerID:    playlist.OwnerID,
		TrackIDs:   playlist.TrackIDs,
		CreatedAt:  time.Now().UnixNano(),
	})
	if err != nil {
		return err
	}

	_, err = p.outboxRepo.Create(ctx, NewOutboxEvent(uuid.NewString(), PlaylistCreated, playlist.ID, payload))

	return err
}

// setStage фиксирует прогресс пайплайна в задаче. Ошибка записи не прерывает
// генерацию: стадия нужна только для диагностики.
func (p *PlaylistUseCase) setStage(ctx context.Context, task *domain.Task, stage string) {
	task.Stage = stage
	task.UpdatedAt = time.Now().UTC()

	if err := p.taskStore.Update(ctx, task); err != nil {
		p.logger.Warnf("failed to record task stage. task_id: %s, stage: %s, error: %v", task.ID, stage, err)
	}
}

// failResult упаковывает ошибку пайплайна в результат задачи.
func (p *PlaylistUseCase) failResult(op string, task *domain.Task, err error) *domain.TaskResult {
	p.logger.Warnf("playlist generation failed. task_id: %s, stage: %s, error: %v", task.ID, task.Stage, e.Wrap(op, err))

	task.Stage = stageFailed

	return &domain.TaskResult{Success: false, Error: err.Error()}
}

// validateUploadReq проверяет корректность входных данных запроса генерации по аудио.
func (p *PlaylistUseCase) validateUploadReq(req *GenerateFromUploadReq) error {
	if strings.TrimSpace(req.Name) == "" {
		return e.ErrPlaylistNameRequired
	}

	if req.Audio == nil || len(req.Audio.Data) == 0 {
		return e.ErrNoSeedAudio
	}

	mimeType := req.Audio.MimeType
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	if _, ok := supportedAudioTypes[strings.TrimSpace(strings.ToLower(mimeType))]; !ok {
		return e.ErrUnsupportedMediaType
	}

	return nil
}
