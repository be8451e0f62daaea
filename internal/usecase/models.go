package usecase

import (
	"context"
	"time"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
)

// PLAYLIST USECASE

// GenerateFromUploadReq — запрос генерации плейлиста по загруженному аудио.
type GenerateFromUploadReq struct {
	Name    string
	OwnerID *int64
	Audio   *UploadedAudio
}

// GenerateFromTrackReq — запрос генерации плейлиста по существующему треку.
type GenerateFromTrackReq struct {
	Name        string
	OwnerID     *int64
	SeedTrackID int64
}

// UploadedAudio представляет аудиофайл, загруженный через multipart/form-data.
type UploadedAudio struct {
	Data     []byte // байты файла
	MimeType string // Content-Type из multipart (audio/wav, audio/mpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// TaskStatusRes — текущее состояние фоновой задачи для внешнего использования.
type TaskStatusRes struct {
	TaskID    string
	Status    domain.TaskStatus
	Stage     string
	Result    *domain.TaskResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RECOMMEND USECASE

// SimilarUsersReq — запрос похожих по вкусу пользователей.
type SimilarUsersReq struct {
	UserID int64
	Limit  int
}

// SimilarUser — кандидат с итоговой оценкой близости вкусов.
type SimilarUser struct {
	UserID int64
	Score  float64
}

type SimilarUsersRes struct {
	Users []SimilarUser
}

// INDEX USECASE

// RebuildIndexRes — итог перестройки пользовательского индекса.
type RebuildIndexRes struct {
	Users   int
	Vectors int
}

// INFRASTRUCTURE

// JobKind задаёт закрытое множество типов фоновых задач.
type JobKind string

const (
	JobGenerateFromUpload JobKind = "generate_from_upload"
	JobGenerateFromTrack  JobKind = "generate_from_track"
)

// Job — единица работы для планировщика. Run выполняется единственным
// воркером и обязан вернуть результат, а не паниковать.
type Job struct {
	Kind JobKind
	Run  func(ctx context.Context, task *domain.Task) *domain.TaskResult
}

// StoreScratchReq — запрос на сохранение загруженного аудио во временное хранилище.
type StoreScratchReq struct {
	Name  string
	Audio *UploadedAudio
}

type WriteRawMessageReq struct {
	PlaylistID int64
	Payload    []byte
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const PlaylistCreated OutboxEventType = "playlist_created"

// OutboxEvent — событие для надёжной доставки в Kafka через таблицу outbox.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	PlaylistID  int64
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// MAPPERS

func NewGenerateFromUploadReq(name string, ownerID *int64, audio *UploadedAudio) *GenerateFromUploadReq {
	return &GenerateFromUploadReq{
		Name:    name,
		OwnerID: ownerID,
		Audio:   audio,
	}
}

func NewGenerateFromTrackReq(name string, ownerID *int64, seedTrackID int64) *GenerateFromTrackReq {
	return &GenerateFromTrackReq{
		Name:        name,
		OwnerID:     ownerID,
		SeedTrackID: seedTrackID,
	}
}

func NewUploadedAudio(data []byte, mimeType string, size int64, name string) *UploadedAudio {
	return &UploadedAudio{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewTaskStatusRes(task *domain.Task) *TaskStatusRes {
	return &TaskStatusRes{
		TaskID:    task.ID,
		Status:    task.Status,
		Stage:     task.Stage,
		Result:    task.Result,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

func NewSimilarUsersReq(userID int64, limit int) *SimilarUsersReq {
	return &SimilarUsersReq{
		UserID: userID,
		Limit:  limit,
	}
}

func NewSimilarUsersRes(users []SimilarUser) *SimilarUsersRes {
	return &SimilarUsersRes{Users: users}
}

func NewRebuildIndexRes(users, vectors int) *RebuildIndexRes {
	return &RebuildIndexRes{
		Users:   users,
		Vectors: vectors,
	}
}

func NewStoreScratchReq(name string, audio *UploadedAudio) *StoreScratchReq {
	return &StoreScratchReq{
		Name:  name,
		Audio: audio,
	}
}

func NewWriteRawMessageReq(playlistID int64, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		PlaylistID: playlistID,
		Payload:    payload,
	}
}

func NewOutboxEvent(eventID string, eventType OutboxEventType, playlistID int64, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:    eventID,
		EventType:  eventType,
		PlaylistID: playlistID,
		Payload:    payload,
		Status:     Pending,
		CreatedAt:  time.Now(),
	}
}
