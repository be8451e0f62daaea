package usecase

import (
	"context"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
)

type TrackRepository interface {
	FilterExisting(ctx context.Context, ids []int64) ([]int64, error)
}

type HistoryRepository interface {
	GetForUser(ctx context.Context, userID int64) ([]int64, error)
	GetForUsers(ctx context.Context, userIDs []int64) (map[int64][]int64, error)
}

type PlaylistRepository interface {
	Create(ctx context.Context, playlist *domain.Playlist) (*domain.Playlist, error)
}

type UserRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}

// EmbeddingStore — хранилище предрассчитанных эмбеддингов треков.
// Отсутствующий вектор — не ошибка: GetVector возвращает (nil, nil).
type EmbeddingStore interface {
	GetVector(ctx context.Context, trackID int64) ([]float32, error)
	ListTrackIDs(ctx context.Context) ([]int64, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
}
