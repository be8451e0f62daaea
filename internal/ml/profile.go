package ml

import (
	"context"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// kmeansSeed фиксирован ради воспроизводимости профилей между пересчётами
const kmeansSeed = 42

// VectorLookup отдаёт предрассчитанный вектор трека.
// Отсутствие вектора — мягкий промах: (nil, nil), не ошибка.
type VectorLookup interface {
	GetVector(ctx context.Context, trackID int64) ([]float32, error)
}

// ProfileBuilder строит вкусовой профиль пользователя из истории прослушиваний.
type ProfileBuilder struct {
	vectors      VectorLookup
	clusterCount int
	inits        int
	logger       logger.Logger
}

func NewProfileBuilder(vectors VectorLookup, clusterCount, inits int, logger logger.Logger) *ProfileBuilder {
	return &ProfileBuilder{
		vectors:      vectors,
		clusterCount: clusterCount,
		inits:        inits,
		logger:       logger,
	}
}

// Build строит профиль по списку прослушанных треков.
// Треки без эмбеддинга молча отбрасываются. Если эмбеддингов не осталось,
// возвращается пустой профиль (пользователь нерекомендуем). Если их меньше K —
// единственный центроид-среднее. Ошибка кластеризации также деградирует
// к среднему вектору, а не падает наверх.
func (b *ProfileBuilder) Build(ctx context.Context, userID int64, trackIDs []int64) (*domain.TasteProfile, error) {
	embeddings := make([][]float32, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		vec, err := b.vectors.GetVector(ctx, trackID)
		if err != nil {
			return nil, err
		}
		if vec == nil {
			continue // soft miss
		}
		embeddings = append(embeddings, vec)
	}

	return b.BuildFromVectors(userID, embeddings), nil
}

// BuildFromVectors строит профиль из уже загруженных эмбеддингов.
// Используется при батчевом пересчёте, когда векторы получены заранее.
func (b *ProfileBuilder) BuildFromVectors(userID int64, embeddings [][]float32) *domain.TasteProfile {
	if len(embeddings) == 0 {
		return domain.NewTasteProfile(userID, nil)
	}

	if len(embeddings) < b.clusterCount {
		return domain.NewTasteProfile(userID, [][]float32{Mean(embeddings)})
	}

	centroids, err := KMeans(embeddings, b.clusterCount, b.inits, kmeansSeed)
	if err != nil {
		b.logger.Warnf("clustering failed for user %d, falling back to mean vector: %v", userID, err)
		return domain.NewTasteProfile(userID, [][]float32{Mean(embeddings)})
	}

	return domain.NewTasteProfile(userID, centroids)
}
