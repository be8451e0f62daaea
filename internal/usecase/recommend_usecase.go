package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/metrics"
	"github.com/jayyoonakajaeha/MUSEED/internal/ml"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

const defaultSimilarUsersLimit = 10

// RecommendUseCase реализует двухэтапный поиск похожих пользователей:
// быстрая генерация кандидатов по ANN-индексу, затем точное
// переранжирование метрикой Чамфера по полным профилям.
type RecommendUseCase struct {
	historyRepo HistoryRepository
	userRepo    UserRepository
	embeddings  EmbeddingStore
	profiles    *ml.ProfileBuilder
	userIndex   *ml.VectorIndex
	cfg         *cfg.RecsCfg
	logger      logger.Logger
}

func NewRecommendUC(
	historyRepo HistoryRepository,
	userRepo UserRepository,
	embeddings EmbeddingStore,
	profiles *ml.ProfileBuilder,
	userIndex *ml.VectorIndex,
	cfg *cfg.RecsCfg,
	logger logger.Logger,
) *RecommendUseCase {
	return &RecommendUseCase{
		historyRepo: historyRepo,
		userRepo:    userRepo,
		embeddings:  embeddings,
		profiles:    profiles,
		userIndex:   userIndex,
		cfg:         cfg,
		logger:      logger,
	}
}

// SimilarUsers возвращает пользователей с наиболее близким вкусом.
// Сам пользователь и его подписки исключаются из выдачи. Результат
// best-effort: кандидаты без профиля молча пропускаются.
func (r *RecommendUseCase) SimilarUsers(ctx context.Context, req *SimilarUsersReq) (*SimilarUsersRes, error) {
	const op = "RecommendUseCase.SimilarUsers"

	if req.UserID <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSimilarUsersLimit
	}

	history, err := r.historyRepo.GetForUser(ctx, req.UserID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	profile, err := r.profiles.Build(ctx, req.UserID, history)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// без профиля рекомендация невозможна, но это не ошибка запроса
	if profile.IsEmpty() {
		return NewSimilarUsersRes(nil), nil
	}

	excluded, err := r.excludedIDs(ctx, req.UserID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	candidates, err := r.candidateIDs(ctx, profile, excluded)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(candidates) == 0 {
		return NewSimilarUsersRes(nil), nil
	}

	scored, err := r.rankCandidates(ctx, profile, candidates)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return NewSimilarUsersRes(scored), nil
}

// excludedIDs собирает множество исключений: сам пользователь и его подписки.
func (r *RecommendUseCase) excludedIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	following, err := r.userRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]struct{}, len(following)+1)
	excluded[userID] = struct{}{}
	for _, id := range following {
		excluded[id] = struct{}{}
	}

	return excluded, nil
}

// candidateIDs генерирует кандидатов по индексу профилей. Пустой индекс —
// деградация до линейного перебора всех пользователей.
func (r *RecommendUseCase) candidateIDs(ctx context.Context, profile *domain.TasteProfile, excluded map[int64]struct{}) ([]int64, error) {
	if r.userIndex.Ready() {
		started := time.Now()
		found, err := r.userIndex.SearchMany(profile.Centroids, r.cfg.CandidatesPerQuery)
		if err != nil {
			return nil, err
		}
		metrics.IndexSearchDuration.WithLabelValues("users").Observe(time.Since(started).Seconds())

		candidates := make([]int64, 0, len(found))
		for _, id := range found {
			if _, ok := excluded[id]; ok {
				continue
			}
			candidates = append(candidates, id)
		}

		return candidates, nil
	}

	r.logger.Debugf("user index is empty, falling back to linear candidate enumeration")

	all, err := r.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]int64, 0, len(all))
	for _, id := range all {
		if _, ok := excluded[id]; ok {
			continue
		}
		candidates = append(candidates, id)
	}

	return candidates, nil
}

// rankCandidates строит профили кандидатов по батчево загруженным историям и
// оценивает близость вкусов. Кандидаты с нулевой и отрицательной оценкой
// отбрасываются.
func (r *RecommendUseCase) rankCandidates(ctx context.Context, profile *domain.TasteProfile, candidates []int64) ([]SimilarUser, error) {
	histories, err := r.historyRepo.GetForUsers(ctx, candidates)
	if err != nil {
		return nil, err
	}

	// каждый трек грузится из хранилища один раз, даже если встречается
	// в нескольких историях
	vectors, err := r.fetchVectors(ctx, histories)
	if err != nil {
		return nil, err
	}

	scored := make([]SimilarUser, 0, len(candidates))
	for _, candidateID := range candidates {
		history := histories[candidateID]
		if len(history) == 0 {
			continue
		}

		embeddings := make([][]float32, 0, len(history))
		for _, trackID := range history {
			if vec, ok := vectors[trackID]; ok {
				embeddings = append(embeddings, vec)
			}
		}

		candidateProfile := r.profiles.BuildFromVectors(candidateID, embeddings)
		if candidateProfile.IsEmpty() {
			continue
		}

		score := ml.ChamferSimilarity(profile.Centroids, candidateProfile.Centroids)
		if score <= 0 {
			continue
		}

		scored = append(scored, SimilarUser{UserID: candidateID, Score: score})
	}

	return scored, nil
}

// fetchVectors загружает эмбеддинги всех треков из переданных историй,
// пропуская треки без векторов.
func (r *RecommendUseCase) fetchVectors(ctx context.Context, histories map[int64][]int64) (map[int64][]float32, error) {
	vectors := make(map[int64][]float32)
	for _, history := range histories {
		for _, trackID := range history {
			if _, ok := vectors[trackID]; ok {
				continue
			}

			vec, err := r.embeddings.GetVector(ctx, trackID)
			if err != nil {
				return nil, err
			}
			if vec == nil {
				continue
			}

			vectors[trackID] = vec
		}
	}

	return vectors, nil
}
