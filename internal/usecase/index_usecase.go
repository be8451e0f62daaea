package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/metrics"
	"github.com/jayyoonakajaeha/MUSEED/internal/ml"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// IndexUseCase управляет жизненным циклом двух ANN-индексов: трекового,
// загружаемого из артефакта на диске, и пользовательского, перестраиваемого
// из историй прослушиваний.
type IndexUseCase struct {
	historyRepo HistoryRepository
	userRepo    UserRepository
	embeddings  EmbeddingStore
	profiles    *ml.ProfileBuilder
	trackIndex  *ml.VectorIndex
	userIndex   *ml.VectorIndex
	cfg         *cfg.IndexCfg
	logger      logger.Logger
}

func NewIndexUC(
	historyRepo HistoryRepository,
	userRepo UserRepository,
	embeddings EmbeddingStore,
	profiles *ml.ProfileBuilder,
	trackIndex *ml.VectorIndex,
	userIndex *ml.VectorIndex,
	cfg *cfg.IndexCfg,
	logger logger.Logger,
) *IndexUseCase {
	return &IndexUseCase{
		historyRepo: historyRepo,
		userRepo:    userRepo,
		embeddings:  embeddings,
		profiles:    profiles,
		trackIndex:  trackIndex,
		userIndex:   userIndex,
		cfg:         cfg,
		logger:      logger,
	}
}

// LoadTrackIndex загружает трековый индекс из артефакта. Если артефакта нет,
// индекс строится из хранилища эмбеддингов и артефакт записывается заново.
func (i *IndexUseCase) LoadTrackIndex(ctx context.Context) error {
	const op = "IndexUseCase.LoadTrackIndex"

	f, err := os.Open(i.cfg.TrackIndexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return e.Wrap(op, err)
		}

		i.logger.Infof("track index artifact not found at %s, rebuilding from embedding store", i.cfg.TrackIndexPath)

		return i.rebuildTrackIndex(ctx)
	}
	defer f.Close()

	if err := i.trackIndex.Load(f); err != nil {
		return e.Wrap(op, err)
	}

	metrics.IndexVectors.WithLabelValues("tracks").Set(float64(i.trackIndex.Len()))
	i.logger.Infof("track index loaded. vectors: %d", i.trackIndex.Len())

	return nil
}

// RebuildUserIndex перестраивает пользовательский индекс из актуальных
// профилей. Поиск по старому снапшоту продолжается до момента подмены.
func (i *IndexUseCase) RebuildUserIndex(ctx context.Context) (*RebuildIndexRes, error) {
	const op = "IndexUseCase.RebuildUserIndex"

	userIDs, err := i.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	histories, err := i.historyRepo.GetForUsers(ctx, userIDs)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vectors, err := i.fetchVectors(ctx, histories)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	items := make([]ml.IndexItem, 0, len(userIDs))
	total := 0
	for _, userID := range userIDs {
		embeddings := make([][]float32, 0, len(histories[userID]))
		for _, trackID := range histories[userID] {
			if vec, ok := vectors[trackID]; ok {
				embeddings = append(embeddings, vec)
			}
		}

		profile := i.profiles.BuildFromVectors(userID, embeddings)
		if profile.IsEmpty() {
			continue
		}

		items = append(items, ml.IndexItem{ID: userID, Vectors: profile.Centroids})
		total += len(profile.Centroids)
	}

	if err := i.userIndex.Rebuild(items); err != nil {
		return nil, e.Wrap(op, err)
	}

	metrics.IndexVectors.WithLabelValues("users").Set(float64(total))
	i.logger.Infof("user index rebuilt. users: %d, vectors: %d", len(items), total)

	return NewRebuildIndexRes(len(items), total), nil
}

// rebuildTrackIndex строит трековый индекс по всем объектам хранилища
// эмбеддингов и сохраняет артефакт для следующего запуска.
func (i *IndexUseCase) rebuildTrackIndex(ctx context.Context) error {
	const op = "IndexUseCase.rebuildTrackIndex"

	trackIDs, err := i.embeddings.ListTrackIDs(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	items := make([]ml.IndexItem, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		vec, err := i.embeddings.GetVector(ctx, trackID)
		if err != nil {
			return e.Wrap(op, err)
		}
		if vec == nil {
			continue
		}

		items = append(items, ml.IndexItem{ID: trackID, Vectors: [][]float32{vec}})
	}

	if err := i.trackIndex.Rebuild(items); err != nil {
		return e.Wrap(op, err)
	}

	metrics.IndexVectors.WithLabelValues("tracks").Set(float64(i.trackIndex.Len()))
	i.logger.Infof("track index rebuilt. vectors: %d", i.trackIndex.Len())

	if err := i.saveTrackIndex(); err != nil {
		// индекс уже в памяти, провал записи артефакта не фатален
		i.logger.Warnf("failed to persist track index artifact: %v", e.Wrap(op, err))
	}

	return nil
}

// saveTrackIndex пишет артефакт атомарно: во временный файл с переименованием.
func (i *IndexUseCase) saveTrackIndex() error {
	dir := filepath.Dir(i.cfg.TrackIndexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "track_index_*.bin")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := i.trackIndex.Save(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), i.cfg.TrackIndexPath)
}

// fetchVectors загружает эмбеддинги всех треков из переданных историй один раз.
func (i *IndexUseCase) fetchVectors(ctx context.Context, histories map[int64][]int64) (map[int64][]float32, error) {
	vectors := make(map[int64][]float32)
	for _, history := range histories {
		for _, trackID := range history {
			if _, ok := vectors[trackID]; ok {
				continue
			}

			vec, err := i.embeddings.GetVector(ctx, trackID)
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
