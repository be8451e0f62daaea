package minio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

const embeddingExt = ".f32"

// EmbeddingRepo реализует хранилище эмбеддингов треков поверх MinIO.
// Объект на трек: <track_id>.f32, float32 little-endian длиной D.
type EmbeddingRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
	dim int
}

func NewEmbeddingRepo(mc *minio.Client, cfg *cfg.MinIOCfg, dim int) *EmbeddingRepo {
	return &EmbeddingRepo{
		mc:  mc,
		cfg: cfg,
		dim: dim,
	}
}

// GetVector возвращает эмбеддинг трека. Отсутствие объекта — не ошибка,
// вызывающий код обязан обработать (nil, nil) как мягкий промах.
func (r *EmbeddingRepo) GetVector(ctx context.Context, trackID int64) ([]float32, error) {
	obj, err := r.mc.GetObject(ctx, r.cfg.EmbeddingsBucket, r.objectKey(trackID), minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.decodeVector(trackID, data)
}

// ListTrackIDs перечисляет треки, для которых в бакете есть эмбеддинг.
// Объекты с посторонними именами пропускаются.
func (r *EmbeddingRepo) ListTrackIDs(ctx context.Context) ([]int64, error) {
	result := make([]int64, 0)
	for obj := range r.mc.ListObjects(ctx, r.cfg.EmbeddingsBucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), obj.Err)
		}

		name := path.Base(obj.Key)
		if !strings.HasSuffix(name, embeddingExt) {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSuffix(name, embeddingExt), 10, 64)
		if err != nil {
			continue
		}

		result = append(result, id)
	}

	return result, nil
}

func (r *EmbeddingRepo) decodeVector(trackID int64, data []byte) ([]float32, error) {
	if len(data) != 4*r.dim {
		return nil, fmt.Errorf("%s: embedding for track %d has %d bytes, want %d: %w",
			whereami.WhereAmI(), trackID, len(data), 4*r.dim, e.ErrDimensionMismatch)
	}

	vector := make([]float32, r.dim)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}

	return vector, nil
}

func (r *EmbeddingRepo) objectKey(trackID int64) string {
	return strconv.FormatInt(trackID, 10) + embeddingExt
}
