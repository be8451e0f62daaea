package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

// UploadRepo хранит временные seed-загрузки в отдельном бакете MinIO.
// Объекты живут ровно один прогон пайплайна и удаляются инфраструктурным слоем.
type UploadRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewUploadRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *UploadRepo {
	return &UploadRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает объект в бакет временных файлов.
func (u *UploadRepo) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	info, err := u.mc.PutObject(ctx, u.cfg.UploadsBucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Get возвращает байты временного объекта.
func (u *UploadRepo) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := u.mc.GetObject(ctx, u.cfg.UploadsBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

// Delete удаляет временный объект по указанному ключу.
func (u *UploadRepo) Delete(ctx context.Context, key string) error {
	if err := u.mc.RemoveObject(ctx, u.cfg.UploadsBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
