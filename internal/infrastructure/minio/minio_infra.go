package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jayyoonakajaeha/MUSEED/internal/infrastructure"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// UploadRepository — операции над временными объектами в MinIO.
type UploadRepository interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UploadsInfrastructure управляет временным хранением seed-загрузок.
// Объект живёт один прогон пайплайна, очистка выполняется в фоне с повторами.
type UploadsInfrastructure struct {
	uploadRepo  UploadRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
}

func NewUploadsInfrastructure(uploadRepo UploadRepository, logger logger.Logger, shutdownCtx context.Context) *UploadsInfrastructure {
	return &UploadsInfrastructure{
		uploadRepo:  uploadRepo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
	}
}

// StoreScratch сохраняет загруженное аудио во временное хранилище и
// возвращает ключ объекта.
func (m *UploadsInfrastructure) StoreScratch(ctx context.Context, req *usecase.StoreScratchReq) (string, error) {
	const op = "UploadsInfrastructure.StoreScratch"

	ext, err := infrastructure.GetExtensionFromMIME(req.Audio.MimeType)
	if err != nil {
		return "", e.Wrap(op, fmt.Errorf("invalid mime type %s for %s: %w", req.Audio.MimeType, req.Audio.Name, err))
	}

	objKey := fmt.Sprintf("%s/%s.%s", req.Name, uuid.NewString(), ext)

	key, err := m.uploadRepo.Upload(ctx, objKey, req.Audio.Data, req.Audio.MimeType)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return key, nil
}

// FetchScratch возвращает байты ранее сохранённого объекта.
func (m *UploadsInfrastructure) FetchScratch(ctx context.Context, key string) ([]byte, error) {
	const op = "UploadsInfrastructure.FetchScratch"

	data, err := m.uploadRepo.Get(ctx, key)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return data, nil
}

// CleanupScratch запускает фоновую очистку указанных ключей MinIO
func (m *UploadsInfrastructure) CleanupScratch(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupKeys(keys)
}

// cleanupKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *UploadsInfrastructure) cleanupKeys(keys []string) {
	defer m.wg.Done()
	const op = "UploadsInfrastructure.cleanupKeys"
	m.logger.Debugf("%s: Cleaning up scratch keys", op)

	// Создаём контекст с таймаутом на основе shutdownCtx
	ctx, cancel := context.WithTimeout(m.shutdownCtx, 30*time.Second)
	defer cancel()

	for _, key := range keys {
		backoff := time.Second
		for attempt := 0; attempt < 3; attempt++ {
			if err := m.uploadRepo.Delete(ctx, key); err == nil {
				break // Успешно удалено
			}

			// Проверяем, не отменён ли контекст
			select {
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			default:
			}

			if attempt < 2 {
				// Добавляем jitter для распределения нагрузки
				jitter := time.Duration(time.Now().UnixNano() % int64(time.Second))
				sleepTime := backoff + jitter

				select {
				case <-time.After(sleepTime):
				case <-ctx.Done():
					m.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", key)
					return
				}
				backoff *= 2
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *UploadsInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
