package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с векторами и индексами
	ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")
	ErrIndexNotReady     = fmt.Errorf("vector index is not loaded")

	// Ошибки пайплайна генерации плейлистов
	ErrSeedEmbeddingNotFound = fmt.Errorf("seed embedding not found")
	ErrNoSimilarTracks       = fmt.Errorf("no similar tracks found in catalog")
	ErrTaskNotFound          = fmt.Errorf("task not found")
	ErrSchedulerStopped      = fmt.Errorf("task scheduler is stopped")

	// 400 Bad Request
	ErrPlaylistNameRequired = fmt.Errorf("playlist name is required")
	ErrNoSeedAudio          = fmt.Errorf("no seed audio provided")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrFileTooLarge         = fmt.Errorf("file is too large")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields        = fmt.Errorf("missing required fields")
	ErrInvalidID            = fmt.Errorf("invalid identifier")

	// 404 / 500
	ErrInternalServerError = fmt.Errorf("internal server error")
	ErrStatusBadRequest    = fmt.Errorf("bad request")

	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
