// Package embedder получает векторные представления seed-аудио: декодирует
// загруженный файл, готовит фрагменты и отправляет их на внешний
// inference-сервис.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/ml"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/jitter"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// Embedder — клиент внешнего inference-сервиса эмбеддингов.
type Embedder struct {
	httpClient *http.Client
	cfg        *cfg.EmbedderCfg
	dim        int
	logger     logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEmbedder(cfg *cfg.EmbedderCfg, dim int, logger logger.Logger) *Embedder {
	return &Embedder{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		dim:        dim,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// EmbedAudio превращает загруженное аудио в один нормализованный вектор:
// декодирование, ресемплинг до целевой частоты, нарезка фрагментов,
// инференс по каждому фрагменту и усреднение.
func (m *Embedder) EmbedAudio(ctx context.Context, audio *usecase.UploadedAudio) ([]float32, error) {
	const op = "Embedder.EmbedAudio"

	samples, sampleRate, err := decodeAudio(audio.Data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	samples = resample(samples, sampleRate, m.cfg.SampleRate)
	if len(samples) == 0 {
		return nil, e.Wrap(op, e.ErrNoSeedAudio)
	}

	cropLen := m.cfg.SampleRate * m.cfg.CropSec

	m.mu.Lock()
	fragments := crops(samples, cropLen, m.rng)
	m.mu.Unlock()

	vectors := make([][]float32, 0, len(fragments))
	for _, fragment := range fragments {
		vec, err := m.embedFragment(ctx, fragment)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		vectors = append(vectors, vec)
	}

	return ml.NormalizeL2(ml.Mean(vectors)), nil
}

// embedFragment отправляет один фрагмент на инференс с retry-логикой и
// экспоненциальной задержкой.
func (m *Embedder) embedFragment(ctx context.Context, fragment []float32) ([]float32, error) {
	const (
		op         = "Embedder.embedFragment"
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	var lastErr error
	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		vec, err := m.requestEmbedding(ctx, fragment)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if attempt == m.cfg.MaxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		m.logger.Warnf("inference failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", m.cfg.MaxRetries, lastErr))
}

// requestEmbedding выполняет один HTTP-запрос к inference-сервису.
func (m *Embedder) requestEmbedding(ctx context.Context, fragment []float32) ([]float32, error) {
	body, err := json.Marshal(struct {
		Samples    []float32 `json:"samples"`
		SampleRate int       `json:"sample_rate"`
	}{
		Samples:    fragment,
		SampleRate: m.cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Addr+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("inference service returned %d: %s", res.StatusCode, payload)
	}

	var parsed struct {
		Vector       []float32 `json:"vector"`
		ModelVersion string    `json:"model_version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	if len(parsed.Vector) != m.dim {
		return nil, fmt.Errorf("inference returned %d dims, want %d: %w", len(parsed.Vector), m.dim, e.ErrDimensionMismatch)
	}

	return parsed.Vector, nil
}
