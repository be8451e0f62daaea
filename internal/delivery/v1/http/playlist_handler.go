package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

type PlaylistHandler struct {
	playlistUsecase usecase.PlaylistUC
	logger          logger.Logger
}

func NewPlaylistHandler(playlistUsecase usecase.PlaylistUC, logger logger.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlistUsecase: playlistUsecase, logger: logger}
}

// generateFromUpload принимает multipart-форму с seed-аудио и ставит задачу
// генерации в очередь. Ответ — ID задачи, сам плейлист создаётся в фоне.
func (p *PlaylistHandler) generateFromUpload(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 60 << 20
		maxMemory           = 32 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	meta, err := parsePlaylistForm(r)
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	audio, err := parseAudio(r.MultipartForm.File["audio"])
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	taskID, err := p.playlistUsecase.EnqueueFromUpload(r.Context(), usecase.NewGenerateFromUploadReq(meta.Name, meta.OwnerID, audio))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
	})
}

// generateFromTrack ставит в очередь генерацию по существующему треку каталога.
func (p *PlaylistHandler) generateFromTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		OwnerID     *int64 `json:"owner_id"`
		SeedTrackID int64  `json:"seed_track_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	taskID, err := p.playlistUsecase.EnqueueFromTrack(r.Context(), usecase.NewGenerateFromTrackReq(body.Name, body.OwnerID, body.SeedTrackID))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
	})
}

// getTask возвращает состояние и результат задачи генерации.
func (p *PlaylistHandler) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		WriteError(w, e.ErrInvalidID)
		return
	}

	task, err := p.playlistUsecase.GetTask(r.Context(), taskID)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"task_id": task.TaskID,
		"status":  task.Status,
		"stage":   task.Stage,
		"result":  task.Result,
	})
}
