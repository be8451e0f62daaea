package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

type fakePlaylistUC struct {
	taskID string
	err    error
	task   *usecase.TaskStatusRes
}

func (f *fakePlaylistUC) EnqueueFromUpload(context.Context, *usecase.GenerateFromUploadReq) (string, error) {
	return f.taskID, f.err
}

func (f *fakePlaylistUC) EnqueueFromTrack(context.Context, *usecase.GenerateFromTrackReq) (string, error) {
	return f.taskID, f.err
}

func (f *fakePlaylistUC) GetTask(context.Context, string) (*usecase.TaskStatusRes, error) {
	return f.task, f.err
}

type fakeRecommendUC struct {
	res *usecase.SimilarUsersRes
	err error
}

func (f *fakeRecommendUC) SimilarUsers(context.Context, *usecase.SimilarUsersReq) (*usecase.SimilarUsersRes, error) {
	return f.res, f.err
}

type fakeIndexUC struct {
	res *usecase.RebuildIndexRes
	err error
}

func (f *fakeIndexUC) LoadTrackIndex(context.Context) error { return f.err }

func (f *fakeIndexUC) RebuildUserIndex(context.Context) (*usecase.RebuildIndexRes, error) {
	return f.res, f.err
}

func newTestRouter(plUC usecase.PlaylistUC, recUC usecase.RecommendUC, idxUC usecase.IndexUC) *chi.Mux {
	mux := chi.NewRouter()
	NewRouter(mux, nopLogger{}).Init(plUC, recUC, idxUC)
	return mux
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{}, &fakeIndexUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateFromTrackAccepted(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{taskID: "task-42"}, &fakeRecommendUC{}, &fakeIndexUC{})

	body := bytes.NewReader([]byte(`{"name":"mix","seed_track_id":7}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists/generate-from-track", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"task_id":"task-42"}`, rec.Body.String())
}

func TestGenerateFromTrackBadJSON(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{}, &fakeIndexUC{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists/generate-from-track", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateFromUploadRejectsJSONBody(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{}, &fakeIndexUC{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists/generate", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateFromUploadAccepted(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{taskID: "task-1"}, &fakeRecommendUC{}, &fakeIndexUC{})

	body, contentType := multipartBody(t, map[string]string{"name": "mix"}, "audio", "seed.wav", []byte("RIFFxxxxWAVE"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists/generate", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"task_id":"task-1"}`, rec.Body.String())
}

func TestGetTaskNotFound(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{err: e.ErrTaskNotFound}, &fakeRecommendUC{}, &fakeIndexUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskSuccess(t *testing.T) {
	task := &usecase.TaskStatusRes{
		TaskID: "abc",
		Status: domain.TaskSuccess,
		Stage:  "done",
		Result: &domain.TaskResult{Success: true, PlaylistID: 5},
	}
	router := newTestRouter(&fakePlaylistUC{task: task}, &fakeRecommendUC{}, &fakeIndexUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		TaskID string             `json:"task_id"`
		Status string             `json:"status"`
		Result *domain.TaskResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "abc", parsed.TaskID)
	assert.Equal(t, "success", parsed.Status)
	require.NotNil(t, parsed.Result)
	assert.Equal(t, int64(5), parsed.Result.PlaylistID)
}

func TestSimilarUsersEndpoint(t *testing.T) {
	res := usecase.NewSimilarUsersRes([]usecase.SimilarUser{
		{UserID: 2, Score: 0.93},
		{UserID: 5, Score: 0.71},
	})
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{res: res}, &fakeIndexUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/1/similar?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Users []struct {
			UserID int64   `json:"user_id"`
			Score  float64 `json:"score"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Len(t, parsed.Users, 2)
	assert.Equal(t, int64(2), parsed.Users[0].UserID)
}

func TestSimilarUsersInvalidIDParam(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{err: e.ErrInvalidID}, &fakeIndexUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/abc/similar", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRebuildIndexEndpoint(t *testing.T) {
	router := newTestRouter(&fakePlaylistUC{}, &fakeRecommendUC{}, &fakeIndexUC{res: usecase.NewRebuildIndexRes(12, 31)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/rebuild", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":12,"vectors":31}`, rec.Body.String())
}
