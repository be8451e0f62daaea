package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/jimlawless/whereami"

	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PlaylistMetadata — общие поля обоих запросов генерации плейлиста.
type PlaylistMetadata struct {
	Name    string
	OwnerID *int64
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrInvalidID):
		return http.StatusBadRequest, e.ErrInvalidID.Error()
	case errors.Is(err, e.ErrPlaylistNameRequired):
		return http.StatusBadRequest, e.ErrPlaylistNameRequired.Error()
	case errors.Is(err, e.ErrNoSeedAudio):
		return http.StatusBadRequest, e.ErrNoSeedAudio.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrTaskNotFound):
		return http.StatusNotFound, e.ErrTaskNotFound.Error()
	case errors.Is(err, e.ErrSchedulerStopped):
		return http.StatusServiceUnavailable, e.ErrSchedulerStopped.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	return r.ParseMultipartForm(maxMemory)
}

// parsePlaylistForm читает общие поля формы. Владелец опционален:
// анонимная генерация допустима.
func parsePlaylistForm(r *http.Request) (*PlaylistMetadata, error) {
	name := r.FormValue("name")
	if name == "" {
		return nil, e.Wrap(fmt.Sprintf("name: %s\n", name), e.ErrMissingFields)
	}

	ownerID, err := parseOptionalOwner(r.FormValue("owner_id"))
	if err != nil {
		return nil, err
	}

	return &PlaylistMetadata{
		Name:    name,
		OwnerID: ownerID,
	}, nil
}

func parseOptionalOwner(s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, e.ErrInvalidID
	}

	return &id, nil
}

func parseAudio(files []*multipart.FileHeader) (*usecase.UploadedAudio, error) {
	const maxFileSize = 50 << 20

	if len(files) == 0 {
		return nil, e.ErrNoSeedAudio
	}

	// используется ровно один файл, лишние игнорируются
	fh := files[0]

	data, mimeType, err := readFile(fh, maxFileSize)
	if err != nil {
		return nil, err
	}

	return usecase.NewUploadedAudio(data, mimeType, int64(len(data)), fh.Filename), nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data[:min(len(data), 512)])
	}
	return data, mimeType, nil
}
