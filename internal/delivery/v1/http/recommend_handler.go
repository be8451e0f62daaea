package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

type RecommendHandler struct {
	recommendUsecase usecase.RecommendUC
	indexUsecase     usecase.IndexUC
	logger           logger.Logger
}

func NewRecommendHandler(recommendUsecase usecase.RecommendUC, indexUsecase usecase.IndexUC, logger logger.Logger) *RecommendHandler {
	return &RecommendHandler{
		recommendUsecase: recommendUsecase,
		indexUsecase:     indexUsecase,
		logger:           logger,
	}
}

// similarUsers возвращает пользователей с наиболее близким вкусом.
func (h *RecommendHandler) similarUsers(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		WriteError(w, e.ErrInvalidID)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			WriteError(w, e.ErrStatusBadRequest)
			return
		}
	}

	res, err := h.recommendUsecase.SimilarUsers(r.Context(), usecase.NewSimilarUsersReq(userID, limit))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	users := make([]map[string]interface{}, 0, len(res.Users))
	for _, user := range res.Users {
		users = append(users, map[string]interface{}{
			"user_id": user.UserID,
			"score":   user.Score,
		})
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// rebuildIndex — операторский триггер перестройки пользовательского индекса.
func (h *RecommendHandler) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	res, err := h.indexUsecase.RebuildUserIndex(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"users":   res.Users,
		"vectors": res.Vectors,
	})
}
