package result

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"productlogik/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get godoc
// @Summary Analysis for an upload
// @Description Returns status pending until the background analysis has stored a result.
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "Upload ID"
// @Success 200 {object} AnalysisView
// @Failure 401,403,404,500 {object} map[string]interface{}
// @Router /analysis/{upload_id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	view, err := h.service.Get(c.Request.Context(), c.Param("upload_id"), userID)
	if err != nil {
		writeGetError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func writeGetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUploadNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Upload not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "ANALYSIS_FAILED", "Failed to load analysis")
	}
}
