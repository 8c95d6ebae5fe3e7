package quota

import (
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

// GetUsage godoc
// @Summary Current analysis quota
// @Tags Usage
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UsageResponse
// @Router /usage [get]
func (h *Handler) GetUsage(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	q, err := h.service.Usage(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "USAGE_FAILED", "Failed to load usage")
		return
	}
	response.Success(c, http.StatusOK, toUsageResponse(q, h.service.Catalog()))
}

func (h *Handler) ListPlans(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Catalog().Plans)
}
