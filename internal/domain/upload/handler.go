package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"productlogik/internal/domain/quota"
	"productlogik/internal/pkg/response"
	"productlogik/internal/tabular"
)

// multipartOverhead is the allowance for boundaries and part headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload godoc
// @Summary Upload a feedback CSV
// @Description Parses the file, stores its feedback entries and queues the analysis.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 201 {object} SubmitResponse
// @Failure 400,401,413,429,500 {object} map[string]interface{}
// @Router /uploads [post]
func (h *Handler) Upload(c *gin.Context) {
	userID := mustUserID(c)
	if userID == 0 {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", tabular.ErrFileTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrNoFile.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", "Could not read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.service.Submit(c.Request.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}

	u := result.Upload
	response.Success(c, http.StatusCreated, SubmitResponse{
		UploadID:       u.ID,
		Filename:       u.Filename,
		RowCount:       u.RowCount,
		Status:         u.Status,
		FeedbackColumn: result.FeedbackColumn,
		SkippedBlank:   result.SkippedBlank,
	})
}

func (h *Handler) writeSubmitError(c *gin.Context, err error) {
	var limitErr *quota.LimitError
	switch {
	case errors.As(err, &limitErr):
		response.ErrorWithDetails(c, http.StatusTooManyRequests, "QUOTA_EXCEEDED",
			fmt.Sprintf("Monthly analysis limit reached (%d/%d)", limitErr.Current, limitErr.Limit),
			gin.H{
				"current":    limitErr.Current,
				"limit":      limitErr.Limit,
				"plan_name":  limitErr.PlanName,
				"upgrade_to": limitErr.UpgradeTo,
			})
	case errors.Is(err, ErrNotCSV):
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
	case errors.Is(err, tabular.ErrInvalidFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", "File is not readable as delimited text")
	case errors.Is(err, tabular.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d byte limit", h.service.MaxBytes()))
	case errors.Is(err, tabular.ErrTooManyRows):
		response.Error(c, http.StatusBadRequest, "TOO_MANY_ROWS", err.Error())
	case errors.Is(err, tabular.ErrEmpty):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", err.Error())
	case errors.Is(err, tabular.ErrNoFeedbackColumn):
		response.Error(c, http.StatusBadRequest, "NO_FEEDBACK_COLUMN",
			"No feedback text column found. Add a column such as description, feedback or comment.")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Upload failed")
	}
}

// List godoc
// @Summary List recent uploads
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ListItem
// @Router /uploads [get]
func (h *Handler) List(c *gin.Context) {
	userID := mustUserID(c)
	if userID == 0 {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list uploads")
		return
	}
	response.Success(c, http.StatusOK, items)
}

func (h *Handler) Get(c *gin.Context) {
	userID := mustUserID(c)
	if userID == 0 {
		return
	}

	u, err := h.service.Get(c.Request.Context(), userID, c.Param("upload_id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUploadNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		case errors.Is(err, ErrNotOwner):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to load upload")
		}
		return
	}
	response.Success(c, http.StatusOK, u)
}

func mustUserID(c *gin.Context) int64 {
	id, exists := c.Get("user_id")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return 0
	}
	switch v := id.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user id")
	return 0
}
