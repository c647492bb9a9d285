package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-service/internal/config"
	"plate-service/internal/export"
	"plate-service/internal/http/middleware"
	"plate-service/internal/model"
	"plate-service/internal/service"
	"plate-service/internal/storage"
	"plate-service/internal/watchlist"
)

type Handler struct {
	plates   *service.PlateService
	sync     *service.SyncService
	hotSheet *watchlist.Cache
	photos   *storage.PhotoStore
	config   *config.Config
	log      zerolog.Logger
}

func NewHandler(
	plates *service.PlateService,
	sync *service.SyncService,
	hotSheet *watchlist.Cache,
	photos *storage.PhotoStore,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		plates:   plates,
		sync:     sync,
		hotSheet: hotSheet,
		photos:   photos,
		config:   cfg,
		log:      log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		api.POST("/plates", h.createRecord)
		api.GET("/plates", h.listRecords)
		api.GET("/plates/export", h.exportRecords)
		api.POST("/plates/normalize", h.normalizePreview)
		api.POST("/plates/retry-failed", h.retryFailed)
		api.GET("/plates/:id", h.getRecord)
		api.PATCH("/plates/:id", h.updateRecord)
		api.DELETE("/plates/:id", h.deleteRecord)
		api.POST("/plates/:id/send", h.sendRecord)

		api.POST("/watchlist/refresh", h.refreshWatchlist)
		api.GET("/watchlist/status", h.watchlistStatus)

		api.POST("/photos", h.uploadPhoto)
	}
}

type createRecordRequest struct {
	PlateText  string `json:"plate_text" binding:"required"`
	SourceType string `json:"source_type" binding:"required"`
	FullImage  string `json:"full_image" binding:"required"`
	PlateImage string `json:"plate_image" binding:"required"`
}

func (h *Handler) createRecord(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
		return
	}
	if !principal.IsOfficer() {
		c.JSON(http.StatusForbidden, errorResponse("officer role required"))
		return
	}

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.plates.CreateRecord(c.Request.Context(), service.CreateRecordInput{
		FullImage:  req.FullImage,
		PlateImage: req.PlateImage,
		PlateText:  req.PlateText,
		SourceType: model.SourceType(req.SourceType),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) listRecords(c *gin.Context) {
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		record, err := h.plates.FindByPlateText(c.Request.Context(), plate)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(record))
		return
	}

	records, err := h.plates.ListRecords(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) getRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.plates.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(record))
}

type updateRecordRequest struct {
	PlateText  *string  `json:"plate_text"`
	SourceType *string  `json:"source_type"`
	Make       *string  `json:"make"`
	Model      *string  `json:"model"`
	Color      *string  `json:"color"`
	Notes      *string  `json:"notes"`
	Flags      []string `json:"flags"`
}

func (h *Handler) updateRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	input := service.UpdateRecordInput{
		PlateText: req.PlateText,
		Make:      req.Make,
		Model:     req.Model,
		Color:     req.Color,
		Notes:     req.Notes,
		Flags:     req.Flags,
	}
	if req.SourceType != nil {
		sourceType := model.SourceType(*req.SourceType)
		input.SourceType = &sourceType
	}

	record, err := h.plates.UpdateRecord(c.Request.Context(), id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) deleteRecord(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
		return
	}
	if !principal.IsSupervisor() {
		c.JSON(http.StatusForbidden, errorResponse("supervisor role required"))
		return
	}

	id, idOK := parseID(c)
	if !idOK {
		return
	}
	if err := h.plates.DeleteRecord(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type normalizeRequest struct {
	PlateText string `json:"plate_text" binding:"required"`
	MaxLength int    `json:"max_length"`
}

func (h *Handler) normalizePreview(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	formatted, confidence := h.plates.NormalizeWithin(req.PlateText, req.MaxLength)
	c.JSON(http.StatusOK, gin.H{
		"formatted":  formatted,
		"confidence": confidence,
	})
}

func (h *Handler) sendRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	record, err := h.sync.SendRecord(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) retryFailed(c *gin.Context) {
	outcomes, err := h.sync.RetryFailed(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attempted": len(outcomes),
		"outcomes":  outcomes,
	})
}

type refreshWatchlistRequest struct {
	Plates []string `json:"plates"`
}

// refreshWatchlist triggers a refresh cycle. An explicit plate list in the
// body replaces the snapshot directly; otherwise the list is pulled from
// dispatch.
func (h *Handler) refreshWatchlist(c *gin.Context) {
	var req refreshWatchlistRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	var (
		report service.RefreshReport
		err    error
	)
	if len(req.Plates) > 0 {
		// Replacing the hot sheet by hand overrides what dispatch says;
		// only admins may do that.
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
			return
		}
		if !principal.IsAdmin() {
			c.JSON(http.StatusForbidden, errorResponse("admin role required"))
			return
		}
		report, err = h.sync.RefreshWatchlistFrom(c.Request.Context(), req.Plates)
	} else {
		report, err = h.sync.RefreshWatchlist(c.Request.Context())
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) watchlistStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries":           h.hotSheet.Len(),
		"last_refreshed_at": h.hotSheet.LastRefreshedAt(),
		"last_cycle":        h.sync.LastReport(),
	})
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
		return
	}
	if !principal.IsOfficer() {
		c.JSON(http.StatusForbidden, errorResponse("officer role required"))
		return
	}

	if h.photos == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("photo storage not configured"))
		return
	}

	kind := storage.PhotoKind(c.PostForm("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse("kind must be full or plate"))
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("photo file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open uploaded photo")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.photos.UploadCapture(c.Request.Context(), kind, fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("failed to upload photo")
		c.JSON(http.StatusInternalServerError, errorResponse("upload failed"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handler) exportRecords(c *gin.Context) {
	records, err := h.plates.ListRecords(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	buf, err := export.PlateRecordsXLSX(records)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build export workbook")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	filename := fmt.Sprintf("plates-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid record id"))
		return 0, false
	}
	return id, true
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
