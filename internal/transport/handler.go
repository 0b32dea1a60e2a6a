package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-photo-culler/internal/config"
	apperrors "go-photo-culler/internal/errors"
	"go-photo-culler/internal/logger"
	"go-photo-culler/internal/observer"
	"go-photo-culler/internal/orchestrator"
	"go-photo-culler/internal/store"
	"go-photo-culler/pkg/models"
)

type BatchRequest struct {
	Name  string             `json:"name" binding:"required"`
	Files []models.BatchFile `json:"files" binding:"required"`
}

type BestRequest struct {
	ImageID int64 `json:"image_id" binding:"required"`
}

type DispositionRequest struct {
	Disposition models.Disposition `json:"disposition" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler exposes the culling engine over HTTP.
type Handler struct {
	orch    *orchestrator.Orchestrator
	manager *orchestrator.Manager
	records store.RecordStore
	metrics *observer.MetricsObserver
	cfg     *config.Config
}

// NewHandler builds the gin router for the batch API.
func NewHandler(orch *orchestrator.Orchestrator, manager *orchestrator.Manager, records store.RecordStore, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	h := &Handler{
		orch:    orch,
		manager: manager,
		records: records,
		metrics: metrics,
		cfg:     cfg,
	}

	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", h.getMetrics)
	r.GET("/analytics", h.getAnalytics)

	r.POST("/batches", h.createBatch)
	r.GET("/batches", h.listBatches)
	r.GET("/batches/:id", h.getBatch)
	r.GET("/batches/:id/progress", h.getProgress)
	r.POST("/batches/:id/pause", h.pauseBatch)
	r.POST("/batches/:id/resume", h.resumeBatch)
	r.POST("/batches/:id/cancel", h.cancelBatch)
	r.GET("/batches/:id/images", h.listImages)
	r.GET("/batches/:id/groups", h.listGroups)
	r.DELETE("/batches/:id", h.deleteBatch)

	r.GET("/groups/:id/images", h.listGroupImages)
	r.POST("/groups/:id/keep-best", h.keepBest)
	r.POST("/groups/:id/best", h.setBest)
	r.POST("/groups/:id/dismiss", h.dismissGroup)

	r.PATCH("/images/:id", h.updateImage)

	return r
}

func (h *Handler) createBatch(c *gin.Context) {
	logger.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"ip":     c.ClientIP(),
	}).Info("Processing batch creation request")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	run, err := h.orch.NewRun(c.Request.Context(), req.Name, req.Files)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to create batch", err)
		return
	}
	h.manager.Register(run)

	// The run outlives this request; detach it from the request context.
	go func() {
		if err := run.Execute(context.Background()); err != nil {
			logger.WithBatch(run.ID).WithError(err).Error("Batch run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": run.ID,
		"total":    len(req.Files),
		"status":   run.Status(),
	})
}

func (h *Handler) listBatches(c *gin.Context) {
	batches, err := h.records.ListBatches(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list batches", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *Handler) getBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	batch, err := h.records.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *Handler) getProgress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if run := h.manager.Get(id); run != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   run.Status(),
			"progress": run.Progress(),
		})
		return
	}

	// No live run; fall back to the persisted record.
	batch, err := h.records.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": batch.Status,
		"progress": models.BatchProgress{
			Total:     batch.Total,
			Processed: batch.Processed,
			Accepted:  batch.Accepted,
			Rejected:  batch.Rejected,
			Review:    batch.Review,
		},
	})
}

func (h *Handler) pauseBatch(c *gin.Context) {
	h.withRun(c, func(run *orchestrator.Run) {
		if err := run.Pause(); err != nil {
			respondError(c, http.StatusConflict, "batch already finished", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": run.Status()})
	})
}

func (h *Handler) resumeBatch(c *gin.Context) {
	h.withRun(c, func(run *orchestrator.Run) {
		if err := run.Resume(); err != nil {
			respondError(c, http.StatusConflict, "batch already finished", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": run.Status()})
	})
}

func (h *Handler) cancelBatch(c *gin.Context) {
	h.withRun(c, func(run *orchestrator.Run) {
		run.Cancel()
		c.JSON(http.StatusOK, gin.H{"status": "cancel_requested"})
	})
}

func (h *Handler) withRun(c *gin.Context, fn func(run *orchestrator.Run)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	run := h.manager.Get(id)
	if run == nil {
		respondError(c, http.StatusNotFound, "no active run for batch",
			apperrors.NewNotFoundError(fmt.Sprintf("batch %d has no active run", id), nil))
		return
	}
	fn(run)
}

func (h *Handler) listImages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	disposition := models.Disposition(c.Query("disposition"))
	images, err := h.records.ListBatchImages(c.Request.Context(), id, disposition)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *Handler) listGroups(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	groups, err := h.records.ListDuplicateGroups(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *Handler) listGroupImages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	images, err := h.records.ListGroupImages(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// keepBest accepts the group's best image and rejects every other member.
func (h *Handler) keepBest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	group, err := h.records.GetGroup(ctx, id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	members, err := h.records.ListGroupImages(ctx, id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	best := group.EffectiveBest()
	var losers []int64
	for _, m := range members {
		if m.ID != best {
			losers = append(losers, m.ID)
		}
	}

	if err := h.records.UpdateImageDisposition(ctx, best, models.DispositionAccepted); err != nil {
		respondStoreError(c, err)
		return
	}
	if err := h.records.BulkUpdateImageDisposition(ctx, losers, models.DispositionRejected); err != nil {
		respondStoreError(c, err)
		return
	}
	if err := h.records.AdjustBatchCounters(ctx, group.BatchID, 1, len(losers), -len(members)); err != nil {
		respondStoreError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"group_id": id,
		"kept":     best,
		"rejected": len(losers),
	}).Info("Kept best image in group")

	c.JSON(http.StatusOK, gin.H{"kept": best, "rejected": losers})
}

func (h *Handler) setBest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req BestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if err := h.records.SetGroupBestOverride(c.Request.Context(), id, req.ImageID); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": id, "best_image_id": req.ImageID})
}

func (h *Handler) dismissGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.records.DismissGroup(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": id})
}

func (h *Handler) updateImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req DispositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	switch req.Disposition {
	case models.DispositionAccepted, models.DispositionRejected, models.DispositionReview:
	default:
		respondError(c, http.StatusBadRequest, "invalid disposition",
			apperrors.NewValidationError(fmt.Sprintf("unknown disposition %q", req.Disposition), nil))
		return
	}
	if err := h.records.UpdateImageDisposition(c.Request.Context(), id, req.Disposition); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_id": id, "disposition": req.Disposition})
}

func (h *Handler) deleteBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if run := h.manager.Get(id); run != nil {
		run.Cancel()
		h.manager.Remove(id)
	}
	if err := h.records.DeleteBatch(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) getAnalytics(c *gin.Context) {
	summary, err := h.records.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to compute analytics", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid identifier",
			apperrors.NewValidationError(fmt.Sprintf("invalid id %q", c.Param("id")), err))
		return 0, false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrBatchNotFound),
		errors.Is(err, store.ErrImageNotFound),
		errors.Is(err, store.ErrGroupNotFound):
		respondError(c, http.StatusNotFound, "record not found", err)
	default:
		respondError(c, http.StatusInternalServerError, "storage failure", err)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
