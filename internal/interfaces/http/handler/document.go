package handler

import (
	"context"

	"github.com/erp/taxsync/internal/application/reconcile"
	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconcileService defines the document operations the handler needs
type ReconcileService interface {
	Upsert(ctx context.Context, tenantID, period string, items []map[string]any) (*reconcile.BatchResult, error)
	Diff(ctx context.Context, tenantID, period string, remoteItems []map[string]any) (*reconcile.DiffResult, error)
	Sync(ctx context.Context, tenantID, period string) (*reconcile.SyncResult, error)
	HealthCheck(ctx context.Context, tenantID, period string) (*reconcile.HealthReport, error)
	List(ctx context.Context, tenantID string, q document.Query) (shared.Paginated[document.TaxDocument], error)
	Delete(ctx context.Context, tenantID, period string, ids []uuid.UUID) (int64, error)
	Stats(ctx context.Context, tenantID string) (*document.Stats, error)
	Periods(ctx context.Context, tenantID string) ([]string, error)
}

// DocumentHandler handles document reconciliation API endpoints
type DocumentHandler struct {
	BaseHandler
	service ReconcileService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service ReconcileService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// RegisterRoutes registers document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents/:tenantId")
	{
		docs.GET("", h.List)
		docs.DELETE("", h.Delete)
		docs.POST("/upsert", h.Upsert)
		docs.POST("/diff", h.Diff)
		docs.POST("/sync", h.Sync)
		docs.GET("/stats", h.Stats)
		docs.GET("/periods", h.Periods)
		docs.GET("/health", h.Health)
	}
}

// Upsert stores a batch of raw document items
func (h *DocumentHandler) Upsert(c *gin.Context) {
	var req UpsertDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Upsert(c.Request.Context(), c.Param("tenantId"), req.Period, req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Diff compares a remote snapshot against the local store without writing
func (h *DocumentHandler) Diff(c *gin.Context) {
	var req DiffDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Diff(c.Request.Context(), c.Param("tenantId"), req.Period, req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Sync pulls a period from the remote authority and stores what is missing
func (h *DocumentHandler) Sync(c *gin.Context) {
	var req SyncDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Sync(c.Request.Context(), c.Param("tenantId"), req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// List returns a page of stored documents
func (h *DocumentHandler) List(c *gin.Context) {
	var req ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	page, err := h.service.List(c.Request.Context(), c.Param("tenantId"), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Delete removes documents by explicit IDs or by whole period
func (h *DocumentHandler) Delete(c *gin.Context) {
	var req DeleteDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Period == "" && len(req.IDs) == 0 {
		h.BadRequest(c, "Either period or ids must be provided")
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), c.Param("tenantId"), req.Period, req.IDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DeleteDocumentsResponse{Deleted: deleted})
}

// Stats returns the tenant's aggregated document statistics
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Periods returns the tenant's distinct document periods
func (h *DocumentHandler) Periods(c *gin.Context) {
	periods, err := h.service.Periods(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"periods": periods})
}

// Health reports data-quality counters and the remote count comparison
func (h *DocumentHandler) Health(c *gin.Context) {
	period := c.Query("period")
	if period == "" {
		h.BadRequest(c, "Query parameter period is required")
		return
	}

	report, err := h.service.HealthCheck(c.Request.Context(), c.Param("tenantId"), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
