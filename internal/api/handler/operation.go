package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/repository"
)

// OperationHandler exposes the audit ledger: per-document stage history
// and cross-document operation queries.
type OperationHandler struct {
	operations *repository.OperationRepository
}

// NewOperationHandler creates a new operation handler.
// Parameters:
//   - operations: operation repository backing the ledger queries.
// Returns:
//   - *OperationHandler: initialized handler.
func NewOperationHandler(operations *repository.OperationRepository) *OperationHandler {
	return &OperationHandler{operations: operations}
}

// ListByDocument handles GET /api/v1/documents/:id/operations.
func (h *OperationHandler) ListByDocument(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Document ID is required",
		})
		return
	}

	records, err := h.operations.ListByDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list operations: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operations": records,
		"count":      len(records),
	})
}

// Status handles GET /api/v1/documents/:id/status. The pipeline
// position is derived from the latest ledger row, never stored.
func (h *OperationHandler) Status(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Document ID is required",
		})
		return
	}

	rec, err := h.operations.LatestByDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No operations recorded for document",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id":  id,
		"stage":        rec.Stage,
		"outcome":      rec.Outcome,
		"failure_code": rec.FailureCode,
		"recorded_at":  rec.CreatedAt,
	})
}

// List handles GET /api/v1/operations.
func (h *OperationHandler) List(c *gin.Context) {
	stage := domain.Stage(c.Query("stage"))
	outcome := domain.Outcome(c.Query("outcome"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.operations.List(c.Request.Context(), stage, outcome, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list operations: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operations": records,
		"count":      len(records),
	})
}
