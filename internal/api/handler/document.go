package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trailmesh/traceflow/internal/api/middleware"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/pipeline"
	"github.com/trailmesh/traceflow/internal/repository"
	"github.com/trailmesh/traceflow/internal/storage"
)

// DocumentHandler handles document ingestion and lookup endpoints.
type DocumentHandler struct {
	orchestrator *pipeline.Orchestrator
	documents    *repository.DocumentRepository
	objects      storage.ObjectStorage
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - orchestrator: pipeline orchestrator used to run ingested documents.
//   - documents: document repository for lookups.
//   - objects: object storage for key-based ingestion; may be nil.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(orchestrator *pipeline.Orchestrator, documents *repository.DocumentRepository, objects storage.ObjectStorage) *DocumentHandler {
	return &DocumentHandler{
		orchestrator: orchestrator,
		documents:    documents,
		objects:      objects,
	}
}

// Ingest handles POST /api/v1/documents.
//
// The document content comes either from the request body or, when a
// storage_key query parameter is given and object storage is configured,
// from the object store. The pipeline runs synchronously; the response
// carries the terminal run result, including failures, with status 200.
// Only malformed requests produce an error status.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	name := c.Query("name")
	storageKey := c.Query("storage_key")

	content, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body: " + err.Error(),
		})
		return
	}

	if len(content) == 0 && storageKey != "" {
		if h.objects == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Object storage is not configured",
			})
			return
		}
		reader, err := h.objects.Download(c.Request.Context(), storageKey)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Failed to fetch document from storage: " + err.Error(),
			})
			return
		}
		defer reader.Close()
		content, err = io.ReadAll(reader)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read document from storage: " + err.Error(),
			})
			return
		}
	}

	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Document content is required",
		})
		return
	}

	if name == "" {
		if storageKey != "" {
			name = storageKey
		} else {
			name = uuid.New().String() + ".json"
		}
	}

	result, err := h.orchestrator.Ingest(c.Request.Context(), name, storageKey, content)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Document ingestion rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Failed to ingest document: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reprocess handles POST /api/v1/documents/:id/reprocess.
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Document ID is required",
		})
		return
	}

	result, err := h.orchestrator.Reprocess(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Failed to reprocess document: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Document ID is required",
		})
		return
	}

	doc, err := h.documents.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Document not found",
		})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	status := domain.DocumentStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.documents.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list documents: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}
