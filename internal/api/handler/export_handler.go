package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(es *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: es}
}

// POST /api/user/exports
func (h *ExportHandler) RequestExport(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	job, err := h.exportService.RequestExport(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not queue export"})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// GET /api/user/exports
func (h *ExportHandler) ListExports(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	jobs, err := h.exportService.ListExports(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list exports"})
		return
	}
	for i := range jobs {
		if jobs[i].Status == domain.ExportCompleted {
			jobs[i].DownloadURL = fmt.Sprintf("/api/user/exports/%d/download", jobs[i].ID)
		}
	}
	c.JSON(http.StatusOK, jobs)
}

// GET /api/user/exports/:id/download
func (h *ExportHandler) Download(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export id"})
		return
	}

	path, err := h.exportService.ExportFilePath(c.Request.Context(), principal, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load export"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
