package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	billingapp "github.com/tecnipro/cobranzas/internal/application/billing"
	"github.com/tecnipro/cobranzas/internal/infrastructure/extract"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/dto"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
)

// ImportHandler handles sales register extract uploads
type ImportHandler struct {
	BaseHandler
	importService     *billingapp.ImportService
	creditNoteService *billingapp.CreditNoteService
	extractDir        string
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *billingapp.ImportService, creditNoteService *billingapp.CreditNoteService, extractDir string) *ImportHandler {
	return &ImportHandler{
		importService:     importService,
		creditNoteService: creditNoteService,
		extractDir:        extractDir,
	}
}

// RegisterRoutes registers the import endpoints
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	imports.POST("", h.Upload)
	imports.POST("/directory", h.ImportDirectory)
}

// ImportResponse pairs an import result with the credit note run that
// followed it
type ImportResponse struct {
	Import      *billingapp.ImportResult `json:"import"`
	CreditNotes any                      `json:"credit_notes,omitempty"`
}

// Upload imports one extract file sent as multipart form data. The filename
// must encode the tax period (e.g. "ventas 03_2026.csv"). Credit notes are
// applied right after the import.
func (h *ImportHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A file field with the extract is required")
		return
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		h.BadRequest(c, "Extracts must be CSV files")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.InternalError(c, "Failed to read the uploaded file")
		return
	}
	defer src.Close()

	actor := middleware.GetActor(c)
	result, err := h.importService.Import(c.Request.Context(), file.Filename, src, actor)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	summary, err := h.creditNoteService.ApplyAll(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ImportResponse{Import: result, CreditNotes: summary})
}

// ImportDirectoryRequest selects the directory to import from. An empty path
// uses the configured extract directory.
type ImportDirectoryRequest struct {
	Path string `json:"path"`
}

// ImportDirectory imports every extract in a directory on the server,
// earliest tax period first, then applies credit notes once.
func (h *ImportHandler) ImportDirectory(c *gin.Context) {
	var req ImportDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, err.Error())
		return
	}
	dir := req.Path
	if dir == "" {
		dir = h.extractDir
	}
	if dir == "" {
		h.BadRequest(c, "No extract directory configured or given")
		return
	}

	actor := middleware.GetActor(c)
	results, err := h.importService.ImportDirectory(c.Request.Context(), dir, actor)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	summary, err := h.creditNoteService.ApplyAll(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"imports": results, "credit_notes": summary})
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extract.ErrBadFilename):
		h.UnprocessableEntity(c, dto.ErrCodeBadExtract, err.Error(), nil)
	case errors.Is(err, extract.ErrEmptyFile), errors.Is(err, extract.ErrMissingHeader):
		h.UnprocessableEntity(c, dto.ErrCodeBadExtract, err.Error(), nil)
	default:
		h.HandleDomainError(c, err)
	}
}
