package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/tecnipro/cobranzas/internal/application/billing"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
)

// CreditNoteHandler handles credit note application
type CreditNoteHandler struct {
	BaseHandler
	creditNoteService *billingapp.CreditNoteService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(creditNoteService *billingapp.CreditNoteService) *CreditNoteHandler {
	return &CreditNoteHandler{creditNoteService: creditNoteService}
}

// RegisterRoutes registers the credit note endpoints
func (h *CreditNoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	notes := rg.Group("/credit-notes")
	notes.POST("/apply", h.ApplyAll)
	notes.POST("/:id/apply", h.Apply)
	notes.GET("/unmatched", h.Unmatched)
}

// ApplyAll applies every stored credit note against its referenced invoice
func (h *CreditNoteHandler) ApplyAll(c *gin.Context) {
	summary, err := h.creditNoteService.ApplyAll(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, summary)
}

// Apply applies one credit note by id
func (h *CreditNoteHandler) Apply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit note ID format")
		return
	}

	result, err := h.creditNoteService.Apply(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if result.Outcome == billing.ApplyCreditNoteNotFound {
		h.NotFound(c, "Credit note not found")
		return
	}
	h.Success(c, result)
}

// Unmatched lists credit notes whose references resolve to no stored invoice
func (h *CreditNoteHandler) Unmatched(c *gin.Context) {
	notes, err := h.creditNoteService.Unmatched(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, notes)
}
