package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/tecnipro/cobranzas/internal/application/billing"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/dto"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
)

// DocumentHandler handles document reads and per-invoice assignments
type DocumentHandler struct {
	BaseHandler
	documentService *billingapp.DocumentService
	paymentService  *billingapp.PaymentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *billingapp.DocumentService, paymentService *billingapp.PaymentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		paymentService:  paymentService,
	}
}

// RegisterRoutes registers the document endpoints
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	docs.GET("", h.List)
	docs.GET("/courses", h.Courses)
	docs.GET("/folio/:folio", h.GetByFolio)
	docs.GET("/:id", h.GetByID)
	docs.GET("/:id/payments", h.PaymentHistory)
	docs.POST("/recalculate", h.RecalculateAll)
	docs.POST("/:id/recalculate", h.Recalculate)
	docs.PUT("/:id/client", h.AssignClient)
	docs.PUT("/:id/course", h.AssignCourse)
}

// ListDocumentsRequest carries the document listing filters
type ListDocumentsRequest struct {
	dto.ListRequest
	DocTypes  []int    `form:"doc_type"`
	States    []string `form:"state"`
	TaxPeriod string   `form:"tax_period"`
	ClientID  string   `form:"client_id" binding:"omitempty,uuid"`
	YearFrom  int      `form:"year_from"`
	YearTo    int      `form:"year_to"`
}

// List returns documents matching the query filters
func (h *DocumentHandler) List(c *gin.Context) {
	var req ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := billing.DocumentFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		TaxPeriod: req.TaxPeriod,
		YearFrom:  req.YearFrom,
		YearTo:    req.YearTo,
	}
	for _, t := range req.DocTypes {
		filter.DocTypes = append(filter.DocTypes, billing.DocumentType(t))
	}
	for _, s := range req.States {
		filter.States = append(filter.States, billing.DocumentState(s))
	}
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			h.BadRequest(c, "Invalid client ID format")
			return
		}
		filter.ClientID = &id
	}

	page, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID returns one document
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// GetByFolio resolves a document by folio. A doc_type query narrows the
// search to one type; without it only invoice types are considered.
func (h *DocumentHandler) GetByFolio(c *gin.Context) {
	folio, err := strconv.ParseInt(c.Param("folio"), 10, 64)
	if err != nil || folio <= 0 {
		h.BadRequest(c, "Invalid folio")
		return
	}

	var docType *billing.DocumentType
	if raw := c.Query("doc_type"); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid doc_type")
			return
		}
		dt := billing.DocumentType(t)
		docType = &dt
	}

	doc, err := h.documentService.GetByFolio(c.Request.Context(), folio, docType)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// PaymentHistory returns the payment history of one document
func (h *DocumentHandler) PaymentHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	history, err := h.paymentService.HistoryForDocument(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, history)
}

// Recalculate re-derives the balance and state of one document
func (h *DocumentHandler) Recalculate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	doc, err := h.documentService.Recalculate(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// RecalculateAll re-derives every active invoice balance
func (h *DocumentHandler) RecalculateAll(c *gin.Context) {
	touched, err := h.documentService.RecalculateAll(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"recalculated": touched})
}

// AssignClientRequest names the client to link to an invoice
type AssignClientRequest struct {
	ClientID string `json:"client_id" binding:"required,uuid"`
}

// AssignClient links an invoice to a registered client
func (h *DocumentHandler) AssignClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	var req AssignClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	doc, err := h.documentService.AssignClient(c.Request.Context(), id, clientID, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// AssignCourseRequest carries the course label; empty clears the tag
type AssignCourseRequest struct {
	Course string `json:"course" binding:"max=200"`
}

// AssignCourse tags an invoice with the course it was billed for
func (h *DocumentHandler) AssignCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	var req AssignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.AssignCourse(c.Request.Context(), id, req.Course, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// Courses lists the distinct course labels on active invoices
func (h *DocumentHandler) Courses(c *gin.Context) {
	courses, err := h.documentService.Courses(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, courses)
}
