package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/tecnipro/cobranzas/internal/application/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/dto"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment registration and reversal
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RegisterRoutes registers the payment endpoints
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	payments.POST("", h.Register)
	payments.GET("", h.List)
	payments.GET("/:id", h.GetByID)
	payments.DELETE("/:id", h.Reverse)
}

// AllocationRequest is one payment-to-invoice split in a register request
type AllocationRequest struct {
	DocumentID string `json:"document_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required"`
}

// RegisterPaymentRequest is the request body for registering a payment.
// Amounts are integer Chilean pesos.
type RegisterPaymentRequest struct {
	PaymentDate string              `json:"payment_date" binding:"required"`
	TotalAmount int64               `json:"total_amount" binding:"required"`
	Note        string              `json:"note" binding:"max=500"`
	Allocations []AllocationRequest `json:"allocations"`
}

// Register validates and records a payment. Business rule violations come
// back as a 422 with the full violation list and no stored changes.
func (h *PaymentHandler) Register(c *gin.Context) {
	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "payment_date must be YYYY-MM-DD")
		return
	}

	appReq := billingapp.RegisterPaymentRequest{
		PaymentDate: paymentDate,
		TotalAmount: req.TotalAmount,
		Note:        req.Note,
	}
	for _, a := range req.Allocations {
		documentID, err := uuid.Parse(a.DocumentID)
		if err != nil {
			h.BadRequest(c, "Invalid document ID in allocations")
			return
		}
		appReq.Allocations = append(appReq.Allocations, billingapp.AllocationInput{
			DocumentID: documentID,
			Amount:     a.Amount,
		})
	}

	recorded, violations, err := h.paymentService.Register(c.Request.Context(), appReq, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if len(violations) > 0 {
		h.UnprocessableEntity(c, dto.ErrCodePaymentRejected,
			"The payment violates one or more business rules", violations)
		return
	}
	h.Created(c, recorded)
}

// List returns payments, newest first
func (h *PaymentHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	payments, total, err := h.paymentService.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, payments, total, req.Page, req.PageSize)
}

// GetByID returns one payment with its distribution
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}
	payment, err := h.paymentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, payment)
}

// Reverse deletes a payment and restores the affected invoice balances
func (h *PaymentHandler) Reverse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}
	if err := h.paymentService.Reverse(c.Request.Context(), id, middleware.GetActor(c)); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
