package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/dto"
)

// AuditHandler serves the append-only action log
type AuditHandler struct {
	BaseHandler
	auditRepo audit.Repository
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditRepo audit.Repository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// RegisterRoutes registers the audit endpoints
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit", h.List)
}

// ListAuditRequest narrows the audit listing
type ListAuditRequest struct {
	dto.ListRequest
	Action string `form:"action"`
	Actor  string `form:"actor"`
}

// List returns audit entries, newest first
func (h *AuditHandler) List(c *gin.Context) {
	var req ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	entries, total, err := h.auditRepo.List(c.Request.Context(), audit.Filter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		Action: audit.Action(req.Action),
		Actor:  req.Actor,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, req.Page, req.PageSize)
}
