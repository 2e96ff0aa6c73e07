package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clientapp "github.com/tecnipro/cobranzas/internal/application/client"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/dto"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
)

// ClientHandler handles the client registry endpoints
type ClientHandler struct {
	BaseHandler
	registry *clientapp.RegistryService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(registry *clientapp.RegistryService) *ClientHandler {
	return &ClientHandler{registry: registry}
}

// RegisterRoutes registers the client registry endpoints
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients")
	clients.POST("", h.Create)
	clients.GET("", h.List)
	clients.GET("/search", h.Search)
	clients.GET("/:id", h.GetByID)
	clients.PUT("/:id", h.Update)
	clients.GET("/:id/stats", h.Stats)
	clients.GET("/:id/courses", h.Courses)
	clients.POST("/:id/merge/:target", h.Merge)
}

// CreateClientRequest is the request body for registering a client
type CreateClientRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	TaxID       string `json:"tax_id" binding:"max=20"`
	ContactName string `json:"contact_name" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Phone       string `json:"phone" binding:"max=50"`
	Force       bool   `json:"force"`
}

// Create registers a client. Near-duplicates come back as suggestions with a
// 409 unless the request forces creation; an exact normalized-name match
// returns the existing entry.
func (h *ClientHandler) Create(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.registry.Create(c.Request.Context(), clientapp.CreateRequest{
		Name:        req.Name,
		TaxID:       req.TaxID,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Force:       req.Force,
	}, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	switch {
	case result.Created:
		h.Created(c, result)
	case result.Existing:
		h.Success(c, result)
	default:
		c.JSON(409, dto.NewErrorResponseWithDetails(dto.ErrCodeConflict,
			"Similar clients already exist; repeat with force to create anyway", result.Suggestions))
	}
}

// UpdateClientRequest is the request body for updating a client. Absent
// fields stay untouched.
type UpdateClientRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	TaxID       *string `json:"tax_id" binding:"omitempty,max=20"`
	ContactName *string `json:"contact_name" binding:"omitempty,max=100"`
	Email       *string `json:"email" binding:"omitempty,email,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
}

// Update modifies a registry entry
func (h *ClientHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}
	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.registry.Update(c.Request.Context(), id, clientapp.UpdateRequest{
		Name:        req.Name,
		TaxID:       req.TaxID,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
	}, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, updated)
}

// Merge folds the client in the path into the target client
func (h *ClientHandler) Merge(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid source client ID format")
		return
	}
	targetID, err := uuid.Parse(c.Param("target"))
	if err != nil {
		h.BadRequest(c, "Invalid target client ID format")
		return
	}

	result, err := h.registry.Merge(c.Request.Context(), sourceID, targetID, middleware.GetActor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// GetByID returns one registry entry
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}
	found, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, found)
}

// Search finds clients matching every significant token of the query
func (h *ClientHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		h.BadRequest(c, "A q query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	matches, err := h.registry.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, matches)
}

// List returns registry entries with their billing summaries
func (h *ClientHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	page, err := h.registry.List(c.Request.Context(), shared.Filter{
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
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Stats returns the billing summary of one client
func (h *ClientHandler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}
	stats, err := h.registry.Stats(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// Courses lists the distinct course labels on the client's invoices
func (h *ClientHandler) Courses(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}
	courses, err := h.registry.Courses(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, courses)
}
