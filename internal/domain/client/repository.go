package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// BillingStats summarizes the invoices assigned to one client
type BillingStats struct {
	InvoiceCount     int64 `json:"invoice_count"`
	TotalBilled      int64 `json:"total_billed"`
	TotalSettled     int64 `json:"total_settled"`
	TotalOutstanding int64 `json:"total_outstanding"`
}

// WithStats pairs a client with its billing summary for listing reads
type WithStats struct {
	Client Client       `json:"client"`
	Stats  BillingStats `json:"stats"`
}

// Repository is the canonical client registry store
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	// FindBySearchKey resolves the exact dedup identity.
	FindBySearchKey(ctx context.Context, searchKey string) (*Client, error)
	// FindSimilar returns clients whose search key contains every token,
	// ordered by display name.
	FindSimilar(ctx context.Context, tokens []string, limit int) ([]Client, error)
	Create(ctx context.Context, c *Client) error
	Save(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter shared.Filter) ([]WithStats, int64, error)
	// Stats computes the billing summary of one client's invoices.
	Stats(ctx context.Context, id uuid.UUID) (*BillingStats, error)
	// Courses lists the distinct course labels on the client's invoices.
	Courses(ctx context.Context, id uuid.UUID) ([]string, error)
}
