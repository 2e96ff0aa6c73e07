package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// DocumentFilter narrows document listing reads
type DocumentFilter struct {
	shared.Filter
	DocTypes  []DocumentType
	States    []DocumentState
	TaxPeriod string
	ClientID  *uuid.UUID
	YearFrom  int
	YearTo    int
}

// DocumentRepository is the canonical store of invoices and credit notes.
// (DocType, Folio) identity is owned here.
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// FindByFolio resolves a folio to a document. A nil docType restricts the
	// search to the invoice types (33, 34).
	FindByFolio(ctx context.Context, folio int64, docType *DocumentType) (*Document, error)
	// InsertIfAbsent persists the document unless (DocType, Folio) already
	// exists; the existing record is returned as a distinguishable outcome.
	InsertIfAbsent(ctx context.Context, doc *Document) (inserted bool, existing *Document, err error)
	Save(ctx context.Context, doc *Document) error
	FindAll(ctx context.Context, filter DocumentFilter) ([]Document, int64, error)

	// CreditNotes returns every credit note ordered by issue date.
	CreditNotes(ctx context.Context) ([]Document, error)
	// UnmatchedCreditNotes returns credit notes whose reference resolves to no
	// stored invoice, newest first. Surfaced for manual review.
	UnmatchedCreditNotes(ctx context.Context) ([]Document, error)

	// SumAllocations totals the payment amounts applied to a document.
	SumAllocations(ctx context.Context, documentID uuid.UUID) (int64, error)
	// SumReferencingCreditNotes totals credit notes whose reference resolves
	// to the given invoice identity, by typed match or untyped folio match.
	SumReferencingCreditNotes(ctx context.Context, folio int64, docType DocumentType) (int64, error)

	// ReassignClient moves every document of one client to another, returning
	// the number of rows touched. Used by client merge.
	ReassignClient(ctx context.Context, fromClientID, toClientID uuid.UUID) (int64, error)
	// DistinctCourses lists the course labels in use on active invoices.
	DistinctCourses(ctx context.Context, cutoverYear int) ([]string, error)
}

// PaymentWithAllocations bundles a payment with its distribution
type PaymentWithAllocations struct {
	Payment     Payment      `json:"payment"`
	Allocations []Allocation `json:"allocations"`
}

// DocumentPayment is one payment as seen from a document's history
type DocumentPayment struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	PaymentDate   time.Time `json:"payment_date"`
	AppliedAmount int64     `json:"applied_amount"`
	AppliedAt     time.Time `json:"applied_at"`
	Note          string    `json:"note,omitempty"`
	RecordedBy    string    `json:"recorded_by"`
}

// PaymentRepository stores bank receipts and their allocations
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindWithAllocations(ctx context.Context, id uuid.UUID) (*PaymentWithAllocations, error)
	// Create persists the payment and its full allocation set atomically.
	Create(ctx context.Context, payment *Payment, allocations []*Allocation) error
	// Delete removes the payment and cascades to its allocations.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter shared.Filter) ([]PaymentWithAllocations, int64, error)
	// ListByDocument returns the payment history of one document, oldest first.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]DocumentPayment, error)
}
