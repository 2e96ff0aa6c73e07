package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

const maxPaymentNoteLength = 500

// Payment represents one bank receipt entered by an operator. Its total is
// distributed across one or more invoices through Allocations.
type Payment struct {
	shared.BaseEntity
	PaymentDate time.Time `json:"payment_date"`
	TotalAmount int64     `json:"total_amount"`
	Note        string    `json:"note,omitempty"`
	RecordedBy  string    `json:"recorded_by"`
}

// RecordedAt returns when the payment was entered into the system
func (p *Payment) RecordedAt() time.Time {
	return p.CreatedAt
}

// NewPayment creates a payment record. The allocation set is validated
// separately before the payment is persisted.
func NewPayment(paymentDate time.Time, totalAmount int64, note, recordedBy string) (*Payment, error) {
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if totalAmount <= 0 {
		return nil, shared.NewDomainErrorf("INVALID_AMOUNT", "Payment amount must be positive, got %d", totalAmount)
	}
	if recordedBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Recording actor is required")
	}

	note = strings.TrimSpace(note)
	if len(note) > maxPaymentNoteLength {
		note = note[:maxPaymentNoteLength]
	}

	return &Payment{
		BaseEntity:  shared.NewBaseEntity(),
		PaymentDate: paymentDate,
		TotalAmount: totalAmount,
		Note:        note,
		RecordedBy:  recordedBy,
	}, nil
}

// Allocation applies part of a payment to one invoice. The many-to-many join
// between payments and documents.
type Allocation struct {
	shared.BaseEntity
	PaymentID     uuid.UUID `json:"payment_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	AppliedAmount int64     `json:"applied_amount"`
}

// AppliedAt returns when the allocation was applied
func (a *Allocation) AppliedAt() time.Time {
	return a.CreatedAt
}

// NewAllocation creates an allocation of a payment against a document
func NewAllocation(paymentID, documentID uuid.UUID, appliedAmount int64) (*Allocation, error) {
	if paymentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if appliedAmount <= 0 {
		return nil, shared.NewDomainErrorf("INVALID_AMOUNT", "Applied amount must be positive, got %d", appliedAmount)
	}
	return &Allocation{
		BaseEntity:    shared.NewBaseEntity(),
		PaymentID:     paymentID,
		DocumentID:    documentID,
		AppliedAmount: appliedAmount,
	}, nil
}
