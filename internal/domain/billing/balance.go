package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// Recalculator owns the single authoritative balance update. Both the credit
// note engine and the payment engine go through it after any underlying
// change. It always re-sums the full current set of allocations and
// referencing credit notes instead of applying deltas, so any number of
// redundant calls converge to the same state.
type Recalculator struct {
	cutoverYear int
}

// NewRecalculator creates a Recalculator for the given management cutover year
func NewRecalculator(cutoverYear int) *Recalculator {
	return &Recalculator{cutoverYear: cutoverYear}
}

// CutoverYear returns the configured management cutover year
func (r *Recalculator) CutoverYear() int {
	return r.cutoverYear
}

// Recalculate re-derives the outstanding balance and state of one document
// and persists the result. Credit notes, historical documents and voided
// invoices are left untouched.
func (r *Recalculator) Recalculate(ctx context.Context, docs DocumentRepository, id uuid.UUID) (*Document, error) {
	doc, err := docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("recalculate balance: load document: %w", err)
	}

	if doc.DocType.IsCreditNote() || doc.State == StateVoided || doc.IsHistorical(r.cutoverYear) {
		return doc, nil
	}

	paidSum, err := docs.SumAllocations(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("recalculate balance: sum allocations: %w", err)
	}
	creditSum, err := docs.SumReferencingCreditNotes(ctx, doc.Folio, doc.DocType)
	if err != nil {
		return nil, fmt.Errorf("recalculate balance: sum credit notes: %w", err)
	}

	doc.Recalculate(paidSum, creditSum)
	if err := docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("recalculate balance: save document: %w", err)
	}
	return doc, nil
}
