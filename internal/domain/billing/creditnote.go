package billing

import "github.com/google/uuid"

// ApplyOutcome classifies the result of applying one credit note
type ApplyOutcome string

const (
	// ApplyApplied means the referenced invoice was recalculated (or voided)
	ApplyApplied ApplyOutcome = "APPLIED"
	// ApplyUnreferenced means the credit note carries no reference folio and
	// needs manual linkage
	ApplyUnreferenced ApplyOutcome = "UNREFERENCED"
	// ApplyInvoiceNotFound means the referenced invoice is not in the store
	ApplyInvoiceNotFound ApplyOutcome = "INVOICE_NOT_FOUND"
	// ApplyHistoricalIgnored means the target predates the cutover year
	ApplyHistoricalIgnored ApplyOutcome = "HISTORICAL_IGNORED"
	// ApplyAlreadyVoided means the target is terminally voided
	ApplyAlreadyVoided ApplyOutcome = "ALREADY_VOIDED"
	// ApplyCreditNoteNotFound means the id does not name a stored credit note
	ApplyCreditNoteNotFound ApplyOutcome = "CREDIT_NOTE_NOT_FOUND"
)

// ApplyResult reports what happened to one credit note
type ApplyResult struct {
	Outcome          ApplyOutcome   `json:"outcome"`
	CreditNoteID     uuid.UUID      `json:"credit_note_id"`
	CreditNoteFolio  int64          `json:"credit_note_folio"`
	CreditNoteAmount int64          `json:"credit_note_amount"`
	RefFolio         *int64         `json:"ref_folio,omitempty"`
	InvoiceID        *uuid.UUID     `json:"invoice_id,omitempty"`
	InvoiceFolio     *int64         `json:"invoice_folio,omitempty"`
	InvoiceState     *DocumentState `json:"invoice_state,omitempty"`
}

// ApplySummary aggregates an apply-all run over every stored credit note
type ApplySummary struct {
	Applied           int           `json:"applied"`
	Unreferenced      int           `json:"unreferenced"`
	InvoiceNotFound   int           `json:"invoice_not_found"`
	HistoricalIgnored int           `json:"historical_ignored"`
	AlreadyVoided     int           `json:"already_voided"`
	Unresolved        []ApplyResult `json:"unresolved,omitempty"`
}

// Record tallies one apply result into the summary. Unresolved references
// are kept in full for review.
func (s *ApplySummary) Record(res ApplyResult) {
	switch res.Outcome {
	case ApplyApplied:
		s.Applied++
	case ApplyUnreferenced:
		s.Unreferenced++
	case ApplyInvoiceNotFound:
		s.InvoiceNotFound++
		s.Unresolved = append(s.Unresolved, res)
	case ApplyHistoricalIgnored:
		s.HistoricalIgnored++
	case ApplyAlreadyVoided:
		s.AlreadyVoided++
	}
}
