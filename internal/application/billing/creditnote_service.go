package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// CreditNoteService applies credit notes against their referenced invoices.
// Application is idempotent: balances are always re-derived from the full
// set of payments and credit notes, so a second run converges to the same
// state.
type CreditNoteService struct {
	uow         UnitOfWork
	cutoverYear int
	logger      *zap.Logger
}

// NewCreditNoteService creates a new CreditNoteService
func NewCreditNoteService(uow UnitOfWork, cutoverYear int, logger *zap.Logger) *CreditNoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditNoteService{uow: uow, cutoverYear: cutoverYear, logger: logger}
}

// ApplyAll applies every stored credit note in issue-date order, atomically.
// Meant to run after every import.
func (s *CreditNoteService) ApplyAll(ctx context.Context, actor audit.Actor) (*billing.ApplySummary, error) {
	summary := &billing.ApplySummary{}

	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		creditNotes, err := r.Documents.CreditNotes(ctx)
		if err != nil {
			return fmt.Errorf("failed to load credit notes: %w", err)
		}
		for i := range creditNotes {
			result, err := s.applyOne(ctx, r, &creditNotes[i], actor)
			if err != nil {
				return err
			}
			summary.Record(*result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Credit note run finished",
		zap.Int("applied", summary.Applied),
		zap.Int("unreferenced", summary.Unreferenced),
		zap.Int("invoice_not_found", summary.InvoiceNotFound),
		zap.Int("historical_ignored", summary.HistoricalIgnored),
		zap.Int("already_voided", summary.AlreadyVoided))
	return summary, nil
}

// Apply applies one credit note by id
func (s *CreditNoteService) Apply(ctx context.Context, creditNoteID uuid.UUID, actor audit.Actor) (*billing.ApplyResult, error) {
	var result *billing.ApplyResult
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		creditNote, err := r.Documents.FindByID(ctx, creditNoteID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				result = &billing.ApplyResult{
					Outcome:      billing.ApplyCreditNoteNotFound,
					CreditNoteID: creditNoteID,
				}
				return nil
			}
			return err
		}
		if !creditNote.DocType.IsCreditNote() {
			result = &billing.ApplyResult{
				Outcome:      billing.ApplyCreditNoteNotFound,
				CreditNoteID: creditNoteID,
			}
			return nil
		}
		result, err = s.applyOne(ctx, r, creditNote, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyOne resolves and applies a single credit note inside the caller's
// transaction
func (s *CreditNoteService) applyOne(ctx context.Context, r persistence.Repos, creditNote *billing.Document, actor audit.Actor) (*billing.ApplyResult, error) {
	result := &billing.ApplyResult{
		CreditNoteID:     creditNote.ID,
		CreditNoteFolio:  creditNote.Folio,
		CreditNoteAmount: creditNote.Amounts.Total,
		RefFolio:         creditNote.RefFolio,
	}

	if !creditNote.HasReference() {
		result.Outcome = billing.ApplyUnreferenced
		s.logger.Warn("Credit note has no reference folio, manual review required",
			zap.Int64("folio", creditNote.Folio))
		return result, nil
	}

	invoice, err := s.resolveInvoice(ctx, r.Documents, *creditNote.RefFolio, creditNote.RefDocType)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result.Outcome = billing.ApplyInvoiceNotFound
			s.logger.Warn("Credit note references an unknown invoice",
				zap.Int64("folio", creditNote.Folio),
				zap.Int64("ref_folio", *creditNote.RefFolio))
			return result, nil
		}
		return nil, err
	}

	result.InvoiceID = &invoice.ID
	result.InvoiceFolio = &invoice.Folio

	// Pre-cutover invoices are frozen history
	if invoice.IsHistorical(s.cutoverYear) {
		result.Outcome = billing.ApplyHistoricalIgnored
		return result, nil
	}
	if invoice.State == billing.StateVoided {
		result.Outcome = billing.ApplyAlreadyVoided
		state := billing.StateVoided
		result.InvoiceState = &state
		return result, nil
	}

	paidSum, err := r.Documents.SumAllocations(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	creditSum, err := r.Documents.SumReferencingCreditNotes(ctx, invoice.Folio, invoice.DocType)
	if err != nil {
		return nil, err
	}

	// A credit note that wipes out the remaining balance voids the invoice;
	// anything less just reduces it.
	if invoice.Amounts.Total-paidSum-creditSum <= 0 {
		invoice.Void()
	} else {
		invoice.Recalculate(paidSum, creditSum)
	}
	if err := r.Documents.Save(ctx, invoice); err != nil {
		return nil, err
	}

	result.Outcome = billing.ApplyApplied
	result.InvoiceState = &invoice.State

	detail := fmt.Sprintf("Credit note folio %d ($%d) applied to invoice folio %d, new state %s",
		creditNote.Folio, creditNote.Amounts.Total, invoice.Folio, invoice.State)
	entry, err := audit.NewEntry(actor, audit.ActionApplyCreditNote, detail)
	if err != nil {
		return nil, err
	}
	if err := r.Audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	return result, nil
}

// resolveInvoice finds the invoice a credit note references: exact
// (type, folio) when the reference type is a known invoice type, otherwise
// any invoice carrying the folio. A typed reference never falls back, so
// resolution stays consistent with the referencing-sum query.
func (s *CreditNoteService) resolveInvoice(ctx context.Context, docs billing.DocumentRepository, refFolio int64, refType *billing.DocumentType) (*billing.Document, error) {
	if refType != nil && refType.IsInvoice() {
		return docs.FindByFolio(ctx, refFolio, refType)
	}
	return docs.FindByFolio(ctx, refFolio, nil)
}

// Unmatched lists credit notes whose references resolve to no stored invoice
func (s *CreditNoteService) Unmatched(ctx context.Context) ([]billing.Document, error) {
	return s.uow.Repos().Documents.UnmatchedCreditNotes(ctx)
}
