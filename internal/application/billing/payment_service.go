package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// AllocationInput is one requested payment-to-invoice split
type AllocationInput struct {
	DocumentID uuid.UUID `json:"document_id" binding:"required"`
	Amount     int64     `json:"amount" binding:"required"`
}

// RegisterPaymentRequest is a request to record one bank receipt
type RegisterPaymentRequest struct {
	PaymentDate time.Time         `json:"payment_date"`
	TotalAmount int64             `json:"total_amount"`
	Note        string            `json:"note"`
	Allocations []AllocationInput `json:"allocations"`
}

// PaymentService records and reverses payments over active invoices.
// Registration validates the complete distribution first and writes nothing
// when any rule fails, so a rejected request leaves no trace.
type PaymentService struct {
	uow         UnitOfWork
	recalc      *billing.Recalculator
	cutoverYear int
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(uow UnitOfWork, cutoverYear int, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		uow:         uow,
		recalc:      billing.NewRecalculator(cutoverYear),
		cutoverYear: cutoverYear,
		logger:      logger,
	}
}

// Register validates and records a payment with its full distribution.
// A non-empty violation list means the payment was rejected with no effect.
func (s *PaymentService) Register(ctx context.Context, req RegisterPaymentRequest, actor audit.Actor) (*billing.PaymentWithAllocations, []billing.Violation, error) {
	var recorded *billing.PaymentWithAllocations
	var violations []billing.Violation

	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		var err error
		violations, err = s.validate(ctx, r, req)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return nil
		}

		payment, err := billing.NewPayment(req.PaymentDate, req.TotalAmount, req.Note, actor.Name)
		if err != nil {
			return err
		}
		allocations := make([]*billing.Allocation, len(req.Allocations))
		for i, input := range req.Allocations {
			allocations[i], err = billing.NewAllocation(payment.ID, input.DocumentID, input.Amount)
			if err != nil {
				return err
			}
		}
		if err := r.Payments.Create(ctx, payment, allocations); err != nil {
			return fmt.Errorf("failed to store payment: %w", err)
		}

		folios := make([]string, 0, len(req.Allocations))
		for _, input := range req.Allocations {
			doc, err := s.recalc.Recalculate(ctx, r.Documents, input.DocumentID)
			if err != nil {
				return err
			}
			folios = append(folios, fmt.Sprintf("%d", doc.Folio))
		}

		detail := fmt.Sprintf("Payment of $%d on %s across folios %s",
			req.TotalAmount, req.PaymentDate.Format("2006-01-02"), strings.Join(folios, ", "))
		entry, err := audit.NewEntry(actor, audit.ActionRegisterPayment, detail)
		if err != nil {
			return err
		}
		if err := r.Audit.Append(ctx, entry); err != nil {
			return err
		}

		recorded = &billing.PaymentWithAllocations{Payment: *payment}
		for _, allocation := range allocations {
			recorded.Allocations = append(recorded.Allocations, *allocation)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(violations) > 0 {
		s.logger.Info("Payment rejected",
			zap.Int64("total", req.TotalAmount),
			zap.Int("violations", len(violations)))
		return nil, violations, nil
	}

	s.logger.Info("Payment registered",
		zap.String("payment_id", recorded.Payment.ID.String()),
		zap.Int64("total", req.TotalAmount),
		zap.Int("allocations", len(recorded.Allocations)))
	return recorded, nil, nil
}

// validate checks the whole distribution and returns every rule violation
// found, not just the first
func (s *PaymentService) validate(ctx context.Context, r persistence.Repos, req RegisterPaymentRequest) ([]billing.Violation, error) {
	var violations []billing.Violation

	if req.TotalAmount <= 0 {
		return []billing.Violation{billing.NewViolation(billing.ViolationAmountNotPositive,
			"Payment amount must be positive, got %d", req.TotalAmount)}, nil
	}
	if len(req.Allocations) == 0 {
		return []billing.Violation{billing.NewViolation(billing.ViolationEmptyDistribution,
			"The payment must be distributed over at least one invoice")}, nil
	}

	var sum int64
	for _, input := range req.Allocations {
		sum += input.Amount
	}
	if sum != req.TotalAmount {
		diff := req.TotalAmount - sum
		if diff < 0 {
			diff = -diff
		}
		violations = append(violations, billing.NewViolation(billing.ViolationDistributionMismatch,
			"Distribution sum $%d does not match payment total $%d, difference $%d", sum, req.TotalAmount, diff))
	}

	seen := make(map[uuid.UUID]bool, len(req.Allocations))
	for _, input := range req.Allocations {
		if input.Amount <= 0 {
			violations = append(violations, billing.NewViolation(billing.ViolationAmountNotPositive,
				"Amount applied to document %s must be positive, got %d", input.DocumentID, input.Amount))
			continue
		}
		if seen[input.DocumentID] {
			violations = append(violations, billing.NewViolation(billing.ViolationDuplicateDocument,
				"Document %s appears more than once in the distribution", input.DocumentID))
			continue
		}
		seen[input.DocumentID] = true

		doc, err := r.Documents.FindByID(ctx, input.DocumentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				violations = append(violations, billing.NewViolation(billing.ViolationDocumentNotFound,
					"Document %s does not exist", input.DocumentID))
				continue
			}
			return nil, err
		}
		if doc.DocType.IsCreditNote() {
			violations = append(violations, billing.NewViolation(billing.ViolationCreditNoteTarget,
				"Folio %d: credit notes do not receive payments", doc.Folio))
			continue
		}
		if doc.IsHistorical(s.cutoverYear) {
			violations = append(violations, billing.NewViolation(billing.ViolationHistoricalTarget,
				"Folio %d: invoices issued before %d do not receive payments", doc.Folio, s.cutoverYear))
			continue
		}
		if !doc.State.CanReceivePayment() {
			violations = append(violations, billing.NewViolation(billing.ViolationStateNotPayable,
				"Folio %d: state %s does not accept payments", doc.Folio, doc.State))
			continue
		}
		if input.Amount > doc.OutstandingBalance {
			violations = append(violations, billing.NewViolation(billing.ViolationExceedsOutstanding,
				"Folio %d: applied amount $%d exceeds the outstanding balance $%d",
				doc.Folio, input.Amount, doc.OutstandingBalance))
		}
	}

	return violations, nil
}

// Reverse deletes a payment and restores the balances of every invoice it
// touched. The audit trail keeps both the registration and the reversal.
func (s *PaymentService) Reverse(ctx context.Context, paymentID uuid.UUID, actor audit.Actor) error {
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		payment, err := r.Payments.FindWithAllocations(ctx, paymentID)
		if err != nil {
			return err
		}

		detail := fmt.Sprintf("Payment %s of $%d (recorded %s) reversed",
			paymentID, payment.Payment.TotalAmount, payment.Payment.PaymentDate.Format("2006-01-02"))
		entry, err := audit.NewEntry(actor, audit.ActionReversePayment, detail)
		if err != nil {
			return err
		}
		if err := r.Audit.Append(ctx, entry); err != nil {
			return err
		}

		if err := r.Payments.Delete(ctx, paymentID); err != nil {
			return err
		}
		for _, allocation := range payment.Allocations {
			if _, err := s.recalc.Recalculate(ctx, r.Documents, allocation.DocumentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Payment reversed", zap.String("payment_id", paymentID.String()))
	return nil
}

// Get returns one payment with its distribution
func (s *PaymentService) Get(ctx context.Context, paymentID uuid.UUID) (*billing.PaymentWithAllocations, error) {
	return s.uow.Repos().Payments.FindWithAllocations(ctx, paymentID)
}

// List returns payments, newest first
func (s *PaymentService) List(ctx context.Context, filter shared.Filter) ([]billing.PaymentWithAllocations, int64, error) {
	return s.uow.Repos().Payments.List(ctx, filter)
}

// HistoryForDocument returns the payment history of one document
func (s *PaymentService) HistoryForDocument(ctx context.Context, documentID uuid.UUID) ([]billing.DocumentPayment, error) {
	return s.uow.Repos().Payments.ListByDocument(ctx, documentID)
}
