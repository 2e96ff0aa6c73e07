package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
)

func violationCodes(violations []billing.Violation) []string {
	codes := make([]string, len(violations))
	for i, v := range violations {
		codes[i] = v.Code
	}
	return codes
}

func TestPaymentService_Register(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	paymentDate := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	t.Run("distributes one receipt across two invoices", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		first := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 700000))
		second := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaExenta, 1002, activeDate, 500000))

		service := NewPaymentService(uow, testCutoverYear, nil)
		recorded, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 1000000,
			Note:        "transferencia abril",
			Allocations: []AllocationInput{
				{DocumentID: first.ID, Amount: 700000},
				{DocumentID: second.ID, Amount: 300000},
			},
		}, testActor)

		require.NoError(t, err)
		require.Empty(t, violations)
		require.NotNil(t, recorded)
		assert.Len(t, recorded.Allocations, 2)
		assert.Equal(t, "operator", recorded.Payment.RecordedBy)

		settled, err := uow.Repos().Documents.FindByID(context.Background(), first.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StateSettled, settled.State)
		assert.Equal(t, int64(0), settled.OutstandingBalance)

		partial, err := uow.Repos().Documents.FindByID(context.Background(), second.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatePartial, partial.State)
		assert.Equal(t, int64(200000), partial.OutstandingBalance)

		entries, _, err := uow.Repos().Audit.List(context.Background(), audit.Filter{Action: audit.ActionRegisterPayment})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("non-positive total short-circuits validation", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		service := NewPaymentService(uow, testCutoverYear, nil)

		recorded, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 0,
		}, testActor)

		require.NoError(t, err)
		assert.Nil(t, recorded)
		assert.Equal(t, []string{billing.ViolationAmountNotPositive}, violationCodes(violations))
	})

	t.Run("empty distribution short-circuits validation", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		service := NewPaymentService(uow, testCutoverYear, nil)

		_, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 100000,
		}, testActor)

		require.NoError(t, err)
		assert.Equal(t, []string{billing.ViolationEmptyDistribution}, violationCodes(violations))
	})

	t.Run("sum mismatch is rejected with zero writes", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1003, activeDate, 700000))

		service := NewPaymentService(uow, testCutoverYear, nil)
		recorded, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 500000,
			Allocations: []AllocationInput{{DocumentID: invoice.ID, Amount: 400000}},
		}, testActor)

		require.NoError(t, err)
		assert.Nil(t, recorded)
		assert.Contains(t, violationCodes(violations), billing.ViolationDistributionMismatch)

		assert.Empty(t, uow.store.payments)
		assert.Empty(t, uow.store.allocations)
		assert.Empty(t, uow.store.entries)

		untouched, err := uow.Repos().Documents.FindByID(context.Background(), invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatePending, untouched.State)
		assert.Equal(t, int64(700000), untouched.OutstandingBalance)
	})

	t.Run("collects every violation across the distribution", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1004, activeDate, 100000))
		creditNote := uow.store.addDocument(mustDocument(t, billing.DocTypeNotaCredito, 600, activeDate, 50000))
		historical := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 800,
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 90000))

		service := NewPaymentService(uow, testCutoverYear, nil)
		_, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 600000,
			Allocations: []AllocationInput{
				{DocumentID: invoice.ID, Amount: 150000},
				{DocumentID: invoice.ID, Amount: 150000},
				{DocumentID: creditNote.ID, Amount: 100000},
				{DocumentID: historical.ID, Amount: 100000},
				{DocumentID: uuid.New(), Amount: 100000},
			},
		}, testActor)

		require.NoError(t, err)
		codes := violationCodes(violations)
		assert.Contains(t, codes, billing.ViolationExceedsOutstanding)
		assert.Contains(t, codes, billing.ViolationDuplicateDocument)
		assert.Contains(t, codes, billing.ViolationCreditNoteTarget)
		assert.Contains(t, codes, billing.ViolationHistoricalTarget)
		assert.Contains(t, codes, billing.ViolationDocumentNotFound)
		assert.Empty(t, uow.store.payments)
	})

	t.Run("settled invoice rejects further payments", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1005, activeDate, 100000))
		invoice.Recalculate(100000, 0)
		require.NoError(t, uow.Repos().Documents.Save(context.Background(), invoice))

		service := NewPaymentService(uow, testCutoverYear, nil)
		_, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 1000,
			Allocations: []AllocationInput{{DocumentID: invoice.ID, Amount: 1000}},
		}, testActor)

		require.NoError(t, err)
		assert.Equal(t, []string{billing.ViolationStateNotPayable}, violationCodes(violations))
	})
}

func TestPaymentService_Reverse(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	paymentDate := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	t.Run("restores the balances the payment had settled", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 700000))

		service := NewPaymentService(uow, testCutoverYear, nil)
		recorded, violations, err := service.Register(context.Background(), RegisterPaymentRequest{
			PaymentDate: paymentDate,
			TotalAmount: 700000,
			Allocations: []AllocationInput{{DocumentID: invoice.ID, Amount: 700000}},
		}, testActor)
		require.NoError(t, err)
		require.Empty(t, violations)

		require.NoError(t, service.Reverse(context.Background(), recorded.Payment.ID, testActor))

		restored, err := uow.Repos().Documents.FindByID(context.Background(), invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatePending, restored.State)
		assert.Equal(t, int64(700000), restored.OutstandingBalance)

		assert.Empty(t, uow.store.payments)
		assert.Empty(t, uow.store.allocations)

		entries, _, err := uow.Repos().Audit.List(context.Background(), audit.Filter{})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("unknown payment id fails", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		service := NewPaymentService(uow, testCutoverYear, nil)

		err := service.Reverse(context.Background(), uuid.New(), testActor)

		assert.Error(t, err)
	})
}
