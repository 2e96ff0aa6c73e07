package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/client"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

func mustClient(t *testing.T, name string) *client.Client {
	t.Helper()
	c, err := client.New(name, "operator")
	require.NoError(t, err)
	return c
}

func TestDocumentService_AssignClient(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("links an active invoice and logs the assignment", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 100000))
		c := uow.store.addClient(mustClient(t, "empresa ejemplo spa"))

		service := NewDocumentService(uow, testCutoverYear, nil)
		updated, err := service.AssignClient(context.Background(), invoice.ID, c.ID, testActor)

		require.NoError(t, err)
		require.NotNil(t, updated.ClientID)
		assert.Equal(t, c.ID, *updated.ClientID)

		entries, _, err := uow.Repos().Audit.List(context.Background(), audit.Filter{Action: audit.ActionAssignClient})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Detail, "Empresa Ejemplo Spa")
	})

	t.Run("historical invoices reject assignment", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		historical := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 800,
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 100000))
		c := uow.store.addClient(mustClient(t, "empresa ejemplo spa"))

		service := NewDocumentService(uow, testCutoverYear, nil)
		_, err := service.AssignClient(context.Background(), historical.ID, c.ID, testActor)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "HISTORICAL_DOCUMENT", domainErr.Code)

		untouched, err := uow.Repos().Documents.FindByID(context.Background(), historical.ID)
		require.NoError(t, err)
		assert.Nil(t, untouched.ClientID)
	})

	t.Run("credit notes reject assignment", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		note := uow.store.addDocument(mustDocument(t, billing.DocTypeNotaCredito, 600, activeDate, 50000))
		c := uow.store.addClient(mustClient(t, "empresa ejemplo spa"))

		service := NewDocumentService(uow, testCutoverYear, nil)
		_, err := service.AssignClient(context.Background(), note.ID, c.ID, testActor)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_AN_INVOICE", domainErr.Code)
	})

	t.Run("unknown client fails before touching the invoice", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1002, activeDate, 100000))
		ghost := mustClient(t, "empresa fantasma")

		service := NewDocumentService(uow, testCutoverYear, nil)
		_, err := service.AssignClient(context.Background(), invoice.ID, ghost.ID, testActor)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestDocumentService_AssignCourse(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("tags and clears the course label", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 100000))

		service := NewDocumentService(uow, testCutoverYear, nil)
		tagged, err := service.AssignCourse(context.Background(), invoice.ID, "Excel Avanzado", testActor)
		require.NoError(t, err)
		require.NotNil(t, tagged.CourseLabel)
		assert.Equal(t, "Excel Avanzado", *tagged.CourseLabel)

		courses, err := service.Courses(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Excel Avanzado"}, courses)

		cleared, err := service.AssignCourse(context.Background(), invoice.ID, "", testActor)
		require.NoError(t, err)
		assert.Nil(t, cleared.CourseLabel)
	})
}

func TestDocumentService_Recalculate(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("repeated recalculation converges", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		invoice := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 1000))
		uow.store.addDocument(withReference(
			mustDocument(t, billing.DocTypeNotaCredito, 501, activeDate, 400),
			1001, refType(billing.DocTypeFacturaElectronica)))

		service := NewDocumentService(uow, testCutoverYear, nil)
		first, err := service.Recalculate(context.Background(), invoice.ID)
		require.NoError(t, err)
		second, err := service.Recalculate(context.Background(), invoice.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(600), first.OutstandingBalance)
		assert.Equal(t, first.OutstandingBalance, second.OutstandingBalance)
		assert.Equal(t, first.State, second.State)
	})

	t.Run("credit notes and historical documents pass through untouched", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		note := uow.store.addDocument(mustDocument(t, billing.DocTypeNotaCredito, 600, activeDate, 50000))
		historical := uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 800,
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 90000))

		service := NewDocumentService(uow, testCutoverYear, nil)

		noteDoc, err := service.Recalculate(context.Background(), note.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), noteDoc.OutstandingBalance)

		frozen, err := service.Recalculate(context.Background(), historical.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StateSettled, frozen.State)
	})
}

func TestDocumentService_List(t *testing.T) {
	activeDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	uow := newFakeUnitOfWork()
	uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaElectronica, 1001, activeDate, 100000))
	uow.store.addDocument(mustDocument(t, billing.DocTypeFacturaExenta, 1002, activeDate, 200000))
	uow.store.addDocument(mustDocument(t, billing.DocTypeNotaCredito, 600, activeDate, 50000))

	service := NewDocumentService(uow, testCutoverYear, nil)
	page, err := service.List(context.Background(), billing.DocumentFilter{
		Filter:   shared.Filter{Page: 1, PageSize: 10},
		DocTypes: []billing.DocumentType{billing.DocTypeFacturaElectronica, billing.DocTypeFacturaExenta},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
}
