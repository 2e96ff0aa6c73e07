package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// newMockDocumentRepository creates a GormDocumentRepository with a mocked SQL connection
func newMockDocumentRepository(t *testing.T) (*GormDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDocumentRepository(gormDB), mock, mockDB
}

func documentRows(id uuid.UUID, docType int, folio int64, total, outstanding int64, state string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "doc_type", "folio", "issue_date", "amount_total",
		"outstanding_balance", "state", "tax_period", "source_file", "imported_at",
	}).AddRow(id, docType, folio, now, total, outstanding, state, "2026-01", "ventas 01_2026.csv", now)
}

func TestGormDocumentRepository_FindByID(t *testing.T) {
	t.Run("finds existing document", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(documentRows(id, 33, 1001, 1190000, 1190000, "PENDING"))

		doc, err := repo.FindByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, billing.DocTypeFacturaElectronica, doc.DocType)
		assert.Equal(t, int64(1001), doc.Folio)
		assert.Equal(t, billing.StatePending, doc.State)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing record to shared.ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		doc, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, doc)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindByFolio(t *testing.T) {
	t.Run("nil type searches invoice types only", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE folio = \$1 AND doc_type IN \(\$2,\$3\) ORDER BY doc_type ASC,.* LIMIT .*`).
			WithArgs(int64(1001), 33, 34, 1).
			WillReturnRows(documentRows(id, 34, 1001, 500000, 500000, "PENDING"))

		doc, err := repo.FindByFolio(context.Background(), 1001, nil)

		require.NoError(t, err)
		assert.Equal(t, billing.DocTypeFacturaExenta, doc.DocType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit type matches exactly", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		docType := billing.DocTypeNotaCredito
		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE folio = \$1 AND doc_type = \$2 ORDER BY doc_type ASC,.* LIMIT .*`).
			WithArgs(int64(501), 61, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByFolio(context.Background(), 501, &docType)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_InsertIfAbsent(t *testing.T) {
	t.Run("returns existing document without inserting", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		existingID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE doc_type = \$1 AND folio = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(33, int64(1001), 1).
			WillReturnRows(documentRows(existingID, 33, 1001, 1190000, 0, "SETTLED"))

		doc, err := billing.NewImportedDocument(billing.DocTypeFacturaElectronica, 1001,
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			billing.Amounts{Total: 1190000}, "2026-03", "ventas 03_2026.csv", 2026)
		require.NoError(t, err)

		inserted, existing, err := repo.InsertIfAbsent(context.Background(), doc)

		require.NoError(t, err)
		assert.False(t, inserted)
		require.NotNil(t, existing)
		assert.Equal(t, existingID, existing.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_SumAllocations(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	documentID := uuid.New()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) as total FROM "payment_allocations" WHERE document_id = \$1`).
		WithArgs(documentID).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(450000)))

	total, err := repo.SumAllocations(context.Background(), documentID)

	require.NoError(t, err)
	assert.Equal(t, int64(450000), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDocumentRepository_ReassignClient(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	from := uuid.New()
	to := uuid.New()
	mock.ExpectExec(`UPDATE "documents" SET .* WHERE client_id = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	moved, err := repo.ReassignClient(context.Background(), from, to)

	require.NoError(t, err)
	assert.Equal(t, int64(7), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
