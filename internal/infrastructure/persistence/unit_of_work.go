package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/client"
)

// Repos bundles every repository bound to one database handle. Inside a
// transaction the bundle is rebound to the transaction handle, so writes to
// documents, payments, clients and the audit trail commit or roll back
// together.
type Repos struct {
	Documents billing.DocumentRepository
	Payments  billing.PaymentRepository
	Clients   client.Repository
	Audit     audit.Repository
}

// NewRepos builds a repository bundle over a database handle
func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Documents: NewGormDocumentRepository(db),
		Payments:  NewGormPaymentRepository(db),
		Clients:   NewGormClientRepository(db),
		Audit:     NewGormAuditRepository(db),
	}
}

// UnitOfWork runs application operations atomically over the full bundle
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a UnitOfWork over the database connection
func NewUnitOfWork(database *Database) *UnitOfWork {
	return &UnitOfWork{db: database.DB}
}

// Repos returns a non-transactional bundle for read paths
func (u *UnitOfWork) Repos() Repos {
	return NewRepos(u.db)
}

// WithinTx executes fn inside one database transaction. Returning an error
// rolls back every write made through the bundle.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}
