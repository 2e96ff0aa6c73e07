package billing

import (
	"context"

	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// UnitOfWork abstracts the transactional repository bundle so services can
// be tested against in-memory fakes.
type UnitOfWork interface {
	// Repos returns a non-transactional bundle for read paths.
	Repos() persistence.Repos
	// WithinTx executes fn atomically; an error rolls everything back.
	WithinTx(ctx context.Context, fn func(r persistence.Repos) error) error
}
