package audit

import (
	"context"

	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// Filter narrows audit listing reads
type Filter struct {
	shared.Filter
	Action Action
	Actor  string
}

// Repository is the append-only action log store. There is deliberately no
// update or delete operation.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int64, error)
}
