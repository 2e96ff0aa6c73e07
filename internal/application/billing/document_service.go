package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// DocumentService serves document reads and the per-invoice management
// assignments (client, course)
type DocumentService struct {
	uow         UnitOfWork
	recalc      *billing.Recalculator
	cutoverYear int
	logger      *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(uow UnitOfWork, cutoverYear int, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		uow:         uow,
		recalc:      billing.NewRecalculator(cutoverYear),
		cutoverYear: cutoverYear,
		logger:      logger,
	}
}

// Get returns one document by id
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	return s.uow.Repos().Documents.FindByID(ctx, id)
}

// GetByFolio resolves a document by folio. A nil docType searches the invoice
// types only.
func (s *DocumentService) GetByFolio(ctx context.Context, folio int64, docType *billing.DocumentType) (*billing.Document, error) {
	return s.uow.Repos().Documents.FindByFolio(ctx, folio, docType)
}

// List returns documents matching the filter
func (s *DocumentService) List(ctx context.Context, filter billing.DocumentFilter) (shared.Paginated[billing.Document], error) {
	docs, total, err := s.uow.Repos().Documents.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[billing.Document]{}, err
	}
	return shared.NewPaginated(docs, total, filter.Page, filter.PageSize), nil
}

// Recalculate re-derives the balance and state of one document from the
// current payment and credit note sums
func (s *DocumentService) Recalculate(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	var doc *billing.Document
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		var err error
		doc, err = s.recalc.Recalculate(ctx, r.Documents, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RecalculateAll re-derives every active invoice. Used after bulk changes
// such as a cutover year adjustment.
func (s *DocumentService) RecalculateAll(ctx context.Context) (int, error) {
	var touched int
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		filter := billing.DocumentFilter{
			Filter: shared.Filter{Page: 1, PageSize: 1000},
			DocTypes: []billing.DocumentType{
				billing.DocTypeFacturaElectronica,
				billing.DocTypeFacturaExenta,
			},
			YearFrom: s.cutoverYear,
		}
		for {
			docs, _, err := r.Documents.FindAll(ctx, filter)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return nil
			}
			for i := range docs {
				if _, err := s.recalc.Recalculate(ctx, r.Documents, docs[i].ID); err != nil {
					return err
				}
				touched++
			}
			if len(docs) < filter.PageSize {
				return nil
			}
			filter.Page++
		}
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Balance recalculation finished", zap.Int("documents", touched))
	return touched, nil
}

// AssignClient links an invoice to a registered client. Only active invoices
// accept the assignment.
func (s *DocumentService) AssignClient(ctx context.Context, documentID, clientID uuid.UUID, actor audit.Actor) (*billing.Document, error) {
	var doc *billing.Document
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		var err error
		doc, err = r.Documents.FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		c, err := r.Clients.FindByID(ctx, clientID)
		if err != nil {
			return err
		}
		if err := doc.AssignClient(clientID, s.cutoverYear); err != nil {
			return err
		}
		if err := r.Documents.Save(ctx, doc); err != nil {
			return err
		}

		detail := fmt.Sprintf("Invoice folio %d assigned to client %q", doc.Folio, c.DisplayName)
		entry, err := audit.NewEntry(actor, audit.ActionAssignClient, detail)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AssignCourse tags an invoice with the course it was billed for. An empty
// label clears the tag.
func (s *DocumentService) AssignCourse(ctx context.Context, documentID uuid.UUID, label string, actor audit.Actor) (*billing.Document, error) {
	var doc *billing.Document
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		var err error
		doc, err = r.Documents.FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		if err := doc.AssignCourse(label, s.cutoverYear); err != nil {
			return err
		}
		if err := r.Documents.Save(ctx, doc); err != nil {
			return err
		}

		detail := fmt.Sprintf("Invoice folio %d tagged with course %q", doc.Folio, label)
		if label == "" {
			detail = fmt.Sprintf("Invoice folio %d course tag cleared", doc.Folio)
		}
		entry, err := audit.NewEntry(actor, audit.ActionAssignCourse, detail)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Courses lists the distinct course labels in use on active invoices
func (s *DocumentService) Courses(ctx context.Context) ([]string, error) {
	return s.uow.Repos().Documents.DistinctCourses(ctx, s.cutoverYear)
}
