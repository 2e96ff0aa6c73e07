package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/client"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

const similarLimit = 10

// UnitOfWork abstracts the transactional repository bundle so the registry
// can be tested against in-memory fakes.
type UnitOfWork interface {
	Repos() persistence.Repos
	WithinTx(ctx context.Context, fn func(r persistence.Repos) error) error
}

// CreateRequest carries the fields of a new registry entry. Only the name
// participates in deduplication.
type CreateRequest struct {
	Name        string `json:"name"`
	TaxID       string `json:"tax_id"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	// Force skips the similarity check and creates the client even when
	// near-duplicates exist.
	Force bool `json:"force"`
}

// UpdateRequest carries the mutable fields of a registry entry. Nil fields
// are left unchanged.
type UpdateRequest struct {
	Name        *string `json:"name"`
	TaxID       *string `json:"tax_id"`
	ContactName *string `json:"contact_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

// CreateResult reports what the registry did with a create request. Exactly
// one of Created, Existing or Suggestions describes the outcome: a new entry,
// an exact search-key hit, or near-duplicates pending confirmation.
type CreateResult struct {
	Client      *client.Client  `json:"client,omitempty"`
	Created     bool            `json:"created"`
	Existing    bool            `json:"existing"`
	Suggestions []client.Client `json:"suggestions,omitempty"`
}

// MergeResult reports a completed client merge
type MergeResult struct {
	Target         client.Client `json:"target"`
	DocumentsMoved int64         `json:"documents_moved"`
}

// RegistryService manages the client registry: the real downstream customers
// behind the billing intermediaries on the tax documents. Names are
// normalized on the way in, and near-duplicates are surfaced before a new
// entry is created.
type RegistryService struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(uow UnitOfWork, logger *zap.Logger) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{uow: uow, logger: logger}
}

// Create registers a client. An exact normalized-name match returns the
// existing entry instead of a duplicate; a partial match returns suggestions
// unless the request forces creation.
func (s *RegistryService) Create(ctx context.Context, req CreateRequest, actor audit.Actor) (*CreateResult, error) {
	result := &CreateResult{}

	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		c, err := client.New(req.Name, actor.Name)
		if err != nil {
			return err
		}

		existing, err := r.Clients.FindBySearchKey(ctx, c.SearchKey)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			result.Client = existing
			result.Existing = true
			return nil
		}

		if !req.Force {
			tokens := client.SearchTokens(c.SearchKey)
			similar, err := r.Clients.FindSimilar(ctx, tokens, similarLimit)
			if err != nil {
				return err
			}
			if len(similar) > 0 {
				result.Suggestions = similar
				return nil
			}
		}

		c.TaxID = strings.TrimSpace(req.TaxID)
		c.ContactName = strings.TrimSpace(req.ContactName)
		c.Email = strings.TrimSpace(req.Email)
		c.Phone = strings.TrimSpace(req.Phone)

		if err := r.Clients.Create(ctx, c); err != nil {
			return err
		}
		result.Client = c
		result.Created = true

		entry, err := audit.NewEntry(actor, audit.ActionCreateClient,
			fmt.Sprintf("Client %q registered", c.DisplayName))
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.logger.Info("Client registered",
			zap.String("client_id", result.Client.ID.String()),
			zap.String("name", result.Client.DisplayName))
	}
	return result, nil
}

// Update modifies a registry entry. A rename that collides with another
// entry's normalized name is rejected with shared.ErrAlreadyExists.
func (s *RegistryService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest, actor audit.Actor) (*client.Client, error) {
	var updated *client.Client

	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		c, err := r.Clients.FindByID(ctx, id)
		if err != nil {
			return err
		}
		previousName := c.DisplayName

		if req.Name != nil {
			_, searchKey := client.Normalize(*req.Name)
			other, err := r.Clients.FindBySearchKey(ctx, searchKey)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if other != nil && other.ID != c.ID {
				return shared.ErrAlreadyExists
			}
			if err := c.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.TaxID != nil {
			c.TaxID = strings.TrimSpace(*req.TaxID)
		}
		if req.ContactName != nil {
			c.ContactName = strings.TrimSpace(*req.ContactName)
		}
		if req.Email != nil {
			c.Email = strings.TrimSpace(*req.Email)
		}
		if req.Phone != nil {
			c.Phone = strings.TrimSpace(*req.Phone)
		}
		c.Touch()

		if err := r.Clients.Save(ctx, c); err != nil {
			return err
		}
		updated = c

		detail := fmt.Sprintf("Client %q updated", c.DisplayName)
		if c.DisplayName != previousName {
			detail = fmt.Sprintf("Client %q renamed to %q", previousName, c.DisplayName)
		}
		entry, err := audit.NewEntry(actor, audit.ActionUpdateClient, detail)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Merge folds one registry entry into another: every document of the source
// moves to the target, then the source is deleted. The audit entry records
// both names and the number of documents moved.
func (s *RegistryService) Merge(ctx context.Context, sourceID, targetID uuid.UUID, actor audit.Actor) (*MergeResult, error) {
	if sourceID == targetID {
		return nil, shared.NewDomainError("MERGE_SELF", "A client cannot be merged into itself")
	}

	var result *MergeResult
	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		source, err := r.Clients.FindByID(ctx, sourceID)
		if err != nil {
			return err
		}
		target, err := r.Clients.FindByID(ctx, targetID)
		if err != nil {
			return err
		}

		moved, err := r.Documents.ReassignClient(ctx, sourceID, targetID)
		if err != nil {
			return err
		}
		if err := r.Clients.Delete(ctx, sourceID); err != nil {
			return err
		}
		result = &MergeResult{Target: *target, DocumentsMoved: moved}

		detail := fmt.Sprintf("Client %q merged into %q, %d documents moved",
			source.DisplayName, target.DisplayName, moved)
		entry, err := audit.NewEntry(actor, audit.ActionMergeClients, detail)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Clients merged",
		zap.String("source_id", sourceID.String()),
		zap.String("target_id", targetID.String()),
		zap.Int64("documents_moved", result.DocumentsMoved))
	return result, nil
}

// Get returns one registry entry
func (s *RegistryService) Get(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	return s.uow.Repos().Clients.FindByID(ctx, id)
}

// Search finds clients whose normalized name contains every significant
// token of the query
func (s *RegistryService) Search(ctx context.Context, query string, limit int) ([]client.Client, error) {
	_, searchKey := client.Normalize(query)
	tokens := client.SearchTokens(searchKey)
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = similarLimit
	}
	return s.uow.Repos().Clients.FindSimilar(ctx, tokens, limit)
}

// List returns registry entries with their billing summaries
func (s *RegistryService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[client.WithStats], error) {
	clients, total, err := s.uow.Repos().Clients.List(ctx, filter)
	if err != nil {
		return shared.Paginated[client.WithStats]{}, err
	}
	return shared.NewPaginated(clients, total, filter.Page, filter.PageSize), nil
}

// Stats returns the billing summary of one client
func (s *RegistryService) Stats(ctx context.Context, id uuid.UUID) (*client.BillingStats, error) {
	if _, err := s.uow.Repos().Clients.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.uow.Repos().Clients.Stats(ctx, id)
}

// Courses lists the distinct course labels on the client's invoices
func (s *RegistryService) Courses(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.uow.Repos().Clients.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.uow.Repos().Clients.Courses(ctx, id)
}
