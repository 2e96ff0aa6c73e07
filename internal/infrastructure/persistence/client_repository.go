package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/client"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence/models"
)

// GormClientRepository implements client.Repository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySearchKey resolves the exact normalized identity
func (r *GormClientRepository) FindBySearchKey(ctx context.Context, searchKey string) (*client.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		Where("search_key = ?", searchKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindSimilar returns clients whose search key contains every token
func (r *GormClientRepository) FindSimilar(ctx context.Context, tokens []string, limit int) ([]client.Client, error) {
	if len(tokens) == 0 {
		return []client.Client{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := r.db.WithContext(ctx).Model(&models.ClientModel{})
	for _, token := range tokens {
		query = query.Where("search_key LIKE ?", "%"+token+"%")
	}

	var clientModels []models.ClientModel
	if err := query.Order("display_name ASC").Limit(limit).Find(&clientModels).Error; err != nil {
		return nil, err
	}
	clients := make([]client.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = *model.ToDomain()
	}
	return clients, nil
}

// Create persists a new client
func (r *GormClientRepository) Create(ctx context.Context, c *client.Client) error {
	return r.db.WithContext(ctx).Create(models.ClientModelFromDomain(c)).Error
}

// Save updates an existing client
func (r *GormClientRepository) Save(ctx context.Context, c *client.Client) error {
	return r.db.WithContext(ctx).Save(models.ClientModelFromDomain(c)).Error
}

// Delete removes a client
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ClientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List finds clients with their billing summaries
func (r *GormClientRepository) List(ctx context.Context, filter shared.Filter) ([]client.WithStats, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ClientModel{})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(display_name) LIKE ? OR search_key LIKE ?",
			pattern, "%"+strings.ToUpper(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var clientModels []models.ClientModel
	if err := query.Order("display_name ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&clientModels).Error; err != nil {
		return nil, 0, err
	}

	results := make([]client.WithStats, len(clientModels))
	for i, model := range clientModels {
		stats, err := r.Stats(ctx, model.ID)
		if err != nil {
			return nil, 0, err
		}
		results[i] = client.WithStats{Client: *model.ToDomain(), Stats: *stats}
	}
	return results, total, nil
}

// Stats computes the billing summary of one client's invoices
func (r *GormClientRepository) Stats(ctx context.Context, id uuid.UUID) (*client.BillingStats, error) {
	var result struct {
		InvoiceCount     int64
		TotalBilled      int64
		TotalSettled     int64
		TotalOutstanding int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select(
			"COUNT(*) as invoice_count, "+
				"COALESCE(SUM(amount_total), 0) as total_billed, "+
				"COALESCE(SUM(amount_total - outstanding_balance), 0) as total_settled, "+
				"COALESCE(SUM(outstanding_balance), 0) as total_outstanding").
		Where("client_id = ? AND doc_type IN ?", id, invoiceTypeCodes).
		Scan(&result).Error; err != nil {
		return nil, err
	}
	return &client.BillingStats{
		InvoiceCount:     result.InvoiceCount,
		TotalBilled:      result.TotalBilled,
		TotalSettled:     result.TotalSettled,
		TotalOutstanding: result.TotalOutstanding,
	}, nil
}

// Courses lists the distinct course labels on the client's invoices
func (r *GormClientRepository) Courses(ctx context.Context, id uuid.UUID) ([]string, error) {
	var courses []string
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Distinct("course_label").
		Where("client_id = ? AND course_label IS NOT NULL AND course_label <> ''", id).
		Order("course_label ASC").
		Pluck("course_label", &courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// Ensure GormClientRepository implements client.Repository
var _ client.Repository = (*GormClientRepository)(nil)
