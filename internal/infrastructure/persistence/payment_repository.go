package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindWithAllocations finds a payment together with its distribution
func (r *GormPaymentRepository) FindWithAllocations(ctx context.Context, id uuid.UUID) (*billing.PaymentWithAllocations, error) {
	payment, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", id).
		Order("created_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}

	result := &billing.PaymentWithAllocations{Payment: *payment}
	result.Allocations = make([]billing.Allocation, len(allocationModels))
	for i, model := range allocationModels {
		result.Allocations[i] = *model.ToDomain()
	}
	return result, nil
}

// Create persists the payment and its full allocation set
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment, allocations []*billing.Allocation) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error; err != nil {
		return err
	}
	for _, allocation := range allocations {
		if err := r.db.WithContext(ctx).Create(models.AllocationModelFromDomain(allocation)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the payment and cascades to its allocations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.AllocationModel{}, "payment_id = ?", id).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List finds payments with their allocations, newest first by default
func (r *GormPaymentRepository) List(ctx context.Context, filter shared.Filter) ([]billing.PaymentWithAllocations, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(note) LIKE ? OR LOWER(recorded_by) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var paymentModels []models.PaymentModel
	if err := query.Order("payment_date DESC, created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}
	if len(paymentModels) == 0 {
		return []billing.PaymentWithAllocations{}, total, nil
	}

	paymentIDs := make([]uuid.UUID, len(paymentModels))
	for i, model := range paymentModels {
		paymentIDs[i] = model.ID
	}
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("payment_id IN ?", paymentIDs).
		Order("created_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, 0, err
	}
	byPayment := make(map[uuid.UUID][]billing.Allocation)
	for _, model := range allocationModels {
		byPayment[model.PaymentID] = append(byPayment[model.PaymentID], *model.ToDomain())
	}

	results := make([]billing.PaymentWithAllocations, len(paymentModels))
	for i, model := range paymentModels {
		results[i] = billing.PaymentWithAllocations{
			Payment:     *model.ToDomain(),
			Allocations: byPayment[model.ID],
		}
	}
	return results, total, nil
}

// ListByDocument returns the payment history of one document, oldest first
func (r *GormPaymentRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]billing.DocumentPayment, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	if len(allocationModels) == 0 {
		return []billing.DocumentPayment{}, nil
	}

	paymentIDs := make([]uuid.UUID, len(allocationModels))
	for i, model := range allocationModels {
		paymentIDs[i] = model.PaymentID
	}
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", paymentIDs).
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make(map[uuid.UUID]models.PaymentModel, len(paymentModels))
	for _, model := range paymentModels {
		payments[model.ID] = model
	}

	history := make([]billing.DocumentPayment, 0, len(allocationModels))
	for _, allocation := range allocationModels {
		payment, ok := payments[allocation.PaymentID]
		if !ok {
			continue
		}
		history = append(history, billing.DocumentPayment{
			PaymentID:     payment.ID,
			PaymentDate:   payment.PaymentDate,
			AppliedAmount: allocation.Amount,
			AppliedAt:     allocation.CreatedAt,
			Note:          payment.Note,
			RecordedBy:    payment.RecordedBy,
		})
	}
	return history, nil
}

// Ensure GormPaymentRepository implements billing.PaymentRepository
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
