package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence/models"
)

var invoiceTypeCodes = []int{
	int(billing.DocTypeFacturaElectronica),
	int(billing.DocTypeFacturaExenta),
}

// documentOrderColumns is the allowlist for user-supplied ordering
var documentOrderColumns = map[string]bool{
	"issue_date":          true,
	"folio":               true,
	"amount_total":        true,
	"outstanding_balance": true,
	"state":               true,
	"tax_period":          true,
	"created_at":          true,
}

// GormDocumentRepository implements billing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFolio resolves a folio to a document. A nil docType restricts the
// search to the invoice types.
func (r *GormDocumentRepository) FindByFolio(ctx context.Context, folio int64, docType *billing.DocumentType) (*billing.Document, error) {
	var model models.DocumentModel
	query := r.db.WithContext(ctx).Where("folio = ?", folio)
	if docType != nil {
		query = query.Where("doc_type = ?", int(*docType))
	} else {
		query = query.Where("doc_type IN ?", invoiceTypeCodes)
	}
	if err := query.Order("doc_type ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// InsertIfAbsent persists the document unless its (doc_type, folio) identity
// already exists. The existing record is returned so import runs can report
// duplicates without treating them as failures.
func (r *GormDocumentRepository) InsertIfAbsent(ctx context.Context, doc *billing.Document) (bool, *billing.Document, error) {
	var existing models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("doc_type = ? AND folio = ?", int(doc.DocType), doc.Folio).
		First(&existing).Error
	if err == nil {
		return false, existing.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, err
	}

	if err := r.db.WithContext(ctx).Create(models.DocumentModelFromDomain(doc)).Error; err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// Save creates or updates a document
func (r *GormDocumentRepository) Save(ctx context.Context, doc *billing.Document) error {
	return r.db.WithContext(ctx).Save(models.DocumentModelFromDomain(doc)).Error
}

// FindAll finds documents with filtering and pagination
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter billing.DocumentFilter) ([]billing.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{})
	query = applyDocumentFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(documentOrder(filter.Filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit())

	var documentModels []models.DocumentModel
	if err := query.Find(&documentModels).Error; err != nil {
		return nil, 0, err
	}

	documents := make([]billing.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, total, nil
}

// CreditNotes returns every credit note ordered by issue date
func (r *GormDocumentRepository) CreditNotes(ctx context.Context) ([]billing.Document, error) {
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("doc_type = ?", int(billing.DocTypeNotaCredito)).
		Order("issue_date ASC, folio ASC").
		Find(&documentModels).Error; err != nil {
		return nil, err
	}
	documents := make([]billing.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// UnmatchedCreditNotes returns credit notes whose reference folio resolves to
// no stored invoice, newest first
func (r *GormDocumentRepository) UnmatchedCreditNotes(ctx context.Context) ([]billing.Document, error) {
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("doc_type = ?", int(billing.DocTypeNotaCredito)).
		Where("ref_folio IS NOT NULL AND ref_folio > 0").
		Where("NOT EXISTS (SELECT 1 FROM documents inv WHERE inv.folio = documents.ref_folio AND inv.doc_type IN ?)", invoiceTypeCodes).
		Order("issue_date DESC, folio DESC").
		Find(&documentModels).Error; err != nil {
		return nil, err
	}
	documents := make([]billing.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// SumAllocations totals the payment amounts applied to a document
func (r *GormDocumentRepository) SumAllocations(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("document_id = ?", documentID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SumReferencingCreditNotes totals credit notes whose reference resolves to
// the given invoice identity, by typed match or by untyped folio match
func (r *GormDocumentRepository) SumReferencingCreditNotes(ctx context.Context, folio int64, docType billing.DocumentType) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("COALESCE(SUM(amount_total), 0) as total").
		Where("doc_type = ?", int(billing.DocTypeNotaCredito)).
		Where("ref_folio = ?", folio).
		Where("ref_doc_type = ? OR ref_doc_type IS NULL OR ref_doc_type NOT IN ?", int(docType), invoiceTypeCodes).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// ReassignClient moves every document of one client to another
func (r *GormDocumentRepository) ReassignClient(ctx context.Context, fromClientID, toClientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("client_id = ?", fromClientID).
		Updates(map[string]any{"client_id": toClientID, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DistinctCourses lists the course labels in use on active invoices
func (r *GormDocumentRepository) DistinctCourses(ctx context.Context, cutoverYear int) ([]string, error) {
	cutover := time.Date(cutoverYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	var courses []string
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Distinct("course_label").
		Where("course_label IS NOT NULL AND course_label <> ''").
		Where("doc_type IN ?", invoiceTypeCodes).
		Where("issue_date >= ?", cutover).
		Order("course_label ASC").
		Pluck("course_label", &courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// applyDocumentFilter applies filter options without pagination
func applyDocumentFilter(query *gorm.DB, filter billing.DocumentFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(payer_name) LIKE ? OR LOWER(payer_tax_id) LIKE ? OR CAST(folio AS TEXT) LIKE ?",
			pattern, pattern, pattern)
	}
	if len(filter.DocTypes) > 0 {
		codes := make([]int, len(filter.DocTypes))
		for i, t := range filter.DocTypes {
			codes[i] = int(t)
		}
		query = query.Where("doc_type IN ?", codes)
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = s.String()
		}
		query = query.Where("state IN ?", states)
	}
	if filter.TaxPeriod != "" {
		query = query.Where("tax_period = ?", filter.TaxPeriod)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.YearFrom > 0 {
		query = query.Where("issue_date >= ?", time.Date(filter.YearFrom, time.January, 1, 0, 0, 0, 0, time.UTC))
	}
	if filter.YearTo > 0 {
		query = query.Where("issue_date < ?", time.Date(filter.YearTo+1, time.January, 1, 0, 0, 0, 0, time.UTC))
	}
	return query
}

// documentOrder builds the ORDER BY clause from the allowlisted columns
func documentOrder(filter shared.Filter) string {
	column := "issue_date"
	if documentOrderColumns[filter.OrderBy] {
		column = filter.OrderBy
	}
	dir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = "ASC"
	}
	return column + " " + dir + ", folio " + dir
}

// Ensure GormDocumentRepository implements billing.DocumentRepository
var _ billing.DocumentRepository = (*GormDocumentRepository)(nil)
