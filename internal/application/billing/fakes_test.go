package billing

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/client"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// fakeStore is a single in-memory backing store shared by the fake
// repositories, mirroring how the real ones share one database
type fakeStore struct {
	documents   map[uuid.UUID]*billing.Document
	payments    map[uuid.UUID]*billing.Payment
	allocations map[uuid.UUID]*billing.Allocation
	clients     map[uuid.UUID]*client.Client
	entries     []audit.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents:   make(map[uuid.UUID]*billing.Document),
		payments:    make(map[uuid.UUID]*billing.Payment),
		allocations: make(map[uuid.UUID]*billing.Allocation),
		clients:     make(map[uuid.UUID]*client.Client),
	}
}

func (s *fakeStore) addDocument(doc *billing.Document) *billing.Document {
	cp := *doc
	s.documents[cp.ID] = &cp
	return &cp
}

func (s *fakeStore) addClient(c *client.Client) *client.Client {
	cp := *c
	s.clients[cp.ID] = &cp
	return &cp
}

// fakeUnitOfWork hands out the same repository bundle with and without a
// transaction; services under test never exercise rollback here
type fakeUnitOfWork struct {
	store *fakeStore
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{store: newFakeStore()}
}

func (u *fakeUnitOfWork) Repos() persistence.Repos {
	return persistence.Repos{
		Documents: &fakeDocumentRepository{store: u.store},
		Payments:  &fakePaymentRepository{store: u.store},
		Clients:   &fakeClientRepository{store: u.store},
		Audit:     &fakeAuditRepository{store: u.store},
	}
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(r persistence.Repos) error) error {
	return fn(u.Repos())
}

var _ UnitOfWork = (*fakeUnitOfWork)(nil)

type fakeDocumentRepository struct {
	store *fakeStore
}

var _ billing.DocumentRepository = (*fakeDocumentRepository)(nil)

func (r *fakeDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	doc, ok := r.store.documents[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocumentRepository) FindByFolio(ctx context.Context, folio int64, docType *billing.DocumentType) (*billing.Document, error) {
	var matches []*billing.Document
	for _, doc := range r.store.documents {
		if doc.Folio != folio {
			continue
		}
		if docType != nil {
			if doc.DocType == *docType {
				matches = append(matches, doc)
			}
			continue
		}
		if doc.DocType.IsInvoice() {
			matches = append(matches, doc)
		}
	}
	if len(matches) == 0 {
		return nil, shared.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DocType < matches[j].DocType })
	cp := *matches[0]
	return &cp, nil
}

func (r *fakeDocumentRepository) InsertIfAbsent(ctx context.Context, doc *billing.Document) (bool, *billing.Document, error) {
	for _, existing := range r.store.documents {
		if existing.DocType == doc.DocType && existing.Folio == doc.Folio {
			cp := *existing
			return false, &cp, nil
		}
	}
	cp := *doc
	r.store.documents[cp.ID] = &cp
	return true, &cp, nil
}

func (r *fakeDocumentRepository) Save(ctx context.Context, doc *billing.Document) error {
	if _, ok := r.store.documents[doc.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *doc
	r.store.documents[doc.ID] = &cp
	return nil
}

func (r *fakeDocumentRepository) FindAll(ctx context.Context, filter billing.DocumentFilter) ([]billing.Document, int64, error) {
	var docs []billing.Document
	for _, doc := range r.store.documents {
		if len(filter.DocTypes) > 0 && !containsType(filter.DocTypes, doc.DocType) {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, doc.State) {
			continue
		}
		if filter.TaxPeriod != "" && doc.TaxPeriod != filter.TaxPeriod {
			continue
		}
		if filter.ClientID != nil && (doc.ClientID == nil || *doc.ClientID != *filter.ClientID) {
			continue
		}
		if filter.YearFrom > 0 && doc.IssueDate.Year() < filter.YearFrom {
			continue
		}
		if filter.YearTo > 0 && doc.IssueDate.Year() > filter.YearTo {
			continue
		}
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Folio < docs[j].Folio })
	total := int64(len(docs))

	offset := filter.Offset()
	if offset > len(docs) {
		offset = len(docs)
	}
	end := offset + filter.Limit()
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], total, nil
}

func (r *fakeDocumentRepository) CreditNotes(ctx context.Context) ([]billing.Document, error) {
	var notes []billing.Document
	for _, doc := range r.store.documents {
		if doc.DocType.IsCreditNote() {
			notes = append(notes, *doc)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].IssueDate.Equal(notes[j].IssueDate) {
			return notes[i].IssueDate.Before(notes[j].IssueDate)
		}
		return notes[i].Folio < notes[j].Folio
	})
	return notes, nil
}

func (r *fakeDocumentRepository) UnmatchedCreditNotes(ctx context.Context) ([]billing.Document, error) {
	var unmatched []billing.Document
	for _, doc := range r.store.documents {
		if !doc.DocType.IsCreditNote() || !doc.HasReference() {
			continue
		}
		if _, err := r.FindByFolio(ctx, *doc.RefFolio, invoiceRefType(doc.RefDocType)); err != nil {
			unmatched = append(unmatched, *doc)
		}
	}
	return unmatched, nil
}

func (r *fakeDocumentRepository) SumAllocations(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var sum int64
	for _, a := range r.store.allocations {
		if a.DocumentID == documentID {
			sum += a.AppliedAmount
		}
	}
	return sum, nil
}

func (r *fakeDocumentRepository) SumReferencingCreditNotes(ctx context.Context, folio int64, docType billing.DocumentType) (int64, error) {
	var sum int64
	for _, doc := range r.store.documents {
		if !doc.DocType.IsCreditNote() || doc.RefFolio == nil || *doc.RefFolio != folio {
			continue
		}
		if doc.RefDocType == nil || !doc.RefDocType.IsInvoice() || *doc.RefDocType == docType {
			sum += doc.Amounts.Total
		}
	}
	return sum, nil
}

func (r *fakeDocumentRepository) ReassignClient(ctx context.Context, fromClientID, toClientID uuid.UUID) (int64, error) {
	var moved int64
	for _, doc := range r.store.documents {
		if doc.ClientID != nil && *doc.ClientID == fromClientID {
			id := toClientID
			doc.ClientID = &id
			moved++
		}
	}
	return moved, nil
}

func (r *fakeDocumentRepository) DistinctCourses(ctx context.Context, cutoverYear int) ([]string, error) {
	seen := make(map[string]bool)
	for _, doc := range r.store.documents {
		if doc.CourseLabel != nil && !doc.IsHistorical(cutoverYear) {
			seen[*doc.CourseLabel] = true
		}
	}
	courses := make([]string, 0, len(seen))
	for label := range seen {
		courses = append(courses, label)
	}
	sort.Strings(courses)
	return courses, nil
}

func invoiceRefType(refType *billing.DocumentType) *billing.DocumentType {
	if refType != nil && refType.IsInvoice() {
		return refType
	}
	return nil
}

func containsType(types []billing.DocumentType, t billing.DocumentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsState(states []billing.DocumentState, s billing.DocumentState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

type fakePaymentRepository struct {
	store *fakeStore
}

var _ billing.PaymentRepository = (*fakePaymentRepository)(nil)

func (r *fakePaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.store.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepository) FindWithAllocations(ctx context.Context, id uuid.UUID) (*billing.PaymentWithAllocations, error) {
	p, ok := r.store.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	result := &billing.PaymentWithAllocations{Payment: *p}
	for _, a := range r.store.allocations {
		if a.PaymentID == id {
			result.Allocations = append(result.Allocations, *a)
		}
	}
	return result, nil
}

func (r *fakePaymentRepository) Create(ctx context.Context, payment *billing.Payment, allocations []*billing.Allocation) error {
	cp := *payment
	r.store.payments[cp.ID] = &cp
	for _, a := range allocations {
		ca := *a
		r.store.allocations[ca.ID] = &ca
	}
	return nil
}

func (r *fakePaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.store.payments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.store.payments, id)
	for aid, a := range r.store.allocations {
		if a.PaymentID == id {
			delete(r.store.allocations, aid)
		}
	}
	return nil
}

func (r *fakePaymentRepository) List(ctx context.Context, filter shared.Filter) ([]billing.PaymentWithAllocations, int64, error) {
	var results []billing.PaymentWithAllocations
	for id := range r.store.payments {
		p, err := r.FindWithAllocations(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Payment.PaymentDate.After(results[j].Payment.PaymentDate)
	})
	return results, int64(len(results)), nil
}

func (r *fakePaymentRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]billing.DocumentPayment, error) {
	var history []billing.DocumentPayment
	for _, a := range r.store.allocations {
		if a.DocumentID != documentID {
			continue
		}
		p := r.store.payments[a.PaymentID]
		history = append(history, billing.DocumentPayment{
			PaymentID:     p.ID,
			PaymentDate:   p.PaymentDate,
			AppliedAmount: a.AppliedAmount,
			AppliedAt:     a.CreatedAt,
			Note:          p.Note,
			RecordedBy:    p.RecordedBy,
		})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].PaymentDate.Before(history[j].PaymentDate)
	})
	return history, nil
}

type fakeClientRepository struct {
	store *fakeStore
}

var _ client.Repository = (*fakeClientRepository)(nil)

func (r *fakeClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	c, ok := r.store.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClientRepository) FindBySearchKey(ctx context.Context, searchKey string) (*client.Client, error) {
	for _, c := range r.store.clients {
		if c.SearchKey == searchKey {
			cp := *c
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeClientRepository) FindSimilar(ctx context.Context, tokens []string, limit int) ([]client.Client, error) {
	var matches []client.Client
	for _, c := range r.store.clients {
		all := true
		for _, token := range tokens {
			if !strings.Contains(c.SearchKey, token) {
				all = false
				break
			}
		}
		if all && len(tokens) > 0 {
			matches = append(matches, *c)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DisplayName < matches[j].DisplayName })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *fakeClientRepository) Create(ctx context.Context, c *client.Client) error {
	cp := *c
	r.store.clients[cp.ID] = &cp
	return nil
}

func (r *fakeClientRepository) Save(ctx context.Context, c *client.Client) error {
	if _, ok := r.store.clients[c.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *c
	r.store.clients[c.ID] = &cp
	return nil
}

func (r *fakeClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.store.clients[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.store.clients, id)
	return nil
}

func (r *fakeClientRepository) List(ctx context.Context, filter shared.Filter) ([]client.WithStats, int64, error) {
	var results []client.WithStats
	for id, c := range r.store.clients {
		stats, err := r.Stats(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, client.WithStats{Client: *c, Stats: *stats})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Client.DisplayName < results[j].Client.DisplayName
	})
	return results, int64(len(results)), nil
}

func (r *fakeClientRepository) Stats(ctx context.Context, id uuid.UUID) (*client.BillingStats, error) {
	stats := &client.BillingStats{}
	for _, doc := range r.store.documents {
		if doc.ClientID == nil || *doc.ClientID != id || !doc.DocType.IsInvoice() {
			continue
		}
		stats.InvoiceCount++
		stats.TotalBilled += doc.Amounts.Total
		stats.TotalSettled += doc.Amounts.Total - doc.OutstandingBalance
		stats.TotalOutstanding += doc.OutstandingBalance
	}
	return stats, nil
}

func (r *fakeClientRepository) Courses(ctx context.Context, id uuid.UUID) ([]string, error) {
	seen := make(map[string]bool)
	for _, doc := range r.store.documents {
		if doc.ClientID != nil && *doc.ClientID == id && doc.CourseLabel != nil {
			seen[*doc.CourseLabel] = true
		}
	}
	courses := make([]string, 0, len(seen))
	for label := range seen {
		courses = append(courses, label)
	}
	sort.Strings(courses)
	return courses, nil
}

type fakeAuditRepository struct {
	store *fakeStore
}

var _ audit.Repository = (*fakeAuditRepository)(nil)

func (r *fakeAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	r.store.entries = append(r.store.entries, *entry)
	return nil
}

func (r *fakeAuditRepository) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	var entries []audit.Entry
	for _, e := range r.store.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		entries = append(entries, e)
	}
	return entries, int64(len(entries)), nil
}
