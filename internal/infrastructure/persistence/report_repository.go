package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
	"github.com/tecnipro/cobranzas/internal/domain/report"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence/models"
)

var payableStates = []string{
	billing.StatePending.String(),
	billing.StatePartial.String(),
}

// GormReportRepository implements report.Repository with read-only
// aggregation queries over the document store
type GormReportRepository struct {
	db          *gorm.DB
	cutoverYear int
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB, cutoverYear int) *GormReportRepository {
	return &GormReportRepository{db: db, cutoverYear: cutoverYear}
}

// periodExpr builds the "YYYY-MM" grouping expression for the active dialect
func (r *GormReportRepository) periodExpr(column string) string {
	if r.db.Dialector.Name() == "postgres" {
		return "to_char(" + column + ", 'YYYY-MM')"
	}
	return "strftime('%Y-%m', " + column + ")"
}

// yearExpr builds the integer year expression for the active dialect
func (r *GormReportRepository) yearExpr(column string) string {
	if r.db.Dialector.Name() == "postgres" {
		return "CAST(EXTRACT(YEAR FROM " + column + ") AS INTEGER)"
	}
	return "CAST(strftime('%Y', " + column + ") AS INTEGER)"
}

// cutover returns the first instant of the active window
func (r *GormReportRepository) cutover() time.Time {
	return time.Date(r.cutoverYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// yearBounds returns the [from, to) range of one calendar year
func yearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// HistoricalSummary aggregates gross billing per year and month over the
// whole register, frozen history included
func (r *GormReportRepository) HistoricalSummary(ctx context.Context) (*report.HistoricalSummary, error) {
	var invoiceYears []struct {
		Year         int
		InvoiceCount int64
		GrossBilled  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select(r.yearExpr("issue_date") + " as year, COUNT(*) as invoice_count, COALESCE(SUM(amount_total), 0) as gross_billed").
		Where("doc_type IN ?", invoiceTypeCodes).
		Group("year").
		Order("year ASC").
		Scan(&invoiceYears).Error; err != nil {
		return nil, err
	}

	var creditYears []struct {
		Year            int
		CreditNoteCount int64
		CreditNoteTotal int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select(r.yearExpr("issue_date") + " as year, COUNT(*) as credit_note_count, COALESCE(SUM(amount_total), 0) as credit_note_total").
		Where("doc_type = ?", int(billing.DocTypeNotaCredito)).
		Group("year").
		Scan(&creditYears).Error; err != nil {
		return nil, err
	}
	creditByYear := make(map[int]struct {
		count int64
		total int64
	}, len(creditYears))
	for _, c := range creditYears {
		creditByYear[c.Year] = struct {
			count int64
			total int64
		}{c.CreditNoteCount, c.CreditNoteTotal}
	}

	summary := &report.HistoricalSummary{}
	for _, y := range invoiceYears {
		credit := creditByYear[y.Year]
		summary.ByYear = append(summary.ByYear, report.YearTotals{
			Year:            y.Year,
			InvoiceCount:    y.InvoiceCount,
			GrossBilled:     y.GrossBilled,
			CreditNoteCount: credit.count,
			CreditNoteTotal: credit.total,
			NetBilled:       y.GrossBilled - credit.total,
		})
		summary.Years = append(summary.Years, y.Year)
		summary.TotalBilled += y.GrossBilled
		summary.TotalCreditNotes += credit.total
	}

	var months []struct {
		Period       string
		Year         int
		Month        int
		InvoiceCount int64
		GrossBilled  int64
	}
	monthExpr := "CAST(strftime('%m', issue_date) AS INTEGER)"
	if r.db.Dialector.Name() == "postgres" {
		monthExpr = "CAST(EXTRACT(MONTH FROM issue_date) AS INTEGER)"
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select(r.periodExpr("issue_date")+" as period, "+
			r.yearExpr("issue_date")+" as year, "+
			monthExpr+" as month, "+
			"COUNT(*) as invoice_count, COALESCE(SUM(amount_total), 0) as gross_billed").
		Where("doc_type IN ?", invoiceTypeCodes).
		Group("period, year, month").
		Order("period ASC").
		Scan(&months).Error; err != nil {
		return nil, err
	}
	for _, m := range months {
		summary.ByMonth = append(summary.ByMonth, report.MonthTotals{
			Period:       m.Period,
			Year:         m.Year,
			Month:        m.Month,
			InvoiceCount: m.InvoiceCount,
			GrossBilled:  m.GrossBilled,
		})
	}

	return summary, nil
}

// PayerTotals aggregates billing per paying intermediary, netting credit notes
func (r *GormReportRepository) PayerTotals(ctx context.Context, year int) ([]report.PayerTotals, error) {
	invoiceQuery := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("payer_tax_id, MAX(payer_name) as payer_name, COUNT(*) as invoice_count, COALESCE(SUM(amount_total), 0) as gross_billed").
		Where("doc_type IN ?", invoiceTypeCodes)
	creditQuery := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("payer_tax_id, COALESCE(SUM(amount_total), 0) as credit_note_total").
		Where("doc_type = ?", int(billing.DocTypeNotaCredito))
	if year > 0 {
		from, to := yearBounds(year)
		invoiceQuery = invoiceQuery.Where("issue_date >= ? AND issue_date < ?", from, to)
		creditQuery = creditQuery.Where("issue_date >= ? AND issue_date < ?", from, to)
	}

	var invoiceRows []struct {
		PayerTaxID   string
		PayerName    string
		InvoiceCount int64
		GrossBilled  int64
	}
	if err := invoiceQuery.Group("payer_tax_id").
		Order("gross_billed DESC").
		Scan(&invoiceRows).Error; err != nil {
		return nil, err
	}

	var creditRows []struct {
		PayerTaxID      string
		CreditNoteTotal int64
	}
	if err := creditQuery.Group("payer_tax_id").Scan(&creditRows).Error; err != nil {
		return nil, err
	}
	creditByPayer := make(map[string]int64, len(creditRows))
	for _, c := range creditRows {
		creditByPayer[c.PayerTaxID] = c.CreditNoteTotal
	}

	totals := make([]report.PayerTotals, len(invoiceRows))
	for i, row := range invoiceRows {
		credit := creditByPayer[row.PayerTaxID]
		totals[i] = report.PayerTotals{
			PayerTaxID:      row.PayerTaxID,
			PayerName:       row.PayerName,
			InvoiceCount:    row.InvoiceCount,
			GrossBilled:     row.GrossBilled,
			CreditNoteTotal: credit,
			NetBilled:       row.GrossBilled - credit,
		}
	}
	return totals, nil
}

// KPIs computes the collection indicators for the active window
func (r *GormReportRepository) KPIs(ctx context.Context) (*report.KPIs, error) {
	var row struct {
		InvoiceCount     int64
		TotalBilled      int64
		TotalOutstanding int64
		PendingCount     int64
		PartialCount     int64
		SettledCount     int64
		VoidedCount      int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("COUNT(*) as invoice_count, "+
			"COALESCE(SUM(amount_total), 0) as total_billed, "+
			"COALESCE(SUM(outstanding_balance), 0) as total_outstanding, "+
			"COALESCE(SUM(CASE WHEN state = 'PENDING' THEN 1 ELSE 0 END), 0) as pending_count, "+
			"COALESCE(SUM(CASE WHEN state = 'PARTIAL' THEN 1 ELSE 0 END), 0) as partial_count, "+
			"COALESCE(SUM(CASE WHEN state = 'SETTLED' THEN 1 ELSE 0 END), 0) as settled_count, "+
			"COALESCE(SUM(CASE WHEN state = 'VOIDED' THEN 1 ELSE 0 END), 0) as voided_count").
		Where("doc_type IN ? AND issue_date >= ?", invoiceTypeCodes, r.cutover()).
		Scan(&row).Error; err != nil {
		return nil, err
	}

	var creditTotal struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("COALESCE(SUM(amount_total), 0) as total").
		Where("doc_type = ? AND issue_date >= ?", int(billing.DocTypeNotaCredito), r.cutover()).
		Scan(&creditTotal).Error; err != nil {
		return nil, err
	}

	avgDays, err := r.avgDaysToCollect(ctx)
	if err != nil {
		return nil, err
	}

	collected := row.TotalBilled - row.TotalOutstanding
	kpis := &report.KPIs{
		TotalBilled:      row.TotalBilled,
		TotalCollected:   collected,
		TotalOutstanding: row.TotalOutstanding,
		CollectionRate:   percentage(collected, row.TotalBilled),
		InvoiceCount:     row.InvoiceCount,
		PendingCount:     row.PendingCount,
		PartialCount:     row.PartialCount,
		SettledCount:     row.SettledCount,
		VoidedCount:      row.VoidedCount,
		CreditNoteTotal:  creditTotal.Total,
		AvgDaysToCollect: avgDays,
	}
	return kpis, nil
}

// avgDaysToCollect averages issue-to-last-payment spans over settled active
// invoices. Computed in Go to stay dialect-neutral on date arithmetic.
func (r *GormReportRepository) avgDaysToCollect(ctx context.Context) (decimal.Decimal, error) {
	var rows []struct {
		IssueDate   time.Time
		LastPayment time.Time
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("d.issue_date as issue_date, MAX(p.payment_date) as last_payment").
		Joins("JOIN documents d ON d.id = payment_allocations.document_id").
		Joins("JOIN payments p ON p.id = payment_allocations.payment_id").
		Where("d.doc_type IN ? AND d.state = ? AND d.issue_date >= ?",
			invoiceTypeCodes, billing.StateSettled.String(), r.cutover()).
		Group("d.id, d.issue_date").
		Scan(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}

	var totalDays int64
	for _, row := range rows {
		days := int64(row.LastPayment.Sub(row.IssueDate).Hours() / 24)
		if days < 0 {
			days = 0
		}
		totalDays += days
	}
	return decimal.NewFromInt(totalDays).
		Div(decimal.NewFromInt(int64(len(rows)))).
		Round(1), nil
}

// StateDistribution counts active invoices per lifecycle state
func (r *GormReportRepository) StateDistribution(ctx context.Context) ([]report.StateCount, error) {
	var rows []report.StateCount
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("state, COUNT(*) as count, COALESCE(SUM(amount_total), 0) as amount").
		Where("doc_type IN ? AND issue_date >= ?", invoiceTypeCodes, r.cutover()).
		Group("state").
		Order("state ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlyCollection compares billed vs collected amounts by the month the
// invoice was issued, not the month the payment arrived
func (r *GormReportRepository) MonthlyCollection(ctx context.Context) ([]report.MonthlyCollection, error) {
	var billedRows []struct {
		Period      string
		Billed      int64
		Outstanding int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select(r.periodExpr("issue_date") + " as period, COALESCE(SUM(amount_total), 0) as billed, COALESCE(SUM(outstanding_balance), 0) as outstanding").
		Where("doc_type IN ? AND issue_date >= ?", invoiceTypeCodes, r.cutover()).
		Group("period").
		Order("period ASC").
		Scan(&billedRows).Error; err != nil {
		return nil, err
	}

	var collectedRows []struct {
		Period    string
		Collected int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select(r.periodExpr("d.issue_date") + " as period, COALESCE(SUM(payment_allocations.amount), 0) as collected").
		Joins("JOIN documents d ON d.id = payment_allocations.document_id").
		Where("d.issue_date >= ?", r.cutover()).
		Group("period").
		Scan(&collectedRows).Error; err != nil {
		return nil, err
	}
	collectedByPeriod := make(map[string]int64, len(collectedRows))
	for _, c := range collectedRows {
		collectedByPeriod[c.Period] = c.Collected
	}

	result := make([]report.MonthlyCollection, len(billedRows))
	for i, row := range billedRows {
		result[i] = report.MonthlyCollection{
			Period:      row.Period,
			Billed:      row.Billed,
			Collected:   collectedByPeriod[row.Period],
			Outstanding: row.Outstanding,
		}
	}
	return result, nil
}

// TopDebtors ranks payers by outstanding balance on unpaid active invoices
func (r *GormReportRepository) TopDebtors(ctx context.Context, limit int) ([]report.TopDebtor, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []report.TopDebtor
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("payer_tax_id, MAX(payer_name) as payer_name, COUNT(*) as pending_count, COALESCE(SUM(outstanding_balance), 0) as outstanding_total").
		Where("doc_type IN ? AND state IN ? AND issue_date >= ?",
			invoiceTypeCodes, payableStates, r.cutover()).
		Group("payer_tax_id").
		Order("outstanding_total DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Aging classifies unpaid active invoices by days since issue
func (r *GormReportRepository) Aging(ctx context.Context) (*report.AgingBuckets, error) {
	var rows []struct {
		ID          uuid.UUID
		Folio       int64
		PayerName   string
		ClientName  *string
		IssueDate   time.Time
		AmountTotal int64
		Outstanding int64
		State       string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("documents.id, documents.folio, documents.payer_name, c.display_name as client_name, "+
			"documents.issue_date, documents.amount_total, documents.outstanding_balance as outstanding, documents.state").
		Joins("LEFT JOIN clients c ON c.id = documents.client_id").
		Where("documents.doc_type IN ? AND documents.state IN ? AND documents.issue_date >= ?",
			invoiceTypeCodes, payableStates, r.cutover()).
		Order("documents.issue_date ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	buckets := &report.AgingBuckets{}
	for _, row := range rows {
		days := int(now.Sub(row.IssueDate).Hours() / 24)
		if days < 0 {
			days = 0
		}
		item := report.AgingItem{
			DocumentID:  row.ID,
			Folio:       row.Folio,
			PayerName:   row.PayerName,
			ClientName:  row.ClientName,
			IssueDate:   row.IssueDate,
			Total:       row.AmountTotal,
			Outstanding: row.Outstanding,
			State:       row.State,
			DaysOld:     days,
		}
		switch {
		case days > 90:
			buckets.Over90 = append(buckets.Over90, item)
			buckets.CriticalTotal += row.Outstanding
		case days > 60:
			buckets.Days61To90 = append(buckets.Days61To90, item)
		case days > 30:
			buckets.Days31To60 = append(buckets.Days31To60, item)
		default:
			buckets.Under31 = append(buckets.Under31, item)
		}
	}
	return buckets, nil
}

// TopClients ranks assigned clients by active billing
func (r *GormReportRepository) TopClients(ctx context.Context, limit int) ([]report.TopClient, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []struct {
		ClientID         uuid.UUID
		Name             string
		InvoiceCount     int64
		TotalBilled      int64
		TotalOutstanding int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Select("clients.id as client_id, clients.display_name as name, COUNT(d.id) as invoice_count, "+
			"COALESCE(SUM(d.amount_total), 0) as total_billed, COALESCE(SUM(d.outstanding_balance), 0) as total_outstanding").
		Joins("JOIN documents d ON d.client_id = clients.id").
		Where("d.doc_type IN ? AND d.issue_date >= ?", invoiceTypeCodes, r.cutover()).
		Group("clients.id, clients.display_name").
		Order("total_billed DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	clients := make([]report.TopClient, len(rows))
	for i, row := range rows {
		collected := row.TotalBilled - row.TotalOutstanding
		clients[i] = report.TopClient{
			ClientID:         row.ClientID,
			Name:             row.Name,
			InvoiceCount:     row.InvoiceCount,
			TotalBilled:      row.TotalBilled,
			TotalCollected:   collected,
			TotalOutstanding: row.TotalOutstanding,
			CollectedPct:     percentage(collected, row.TotalBilled),
		}
	}
	return clients, nil
}

// TopCourses ranks course labels by active billing
func (r *GormReportRepository) TopCourses(ctx context.Context, limit int) ([]report.TopCourse, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []report.TopCourse
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("course_label as course, COUNT(*) as invoice_count, "+
			"COALESCE(SUM(amount_total), 0) as total_billed, COUNT(DISTINCT client_id) as distinct_clients").
		Where("doc_type IN ? AND course_label IS NOT NULL AND course_label <> '' AND issue_date >= ?",
			invoiceTypeCodes, r.cutover()).
		Group("course_label").
		Order("total_billed DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// percentage returns num/den as a percentage rounded to one decimal.
// A zero denominator yields zero rather than an error.
func percentage(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(den)).
		Round(1)
}

// Ensure GormReportRepository implements report.Repository
var _ report.Repository = (*GormReportRepository)(nil)
