package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// YearTotals is one year of gross billing, net of credit notes
type YearTotals struct {
	Year            int   `json:"year"`
	InvoiceCount    int64 `json:"invoice_count"`
	GrossBilled     int64 `json:"gross_billed"`
	CreditNoteCount int64 `json:"credit_note_count"`
	CreditNoteTotal int64 `json:"credit_note_total"`
	NetBilled       int64 `json:"net_billed"`
}

// MonthTotals is one calendar month of gross billing
type MonthTotals struct {
	Period       string `json:"period"` // "YYYY-MM"
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	InvoiceCount int64  `json:"invoice_count"`
	GrossBilled  int64  `json:"gross_billed"`
}

// HistoricalSummary covers the full register, including frozen history.
// Balances are deliberately absent, pre-cutover documents are assumed
// collected.
type HistoricalSummary struct {
	ByYear           []YearTotals  `json:"by_year"`
	ByMonth          []MonthTotals `json:"by_month"`
	TotalBilled      int64         `json:"total_billed"`
	TotalCreditNotes int64         `json:"total_credit_notes"`
	Years            []int         `json:"years"`
}

// PayerTotals aggregates billing by the paying intermediary on the documents
type PayerTotals struct {
	PayerTaxID      string `json:"payer_tax_id"`
	PayerName       string `json:"payer_name"`
	InvoiceCount    int64  `json:"invoice_count"`
	GrossBilled     int64  `json:"gross_billed"`
	CreditNoteTotal int64  `json:"credit_note_total"`
	NetBilled       int64  `json:"net_billed"`
}

// KPIs are the collection indicators for the active window
type KPIs struct {
	TotalBilled      int64           `json:"total_billed"`
	TotalCollected   int64           `json:"total_collected"`
	TotalOutstanding int64           `json:"total_outstanding"`
	CollectionRate   decimal.Decimal `json:"collection_rate"` // percent
	InvoiceCount     int64           `json:"invoice_count"`
	PendingCount     int64           `json:"pending_count"`
	PartialCount     int64           `json:"partial_count"`
	SettledCount     int64           `json:"settled_count"`
	VoidedCount      int64           `json:"voided_count"`
	CreditNoteTotal  int64           `json:"credit_note_total"`
	AvgDaysToCollect decimal.Decimal `json:"avg_days_to_collect"`
}

// StateCount is one slice of the active-invoice state distribution
type StateCount struct {
	State  string `json:"state"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

// MonthlyCollection compares issued vs collected amounts by invoice month
type MonthlyCollection struct {
	Period      string `json:"period"`
	Billed      int64  `json:"billed"`
	Collected   int64  `json:"collected"`
	Outstanding int64  `json:"outstanding"`
}

// AgingItem is one unpaid invoice with its age in days
type AgingItem struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Folio       int64     `json:"folio"`
	PayerName   string    `json:"payer_name"`
	ClientName  *string   `json:"client_name,omitempty"`
	IssueDate   time.Time `json:"issue_date"`
	Total       int64     `json:"total"`
	Outstanding int64     `json:"outstanding"`
	State       string    `json:"state"`
	DaysOld     int       `json:"days_old"`
}

// AgingBuckets classifies unpaid active invoices by age
type AgingBuckets struct {
	Over90        []AgingItem `json:"over_90"`
	Days61To90    []AgingItem `json:"days_61_to_90"`
	Days31To60    []AgingItem `json:"days_31_to_60"`
	Under31       []AgingItem `json:"under_31"`
	CriticalTotal int64       `json:"critical_total"` // outstanding over 90 days
}

// TopClient is one assigned client ranked by active billing
type TopClient struct {
	ClientID         uuid.UUID       `json:"client_id"`
	Name             string          `json:"name"`
	InvoiceCount     int64           `json:"invoice_count"`
	TotalBilled      int64           `json:"total_billed"`
	TotalCollected   int64           `json:"total_collected"`
	TotalOutstanding int64           `json:"total_outstanding"`
	CollectedPct     decimal.Decimal `json:"collected_pct"`
}

// TopCourse is one course label ranked by active billing
type TopCourse struct {
	Course          string `json:"course"`
	InvoiceCount    int64  `json:"invoice_count"`
	TotalBilled     int64  `json:"total_billed"`
	DistinctClients int64  `json:"distinct_clients"`
}

// TopDebtor is one payer ranked by outstanding balance
type TopDebtor struct {
	PayerTaxID       string `json:"payer_tax_id"`
	PayerName        string `json:"payer_name"`
	PendingCount     int64  `json:"pending_count"`
	OutstandingTotal int64  `json:"outstanding_total"`
}

// Repository exposes the read-only aggregations over the document store.
// Every method is a pure read.
type Repository interface {
	HistoricalSummary(ctx context.Context) (*HistoricalSummary, error)
	// PayerTotals aggregates by payer; a zero year covers all years.
	PayerTotals(ctx context.Context, year int) ([]PayerTotals, error)
	KPIs(ctx context.Context) (*KPIs, error)
	StateDistribution(ctx context.Context) ([]StateCount, error)
	MonthlyCollection(ctx context.Context) ([]MonthlyCollection, error)
	TopDebtors(ctx context.Context, limit int) ([]TopDebtor, error)
	Aging(ctx context.Context) (*AgingBuckets, error)
	TopClients(ctx context.Context, limit int) ([]TopClient, error)
	TopCourses(ctx context.Context, limit int) ([]TopCourse, error)
}
