package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/report"
)

const defaultTopLimit = 10

// Dashboard bundles the collection indicators served on one screen
type Dashboard struct {
	KPIs              report.KPIs                `json:"kpis"`
	StateDistribution []report.StateCount        `json:"state_distribution"`
	MonthlyCollection []report.MonthlyCollection `json:"monthly_collection"`
	TopDebtors        []report.TopDebtor         `json:"top_debtors"`
}

// Service serves the read-only reporting aggregations. All numbers are
// derived from the document store on demand, nothing is cached.
type Service struct {
	repo   report.Repository
	logger *zap.Logger
}

// NewService creates a new reporting Service
func NewService(repo report.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Dashboard assembles the collection dashboard in one call
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	kpis, err := s.repo.KPIs(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.repo.StateDistribution(ctx)
	if err != nil {
		return nil, err
	}
	monthly, err := s.repo.MonthlyCollection(ctx)
	if err != nil {
		return nil, err
	}
	debtors, err := s.repo.TopDebtors(ctx, defaultTopLimit)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		KPIs:              *kpis,
		StateDistribution: states,
		MonthlyCollection: monthly,
		TopDebtors:        debtors,
	}, nil
}

// HistoricalSummary covers the full register, frozen history included
func (s *Service) HistoricalSummary(ctx context.Context) (*report.HistoricalSummary, error) {
	return s.repo.HistoricalSummary(ctx)
}

// PayerTotals aggregates billing by paying intermediary. A zero year covers
// every year on record.
func (s *Service) PayerTotals(ctx context.Context, year int) ([]report.PayerTotals, error) {
	return s.repo.PayerTotals(ctx, year)
}

// Aging classifies unpaid active invoices by age
func (s *Service) Aging(ctx context.Context) (*report.AgingBuckets, error) {
	return s.repo.Aging(ctx)
}

// TopClients ranks assigned clients by active billing
func (s *Service) TopClients(ctx context.Context, limit int) ([]report.TopClient, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return s.repo.TopClients(ctx, limit)
}

// TopCourses ranks course labels by active billing
func (s *Service) TopCourses(ctx context.Context, limit int) ([]report.TopCourse, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return s.repo.TopCourses(ctx, limit)
}
