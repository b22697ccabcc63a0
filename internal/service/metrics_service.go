package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/model"
	"mmcore/internal/repository"
	"mmcore/internal/warehouse"
	"mmcore/pkg/timeutil"
)

// Warehouse is the analytics surface the metrics service reads.
type Warehouse interface {
	SalesToday(ctx context.Context, db string, now time.Time) (warehouse.SalesRow, error)
	SalesYesterday(ctx context.Context, db string, now time.Time) (warehouse.SalesRow, error)
	SalesMTD(ctx context.Context, db string, now time.Time) (warehouse.SalesRow, error)
	TopProducts(ctx context.Context, db string, now time.Time, limit int) ([]warehouse.ProductRow, error)
	CustomerRisk(ctx context.Context, db string, customerID int64) (warehouse.RiskRow, error)
}

type MetricsService interface {
	SalesToday(ctx context.Context, db string) (model.SalesSummary, error)
	SalesMTD(ctx context.Context, db string) (model.SalesSummary, error)
	OverdueInvoices(ctx context.Context, db string, thresholdDays int) (model.OverdueInvoicesResponse, error)
	CustomerRisk(ctx context.Context, db string, customerID int64) (model.CustomerRisk, error)
}

type metricsService struct {
	wh      Warehouse
	erpData repository.ErpDataRepository
	logger  *zap.Logger
}

func NewMetricsService(wh Warehouse, erpData repository.ErpDataRepository, logger *zap.Logger) MetricsService {
	return &metricsService{wh: wh, erpData: erpData, logger: logger}
}

// SalesToday reports today's confirmed orders with a comparison against
// yesterday. Warehouse failures degrade to a zero-valued summary so chat
// notifications render instead of erroring.
func (s *metricsService) SalesToday(ctx context.Context, db string) (model.SalesSummary, error) {
	now := timeutil.LocalNow()
	summary := model.SalesSummary{DB: db, Period: "today", Currency: "IDR"}

	row, err := s.wh.SalesToday(ctx, db, now)
	if err != nil {
		s.logger.Warn("sales today query failed, returning zeros",
			zap.String("erp_db", db), zap.Error(err))
		return summary, nil
	}
	summary.TotalRevenue = row.TotalRevenue
	summary.OrderCount = row.OrderCount
	if row.OrderCount > 0 {
		summary.AvgOrderValue = row.TotalRevenue / float64(row.OrderCount)
	}

	if prev, err := s.wh.SalesYesterday(ctx, db, now); err == nil {
		summary.ComparisonPrevious = compareRevenue(row.TotalRevenue, prev.TotalRevenue)
	} else {
		s.logger.Warn("yesterday comparison unavailable", zap.String("erp_db", db), zap.Error(err))
	}
	return summary, nil
}

// SalesMTD reports month-to-date confirmed orders.
func (s *metricsService) SalesMTD(ctx context.Context, db string) (model.SalesSummary, error) {
	now := timeutil.LocalNow()
	summary := model.SalesSummary{DB: db, Period: "mtd", Currency: "IDR"}

	row, err := s.wh.SalesMTD(ctx, db, now)
	if err != nil {
		s.logger.Warn("sales mtd query failed, returning zeros",
			zap.String("erp_db", db), zap.Error(err))
		return summary, nil
	}
	summary.TotalRevenue = row.TotalRevenue
	summary.OrderCount = row.OrderCount
	if row.OrderCount > 0 {
		summary.AvgOrderValue = row.TotalRevenue / float64(row.OrderCount)
	}
	return summary, nil
}

// OverdueInvoices lists posted invoices with outstanding balances at least
// thresholdDays past due. threshold 0 includes invoices due today. Replica
// failures degrade to an empty list so chat cards render instead of erroring.
func (s *metricsService) OverdueInvoices(ctx context.Context, db string, thresholdDays int) (model.OverdueInvoicesResponse, error) {
	if thresholdDays < 0 {
		return model.OverdueInvoicesResponse{}, apperr.Validation(
			"threshold_days must not be negative",
			map[string]any{"threshold_days": thresholdDays})
	}

	rows, err := s.erpData.OverdueInvoices(ctx, db, thresholdDays)
	if err != nil {
		s.logger.Warn("overdue invoices query failed, returning empty list",
			zap.String("erp_db", db), zap.Error(err))
		return model.OverdueInvoicesResponse{DB: db, Invoices: []model.OverdueInvoice{}}, nil
	}

	resp := model.OverdueInvoicesResponse{
		DB:       db,
		Count:    len(rows),
		Invoices: make([]model.OverdueInvoice, 0, len(rows)),
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(decimal.NewFromFloat(row.AmountResidual))
		resp.Invoices = append(resp.Invoices, model.OverdueInvoice{
			ID:             row.ID,
			Name:           row.Name,
			PartnerName:    row.PartnerName,
			AmountTotal:    row.AmountTotal,
			AmountResidual: row.AmountResidual,
			DateDue:        row.InvoiceDateDue,
			DaysOverdue:    timeutil.DaysSince(row.InvoiceDateDue),
			Currency:       "IDR",
		})
	}
	resp.TotalOverdueAmount = total.InexactFloat64()
	return resp, nil
}

// Risk score ladder: high when overdue exposure tops 100M IDR or more than
// five invoices are late, medium above 50M or more than two.
const (
	riskOverdueHigh   = 100_000_000
	riskOverdueMedium = 50_000_000
	riskCountHigh     = 5
	riskCountMedium   = 2
)

func (s *metricsService) CustomerRisk(ctx context.Context, db string, customerID int64) (model.CustomerRisk, error) {
	row, err := s.wh.CustomerRisk(ctx, db, customerID)
	if err != nil {
		return model.CustomerRisk{}, err
	}
	if row.CustomerName == "" && row.TotalReceivable == 0 && row.OverdueCount == 0 {
		return model.CustomerRisk{}, apperr.NotFound(
			fmt.Sprintf("customer %d has no posted invoices in %s", customerID, db),
			map[string]any{"customer_id": customerID})
	}

	risk := model.CustomerRisk{
		DB:              db,
		CustomerID:      customerID,
		CustomerName:    row.CustomerName,
		TotalReceivable: row.TotalReceivable,
		TotalOverdue:    row.TotalOverdue,
		OverdueCount:    row.OverdueCount,
		AvgDaysToPay:    row.AvgDaysToPay,
		RiskScore:       scoreRisk(row.TotalOverdue, row.OverdueCount),
	}
	return risk, nil
}

func scoreRisk(totalOverdue float64, overdueCount int64) string {
	switch {
	case totalOverdue > riskOverdueHigh || overdueCount > riskCountHigh:
		return "high"
	case totalOverdue > riskOverdueMedium || overdueCount > riskCountMedium:
		return "medium"
	default:
		return "low"
	}
}

func compareRevenue(current, previous float64) string {
	if previous == 0 {
		if current == 0 {
			return "no sales yesterday or today"
		}
		return "no sales yesterday"
	}
	change := (current - previous) / previous * 100
	if change >= 0 {
		return fmt.Sprintf("+%.1f%% vs yesterday", change)
	}
	return fmt.Sprintf("%.1f%% vs yesterday", change)
}
