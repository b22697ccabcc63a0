package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/model"
	"mmcore/internal/repository"
	"mmcore/pkg/timeutil"
)

type DigestService interface {
	Daily(ctx context.Context, domain string, db string) (model.DigestResponse, error)
}

type digestService struct {
	wh      Warehouse
	erpData repository.ErpDataRepository
	metrics MetricsService
	logger  *zap.Logger
}

func NewDigestService(wh Warehouse, erpData repository.ErpDataRepository, metrics MetricsService, logger *zap.Logger) DigestService {
	return &digestService{wh: wh, erpData: erpData, metrics: metrics, logger: logger}
}

// Daily builds the digest for one domain. A failed build still returns
// HTTP 200 with an error metric and a critical alert: scheduled digests
// must always post something to the channel.
func (s *digestService) Daily(ctx context.Context, domain, db string) (model.DigestResponse, error) {
	resp := model.DigestResponse{
		DB:          db,
		Period:      timeutil.FormatDate(timeutil.LocalNow()),
		GeneratedAt: timeutil.UTCNow(),
		Metrics:     map[string]any{},
		Alerts:      []model.DigestAlert{},
	}

	var err error
	switch domain {
	case "sales":
		resp.DigestType = model.DigestSalesDaily
		err = s.buildSales(ctx, db, &resp)
	case "finance":
		resp.DigestType = model.DigestFinanceDaily
		err = s.buildFinance(ctx, db, &resp)
	case "ops":
		resp.DigestType = model.DigestOpsDaily
		err = s.buildOps(ctx, db, &resp)
	default:
		return model.DigestResponse{}, apperr.Validation(
			fmt.Sprintf("unknown digest domain %q", domain),
			map[string]any{"domain": domain})
	}

	if err != nil {
		s.logger.Error("digest build failed",
			zap.String("domain", domain), zap.String("erp_db", db), zap.Error(err))
		resp.Metrics = map[string]any{"error": err.Error()}
		resp.Alerts = []model.DigestAlert{{
			Type:    model.AlertCritical,
			Message: fmt.Sprintf("Failed to generate %s digest", domain),
		}}
	}
	return resp, nil
}

func (s *digestService) buildSales(ctx context.Context, db string, resp *model.DigestResponse) error {
	now := timeutil.LocalNow()
	today, err := s.wh.SalesToday(ctx, db, now)
	if err != nil {
		return err
	}
	yesterday, err := s.wh.SalesYesterday(ctx, db, now)
	if err != nil {
		return err
	}
	mtd, err := s.wh.SalesMTD(ctx, db, now)
	if err != nil {
		return err
	}

	resp.Metrics = map[string]any{
		"revenue_today":     today.TotalRevenue,
		"orders_today":      today.OrderCount,
		"revenue_yesterday": yesterday.TotalRevenue,
		"revenue_mtd":       mtd.TotalRevenue,
		"orders_mtd":        mtd.OrderCount,
	}

	if products, err := s.wh.TopProducts(ctx, db, now, 5); err == nil {
		top := make([]map[string]any, 0, len(products))
		for _, p := range products {
			top = append(top, map[string]any{
				"name":     p.ProductName,
				"quantity": p.Quantity,
				"revenue":  p.Revenue,
			})
		}
		resp.Metrics["top_products"] = top
	} else {
		s.logger.Warn("top products unavailable", zap.String("erp_db", db), zap.Error(err))
	}

	if today.OrderCount == 0 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertWarning,
			Message: "No confirmed orders so far today",
		})
	}
	if yesterday.TotalRevenue > 0 && today.TotalRevenue < yesterday.TotalRevenue*0.5 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertWarning,
			Message: "Revenue is more than 50% below yesterday",
		})
	}
	return nil
}

func (s *digestService) buildFinance(ctx context.Context, db string, resp *model.DigestResponse) error {
	overdue, err := s.metrics.OverdueInvoices(ctx, db, 0)
	if err != nil {
		return err
	}
	pending, err := s.erpData.PendingInvoices(ctx, db, 100)
	if err != nil {
		return err
	}

	severeCount := 0
	for _, inv := range overdue.Invoices {
		if inv.DaysOverdue > 30 {
			severeCount++
		}
	}

	resp.Metrics = map[string]any{
		"overdue_count":          overdue.Count,
		"overdue_total":          overdue.TotalOverdueAmount,
		"overdue_severe_count":   severeCount,
		"pending_invoices_count": len(pending),
	}

	if overdue.Count > 0 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertWarning,
			Message: fmt.Sprintf("%d invoices overdue", overdue.Count),
		})
	}
	if severeCount > 0 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertCritical,
			Message: fmt.Sprintf("%d invoices more than 30 days overdue", severeCount),
		})
	}
	return nil
}

func (s *digestService) buildOps(ctx context.Context, db string, resp *model.DigestResponse) error {
	orders, err := s.erpData.PendingOrdersCount(ctx, db)
	if err != nil {
		return err
	}
	deliveries, err := s.erpData.PendingDeliveriesCount(ctx, db)
	if err != nil {
		return err
	}

	resp.Metrics = map[string]any{
		"pending_orders":     orders,
		"pending_deliveries": deliveries,
	}

	if orders > 10 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertWarning,
			Message: fmt.Sprintf("%d orders waiting for confirmation", orders),
		})
	}
	if deliveries > 10 {
		resp.Alerts = append(resp.Alerts, model.DigestAlert{
			Type:    model.AlertWarning,
			Message: fmt.Sprintf("%d deliveries waiting to ship", deliveries),
		})
	}
	return nil
}
