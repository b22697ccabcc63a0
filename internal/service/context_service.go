package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/erp"
	"mmcore/internal/model"
	"mmcore/internal/repository"
	"mmcore/pkg/timeutil"
)

type ContextService interface {
	ObjectContext(ctx context.Context, db string, kind model.ObjectKind, objectID string) (model.ObjectContext, error)
	PendingApprovals(ctx context.Context, db string) (model.PendingItemsResponse, error)
	OverdueItems(ctx context.Context, db string, thresholdDays int) (model.PendingItemsResponse, error)
}

type contextService struct {
	gateway ErpGatewayFactory
	erpData repository.ErpDataRepository
	metrics MetricsService
	logger  *zap.Logger
}

func NewContextService(gateway ErpGatewayFactory, erpData repository.ErpDataRepository, metrics MetricsService, logger *zap.Logger) ContextService {
	return &contextService{gateway: gateway, erpData: erpData, metrics: metrics, logger: logger}
}

// ObjectContext fetches a live snapshot and derives what a chat user can
// do with the object in its current state.
func (s *contextService) ObjectContext(ctx context.Context, db string, kind model.ObjectKind, objectID string) (model.ObjectContext, error) {
	id, err := strconv.ParseInt(objectID, 10, 64)
	if err != nil || id <= 0 {
		return model.ObjectContext{}, apperr.Validation(
			"object id must be a positive integer",
			map[string]any{"object_id": objectID})
	}

	gateway, err := s.gateway(db)
	if err != nil {
		return model.ObjectContext{}, err
	}

	var rec erp.Record
	switch kind {
	case model.KindInvoice:
		rec, err = gateway.GetInvoice(id)
	case model.KindExpense:
		rec, err = gateway.GetExpense(id)
	case model.KindLeave:
		rec, err = gateway.GetLeave(id)
	default:
		return model.ObjectContext{}, apperr.Validation(
			fmt.Sprintf("unknown object kind %q", kind), nil)
	}
	if err != nil {
		return model.ObjectContext{}, err
	}
	if rec == nil {
		return model.ObjectContext{}, apperr.NotFound(
			fmt.Sprintf("%s %s not found in %s", kind, objectID, db),
			map[string]any{"object_id": objectID})
	}

	switch kind {
	case model.KindInvoice:
		return invoiceContext(objectID, rec), nil
	case model.KindExpense:
		return expenseContext(objectID, rec), nil
	default:
		return leaveContext(objectID, rec), nil
	}
}

func invoiceContext(objectID string, rec erp.Record) model.ObjectContext {
	state := rec.Str("state")
	oc := model.ObjectContext{
		ObjectType:       model.KindInvoice,
		ObjectID:         objectID,
		DisplayName:      rec.Str("name"),
		State:            state,
		Amount:           rec.Float("amount_total"),
		Partner:          rec.RelName("partner_id"),
		AvailableActions: []string{},
		RequiresRole:     "finance",
		AdditionalInfo: map[string]any{
			"amount_residual": rec.Float("amount_residual"),
			"move_type":       rec.Str("move_type"),
		},
	}
	if state == "draft" {
		oc.AvailableActions = []string{"approve", "reject"}
	}
	if due, ok := parseErpDate(rec.Str("invoice_date_due")); ok {
		oc.DueDate = &due
		if rec.Float("amount_residual") > 0 {
			oc.DaysOverdue = timeutil.DaysSince(due)
		}
	}
	return oc
}

func expenseContext(objectID string, rec erp.Record) model.ObjectContext {
	state := rec.Str("state")
	oc := model.ObjectContext{
		ObjectType:       model.KindExpense,
		ObjectID:         objectID,
		DisplayName:      rec.Str("name"),
		State:            state,
		Amount:           rec.Float("total_amount"),
		Partner:          rec.RelName("employee_id"),
		AvailableActions: []string{},
		RequiresRole:     "finance",
		AdditionalInfo:   map[string]any{},
	}
	if state == "draft" || state == "submit" {
		oc.AvailableActions = []string{"approve", "reject"}
	}
	return oc
}

func leaveContext(objectID string, rec erp.Record) model.ObjectContext {
	state := rec.Str("state")
	oc := model.ObjectContext{
		ObjectType:       model.KindLeave,
		ObjectID:         objectID,
		DisplayName:      rec.Str("display_name"),
		State:            state,
		Partner:          rec.RelName("employee_id"),
		AvailableActions: []string{},
		RequiresRole:     "hr",
		AdditionalInfo: map[string]any{
			"number_of_days": rec.Float("number_of_days"),
			"leave_type":     rec.RelName("holiday_status_id"),
			"date_from":      rec.Str("request_date_from"),
			"date_to":        rec.Str("request_date_to"),
		},
	}
	if state == "confirm" || state == "draft" {
		oc.AvailableActions = []string{"approve", "reject"}
	}
	return oc
}

// Priority ladder for pending work: age first, then amount.
func pendingPriority(daysPending int, amount float64) model.Priority {
	switch {
	case daysPending > 14 || amount > 500_000_000:
		return model.PriorityCritical
	case daysPending > 7 || amount > 100_000_000:
		return model.PriorityHigh
	case daysPending > 3 || amount > 50_000_000:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// PendingApprovals lists draft invoices waiting on an approver. Replica
// failures degrade to an empty list so chat cards render instead of erroring.
func (s *contextService) PendingApprovals(ctx context.Context, db string) (model.PendingItemsResponse, error) {
	rows, err := s.erpData.PendingInvoices(ctx, db, 50)
	if err != nil {
		s.logger.Warn("pending invoices query failed, returning empty list",
			zap.String("erp_db", db), zap.Error(err))
		return model.PendingItemsResponse{DB: db, Items: []model.PendingItem{}}, nil
	}

	resp := model.PendingItemsResponse{DB: db, Items: make([]model.PendingItem, 0, len(rows))}
	for _, row := range rows {
		days := timeutil.DaysSince(row.CreateDate)
		resp.Items = append(resp.Items, model.PendingItem{
			ObjectType:   model.KindInvoice,
			ObjectID:     strconv.FormatInt(row.ID, 10),
			DisplayName:  fmt.Sprintf("%s (%s)", row.Name, row.PartnerName),
			Amount:       row.AmountTotal,
			WaitingSince: row.CreateDate,
			DaysPending:  days,
			Priority:     pendingPriority(days, row.AmountTotal),
		})
	}
	resp.Count = len(resp.Items)
	return resp, nil
}

// OverdueItems lists posted invoices past due as pending collection work.
func (s *contextService) OverdueItems(ctx context.Context, db string, thresholdDays int) (model.PendingItemsResponse, error) {
	overdue, err := s.metrics.OverdueInvoices(ctx, db, thresholdDays)
	if err != nil {
		return model.PendingItemsResponse{}, err
	}

	resp := model.PendingItemsResponse{DB: db, Items: make([]model.PendingItem, 0, len(overdue.Invoices))}
	for _, inv := range overdue.Invoices {
		resp.Items = append(resp.Items, model.PendingItem{
			ObjectType:   model.KindInvoice,
			ObjectID:     strconv.FormatInt(inv.ID, 10),
			DisplayName:  fmt.Sprintf("%s (%s)", inv.Name, inv.PartnerName),
			Amount:       inv.AmountResidual,
			WaitingSince: inv.DateDue,
			DaysPending:  inv.DaysOverdue,
			Priority:     pendingPriority(inv.DaysOverdue, inv.AmountResidual),
		})
	}
	resp.Count = len(resp.Items)
	return resp, nil
}

// parseErpDate accepts the two date encodings the ERP emits.
func parseErpDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
