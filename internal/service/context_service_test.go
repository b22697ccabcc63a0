package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/erp"
	"mmcore/internal/model"
	"mmcore/internal/repository"
)

func newContextFixture(gateway *fakeGateway, erpData *fakeErpData) ContextService {
	metrics := NewMetricsService(&fakeWarehouse{}, erpData, zap.NewNop())
	return NewContextService(
		func(db string) (ErpGateway, error) { return gateway, nil },
		erpData, metrics, zap.NewNop())
}

func TestDraftInvoiceContextHasActions(t *testing.T) {
	gateway := &fakeGateway{invoice: erp.Record{
		"name":             "INV/2025/0042",
		"state":            "draft",
		"amount_total":     float64(1000000),
		"amount_residual":  float64(1000000),
		"partner_id":       []interface{}{int64(7), "PT Maju Jaya"},
		"invoice_date_due": "2025-09-30",
		"move_type":        "out_invoice",
	}}
	svc := newContextFixture(gateway, &fakeErpData{})

	oc, err := svc.ObjectContext(context.Background(), "tln_db", model.KindInvoice, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"approve", "reject"}, oc.AvailableActions)
	assert.Equal(t, "finance", oc.RequiresRole)
	assert.Equal(t, "PT Maju Jaya", oc.Partner)
	require.NotNil(t, oc.DueDate)
}

func TestPostedInvoiceContextHasNoActions(t *testing.T) {
	gateway := &fakeGateway{invoice: erp.Record{
		"name":  "INV/2025/0042",
		"state": "posted",
	}}
	svc := newContextFixture(gateway, &fakeErpData{})

	oc, err := svc.ObjectContext(context.Background(), "tln_db", model.KindInvoice, "42")
	require.NoError(t, err)
	assert.Empty(t, oc.AvailableActions)
}

func TestObjectContextNotFound(t *testing.T) {
	svc := newContextFixture(&fakeGateway{}, &fakeErpData{})

	_, err := svc.ObjectContext(context.Background(), "tln_db", model.KindInvoice, "42")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestLeaveContext(t *testing.T) {
	gateway := &fakeGateway{leave: erp.Record{
		"display_name":   "Annual Leave",
		"state":          "confirm",
		"number_of_days": float64(3),
		"employee_id":    []interface{}{int64(3), "Siti"},
	}}
	svc := newContextFixture(gateway, &fakeErpData{})

	oc, err := svc.ObjectContext(context.Background(), "hris_db", model.KindLeave, "9")
	require.NoError(t, err)
	assert.Equal(t, "hr", oc.RequiresRole)
	assert.Equal(t, []string{"approve", "reject"}, oc.AvailableActions)
	assert.Equal(t, float64(3), oc.AdditionalInfo["number_of_days"])
}

func TestPendingPriorityLadder(t *testing.T) {
	cases := []struct {
		days   int
		amount float64
		want   model.Priority
	}{
		{1, 1_000_000, model.PriorityLow},
		{4, 1_000_000, model.PriorityMedium},
		{1, 60_000_000, model.PriorityMedium},
		{8, 1_000_000, model.PriorityHigh},
		{1, 200_000_000, model.PriorityHigh},
		{15, 1_000_000, model.PriorityCritical},
		{1, 600_000_000, model.PriorityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pendingPriority(tc.days, tc.amount),
			"days=%d amount=%.0f", tc.days, tc.amount)
	}
}

func TestPendingApprovalsFromReplica(t *testing.T) {
	erpData := &fakeErpData{pending: []repository.PendingInvoiceRow{
		{ID: 11, Name: "INV/11", PartnerName: "A", AmountTotal: 5_000_000, CreateDate: time.Now().AddDate(0, 0, -4)},
	}}
	svc := newContextFixture(&fakeGateway{}, erpData)

	resp, err := svc.PendingApprovals(context.Background(), "tln_db")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "11", resp.Items[0].ObjectID)
	assert.Equal(t, 4, resp.Items[0].DaysPending)
	assert.Equal(t, model.PriorityMedium, resp.Items[0].Priority)
}

func TestPendingApprovalsDegradeToEmptyOnReplicaFailure(t *testing.T) {
	erpData := &fakeErpData{err: errors.New("replica unreachable")}
	svc := newContextFixture(&fakeGateway{}, erpData)

	resp, err := svc.PendingApprovals(context.Background(), "tln_db")
	require.NoError(t, err, "replica failures must not surface as HTTP errors")
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Items)
	assert.Equal(t, "tln_db", resp.DB)
}

func TestOverdueItemsDegradeToEmptyOnReplicaFailure(t *testing.T) {
	erpData := &fakeErpData{err: errors.New("replica unreachable")}
	svc := newContextFixture(&fakeGateway{}, erpData)

	resp, err := svc.OverdueItems(context.Background(), "tln_db", 0)
	require.NoError(t, err)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Items)
}
