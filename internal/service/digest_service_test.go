package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/model"
	"mmcore/internal/repository"
	"mmcore/internal/warehouse"
)

func newDigestFixture(wh Warehouse, erpData repository.ErpDataRepository) DigestService {
	metrics := NewMetricsService(wh, erpData, zap.NewNop())
	return NewDigestService(wh, erpData, metrics, zap.NewNop())
}

func TestSalesDigestMetricsAreJSONPrimitives(t *testing.T) {
	wh := &fakeWarehouse{
		today:     warehouse.SalesRow{TotalRevenue: 5_000_000, OrderCount: 4},
		yesterday: warehouse.SalesRow{TotalRevenue: 4_000_000, OrderCount: 3},
		mtd:       warehouse.SalesRow{TotalRevenue: 90_000_000, OrderCount: 61},
		products:  []warehouse.ProductRow{{ProductName: "Widget", Quantity: 12, Revenue: 1_200_000}},
	}
	svc := newDigestFixture(wh, &fakeErpData{})

	resp, err := svc.Daily(context.Background(), "sales", "tln_db")
	require.NoError(t, err)
	assert.Equal(t, model.DigestSalesDaily, resp.DigestType)
	assert.Equal(t, float64(5_000_000), resp.Metrics["revenue_today"])
	assert.Equal(t, int64(4), resp.Metrics["orders_today"])
	assert.Empty(t, resp.Alerts)

	// Downstream templating treats the metrics map as plain JSON; it must
	// survive a round trip without typed values.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded model.DigestResponse
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(5_000_000), decoded.Metrics["revenue_today"])
	assert.Equal(t, float64(4), decoded.Metrics["orders_today"])
}

func TestSalesDigestAlerts(t *testing.T) {
	wh := &fakeWarehouse{
		today:     warehouse.SalesRow{TotalRevenue: 0, OrderCount: 0},
		yesterday: warehouse.SalesRow{TotalRevenue: 10_000_000, OrderCount: 8},
	}
	svc := newDigestFixture(wh, &fakeErpData{})

	resp, err := svc.Daily(context.Background(), "sales", "tln_db")
	require.NoError(t, err)
	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, model.AlertWarning, resp.Alerts[0].Type)
}

func TestFinanceDigestSevereOverdue(t *testing.T) {
	erpData := &fakeErpData{overdue: []repository.OverdueInvoiceRow{
		{ID: 1, Name: "INV/1", AmountResidual: 100, InvoiceDateDue: time.Now().AddDate(0, 0, -45)},
		{ID: 2, Name: "INV/2", AmountResidual: 100, InvoiceDateDue: time.Now().AddDate(0, 0, -5)},
	}}
	svc := newDigestFixture(&fakeWarehouse{}, erpData)

	resp, err := svc.Daily(context.Background(), "finance", "tln_db")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Metrics["overdue_count"])
	assert.Equal(t, 1, resp.Metrics["overdue_severe_count"])

	var critical int
	for _, alert := range resp.Alerts {
		if alert.Type == model.AlertCritical {
			critical++
		}
	}
	assert.Equal(t, 1, critical)
}

func TestOpsDigestThresholds(t *testing.T) {
	erpData := &fakeErpData{orders: 11, deliveries: 2}
	svc := newDigestFixture(&fakeWarehouse{}, erpData)

	resp, err := svc.Daily(context.Background(), "ops", "tln_db")
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Metrics["pending_orders"])
	require.Len(t, resp.Alerts, 1)
	assert.Contains(t, resp.Alerts[0].Message, "11 orders")
}

func TestDigestFailureStillReturnsPayload(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("warehouse down")}
	svc := newDigestFixture(wh, &fakeErpData{})

	resp, err := svc.Daily(context.Background(), "sales", "tln_db")
	require.NoError(t, err, "digest consumers need a 200 with an error payload")
	assert.Contains(t, resp.Metrics, "error")
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, model.AlertCritical, resp.Alerts[0].Type)
}

func TestDigestUnknownDomain(t *testing.T) {
	svc := newDigestFixture(&fakeWarehouse{}, &fakeErpData{})

	_, err := svc.Daily(context.Background(), "weather", "tln_db")
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
}
