package model

import "time"

// SalesSummary aggregates confirmed orders for a period.
type SalesSummary struct {
	DB                 string  `json:"db"`
	Period             string  `json:"period"`
	TotalRevenue       float64 `json:"total_revenue"`
	OrderCount         int64   `json:"order_count"`
	AvgOrderValue      float64 `json:"avg_order_value"`
	Currency           string  `json:"currency"`
	ComparisonPrevious string  `json:"comparison_previous,omitempty"`
}

// OverdueInvoice is one posted invoice with an outstanding balance past due.
type OverdueInvoice struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	PartnerName    string    `json:"partner_name"`
	AmountTotal    float64   `json:"amount_total"`
	AmountResidual float64   `json:"amount_residual"`
	DateDue        time.Time `json:"date_due"`
	DaysOverdue    int       `json:"days_overdue"`
	Currency       string    `json:"currency"`
}

// OverdueInvoicesResponse lists overdue invoices with their running total.
type OverdueInvoicesResponse struct {
	DB                 string           `json:"db"`
	Count              int              `json:"count"`
	TotalOverdueAmount float64          `json:"total_overdue_amount"`
	Invoices           []OverdueInvoice `json:"invoices"`
}

// CustomerRisk is a receivables snapshot for one customer.
type CustomerRisk struct {
	DB              string  `json:"db"`
	CustomerID      int64   `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	TotalReceivable float64 `json:"total_receivable"`
	TotalOverdue    float64 `json:"total_overdue"`
	OverdueCount    int64   `json:"overdue_count"`
	AvgDaysToPay    float64 `json:"avg_days_to_pay"`
	RiskScore       string  `json:"risk_score"`
}
