package warehouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
)

// SalesRow is one aggregate over confirmed sale orders.
type SalesRow struct {
	TotalRevenue float64
	OrderCount   int64
}

// ProductRow is one top selling product line.
type ProductRow struct {
	ProductName string
	Quantity    float64
	Revenue     float64
}

// RiskRow is the raw receivables aggregate for one customer.
type RiskRow struct {
	CustomerName    string
	TotalReceivable float64
	TotalOverdue    float64
	OverdueCount    int64
	AvgDaysToPay    float64
}

// Client reads replicated ERP analytics tables from the warehouse.
type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

// Options configures the warehouse connection.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// NewClient opens a native protocol connection to the warehouse.
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, apperr.ExternalService("warehouse", err)
	}
	return &Client{conn: conn, logger: logger}, nil
}

// Ping checks warehouse connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return apperr.ExternalService("warehouse", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) salesBetween(ctx context.Context, db string, from, to time.Time) (SalesRow, error) {
	const query = `
		SELECT coalesce(sum(amount_total), 0) AS total_revenue,
		       toInt64(count()) AS order_count
		FROM sale_order
		WHERE odoo_db = {db:String}
		  AND state IN ('sale', 'done')
		  AND date_order >= {from:DateTime}
		  AND date_order < {to:DateTime}`

	var row SalesRow
	rows, err := c.conn.Query(ctx, query,
		clickhouse.Named("db", db),
		clickhouse.Named("from", from.UTC()),
		clickhouse.Named("to", to.UTC()),
	)
	if err != nil {
		return row, apperr.ExternalService("warehouse", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&row.TotalRevenue, &row.OrderCount); err != nil {
			return row, apperr.ExternalService("warehouse", err)
		}
	}
	return row, rows.Err()
}

// SalesToday aggregates confirmed orders from local midnight to now.
func (c *Client) SalesToday(ctx context.Context, db string, now time.Time) (SalesRow, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return c.salesBetween(ctx, db, start, now)
}

// SalesYesterday aggregates the full previous local day.
func (c *Client) SalesYesterday(ctx context.Context, db string, now time.Time) (SalesRow, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	end := start.AddDate(0, 0, 1)
	return c.salesBetween(ctx, db, start, end)
}

// SalesMTD aggregates from the first of the current month to now.
func (c *Client) SalesMTD(ctx context.Context, db string, now time.Time) (SalesRow, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return c.salesBetween(ctx, db, start, now)
}

// TopProducts lists the best selling products for the current day.
func (c *Client) TopProducts(ctx context.Context, db string, now time.Time, limit int) ([]ProductRow, error) {
	const query = `
		SELECT product_name,
		       sum(product_uom_qty) AS quantity,
		       sum(price_subtotal) AS revenue
		FROM sale_order_line
		WHERE odoo_db = {db:String}
		  AND order_state IN ('sale', 'done')
		  AND toDate(order_date) = toDate({day:DateTime})
		GROUP BY product_name
		ORDER BY revenue DESC
		LIMIT {limit:Int32}`

	rows, err := c.conn.Query(ctx, query,
		clickhouse.Named("db", db),
		clickhouse.Named("day", now.UTC()),
		clickhouse.Named("limit", int32(limit)),
	)
	if err != nil {
		return nil, apperr.ExternalService("warehouse", err)
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ProductName, &p.Quantity, &p.Revenue); err != nil {
			return nil, apperr.ExternalService("warehouse", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CustomerRisk aggregates open and overdue receivables for one customer.
// A zero-valued row with an empty name means the customer has no posted
// invoices in the warehouse.
func (c *Client) CustomerRisk(ctx context.Context, db string, customerID int64) (RiskRow, error) {
	const query = `
		SELECT any(partner_name) AS customer_name,
		       coalesce(sum(amount_residual), 0) AS total_receivable,
		       coalesce(sumIf(amount_residual, invoice_date_due < today()), 0) AS total_overdue,
		       toInt64(countIf(invoice_date_due < today() AND amount_residual > 0)) AS overdue_count,
		       coalesce(avgIf(dateDiff('day', invoice_date, payment_date), payment_date IS NOT NULL), 0) AS avg_days_to_pay
		FROM account_move
		WHERE odoo_db = {db:String}
		  AND partner_id = {customer_id:Int64}
		  AND move_type = 'out_invoice'
		  AND state = 'posted'`

	var row RiskRow
	rows, err := c.conn.Query(ctx, query,
		clickhouse.Named("db", db),
		clickhouse.Named("customer_id", customerID),
	)
	if err != nil {
		return row, apperr.ExternalService("warehouse", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&row.CustomerName, &row.TotalReceivable, &row.TotalOverdue, &row.OverdueCount, &row.AvgDaysToPay); err != nil {
			return row, apperr.ExternalService("warehouse", err)
		}
	}
	return row, rows.Err()
}
