package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
)

// OverdueInvoiceRow mirrors the replica's account_move columns needed for
// the overdue report.
type OverdueInvoiceRow struct {
	ID             int64     `gorm:"column:id"`
	Name           string    `gorm:"column:name"`
	PartnerName    string    `gorm:"column:partner_name"`
	AmountTotal    float64   `gorm:"column:amount_total"`
	AmountResidual float64   `gorm:"column:amount_residual"`
	InvoiceDateDue time.Time `gorm:"column:invoice_date_due"`
}

// PendingInvoiceRow is one draft invoice awaiting approval.
type PendingInvoiceRow struct {
	ID          int64     `gorm:"column:id"`
	Name        string    `gorm:"column:name"`
	PartnerName string    `gorm:"column:partner_name"`
	AmountTotal float64   `gorm:"column:amount_total"`
	CreateDate  time.Time `gorm:"column:create_date"`
}

// ErpDataRepository reads replicated ERP tables per database. Connections
// open lazily on first use and are reused afterwards.
type ErpDataRepository interface {
	OverdueInvoices(ctx context.Context, db string, thresholdDays int) ([]OverdueInvoiceRow, error)
	PendingInvoices(ctx context.Context, db string, limit int) ([]PendingInvoiceRow, error)
	PendingOrdersCount(ctx context.Context, db string) (int64, error)
	PendingDeliveriesCount(ctx context.Context, db string) (int64, error)
}

type erpDataRepository struct {
	connect func(db string) (*gorm.DB, error)
	conns   sync.Map // db name -> *gorm.DB
}

// NewErpDataRepository builds a replica reader over the given connector.
func NewErpDataRepository(connect func(db string) (*gorm.DB, error)) ErpDataRepository {
	return &erpDataRepository{connect: connect}
}

func (r *erpDataRepository) conn(db string) (*gorm.DB, error) {
	if cached, ok := r.conns.Load(db); ok {
		return cached.(*gorm.DB), nil
	}
	conn, err := r.connect(db)
	if err != nil {
		return nil, err
	}
	actual, _ := r.conns.LoadOrStore(db, conn)
	return actual.(*gorm.DB), nil
}

func (r *erpDataRepository) OverdueInvoices(ctx context.Context, db string, thresholdDays int) ([]OverdueInvoiceRow, error) {
	conn, err := r.conn(db)
	if err != nil {
		return nil, err
	}
	var rows []OverdueInvoiceRow
	err = conn.WithContext(ctx).Raw(`
		SELECT am.id, am.name, rp.name AS partner_name,
		       am.amount_total, am.amount_residual, am.invoice_date_due
		FROM account_move am
		JOIN res_partner rp ON rp.id = am.partner_id
		WHERE am.state = 'posted'
		  AND am.move_type IN ('out_invoice', 'out_refund')
		  AND am.amount_residual > 0
		  AND am.invoice_date_due <= CURRENT_DATE - ?::integer
		ORDER BY am.invoice_date_due ASC
		LIMIT 100`, thresholdDays).Scan(&rows).Error
	return rows, err
}

func (r *erpDataRepository) PendingInvoices(ctx context.Context, db string, limit int) ([]PendingInvoiceRow, error) {
	conn, err := r.conn(db)
	if err != nil {
		return nil, err
	}
	var rows []PendingInvoiceRow
	err = conn.WithContext(ctx).Raw(`
		SELECT am.id, am.name, rp.name AS partner_name,
		       am.amount_total, am.create_date
		FROM account_move am
		JOIN res_partner rp ON rp.id = am.partner_id
		WHERE am.state = 'draft'
		  AND am.move_type IN ('out_invoice', 'in_invoice')
		ORDER BY am.create_date ASC
		LIMIT ?`, limit).Scan(&rows).Error
	return rows, err
}

func (r *erpDataRepository) PendingOrdersCount(ctx context.Context, db string) (int64, error) {
	conn, err := r.conn(db)
	if err != nil {
		return 0, err
	}
	var count int64
	err = conn.WithContext(ctx).Raw(`
		SELECT count(*) FROM sale_order
		WHERE state IN ('draft', 'sent')`).Scan(&count).Error
	return count, err
}

func (r *erpDataRepository) PendingDeliveriesCount(ctx context.Context, db string) (int64, error) {
	conn, err := r.conn(db)
	if err != nil {
		return 0, err
	}
	var count int64
	err = conn.WithContext(ctx).Raw(`
		SELECT count(*) FROM stock_picking
		WHERE state IN ('confirmed', 'assigned')
		  AND picking_type_code = 'outgoing'`).Scan(&count).Error
	return count, err
}
