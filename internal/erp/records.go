package erp

import (
	"fmt"
	"sync"
)

// Record is a raw ERP row. Relation fields come back as [id, display_name]
// pairs and absent values as boolean false, so typed access goes through
// the helpers below.
type Record map[string]interface{}

// Str returns the field as a string, or "" when absent or false.
func (r Record) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Float returns the field as a float64, accepting the integer encodings
// the XML-RPC layer may produce.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the field as an int64.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// RelName returns the display name of a many2one field.
func (r Record) RelName(field string) string {
	pair, ok := r[field].([]interface{})
	if !ok || len(pair) < 2 {
		return ""
	}
	if name, ok := pair[1].(string); ok {
		return name
	}
	return ""
}

// RelID returns the id of a many2one field, 0 when unset.
func (r Record) RelID(field string) int64 {
	pair, ok := r[field].([]interface{})
	if !ok || len(pair) < 1 {
		return 0
	}
	switch v := pair[0].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

var (
	invoiceFields = []string{"name", "state", "amount_total", "amount_residual", "partner_id", "invoice_date_due", "currency_id", "move_type"}
	expenseFields = []string{"name", "state", "total_amount", "employee_id", "create_date"}
	leaveFields   = []string{"display_name", "state", "number_of_days", "employee_id", "holiday_status_id", "request_date_from", "request_date_to"}
)

// fetchOne reads a single record by id; a missing id yields (nil, nil).
func (c *Client) fetchOne(model string, id int64, fields []string) (Record, error) {
	rows, err := c.Read(model, []int64{id}, fields)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return Record(rows[0]), nil
}

// GetInvoice fetches one account.move, nil when it does not exist.
func (c *Client) GetInvoice(id int64) (Record, error) {
	return c.fetchOne("account.move", id, invoiceFields)
}

// GetExpense fetches one hr.expense.sheet, nil when it does not exist.
func (c *Client) GetExpense(id int64) (Record, error) {
	return c.fetchOne("hr.expense.sheet", id, expenseFields)
}

// GetLeave fetches one hr.leave, nil when it does not exist.
func (c *Client) GetLeave(id int64) (Record, error) {
	return c.fetchOne("hr.leave", id, leaveFields)
}

// refreshState re-reads the state field after a workflow call. Button
// methods return true or nothing useful, so the post-write state has to
// come from a fresh read; a failed re-read degrades to "unknown" rather
// than failing an action that already went through.
func (c *Client) refreshState(model string, id int64) string {
	rec, err := c.fetchOne(model, id, []string{"state"})
	if err != nil || rec == nil {
		return "unknown"
	}
	return rec.Str("state")
}

// ApproveInvoice posts a draft invoice and returns the resulting state.
func (c *Client) ApproveInvoice(id int64) (string, error) {
	if err := c.CallMethod("account.move", "action_post", []int64{id}); err != nil {
		return "", err
	}
	return c.refreshState("account.move", id), nil
}

// RejectInvoice cancels an invoice, attaching the reason to its thread
// when one is given.
func (c *Client) RejectInvoice(id int64, reason string) (string, error) {
	if err := c.CallMethod("account.move", "button_cancel", []int64{id}); err != nil {
		return "", err
	}
	if reason != "" {
		_, err := c.Create("mail.message", map[string]interface{}{
			"model":        "account.move",
			"res_id":       id,
			"body":         fmt.Sprintf("Rejected: %s", reason),
			"message_type": "comment",
		})
		if err != nil {
			// The cancel already went through, the note is best effort.
			c.logger.Warn("failed to attach rejection note")
		}
	}
	return c.refreshState("account.move", id), nil
}

// ApproveExpense submits and approves an expense sheet in one go.
func (c *Client) ApproveExpense(id int64) (string, error) {
	if err := c.CallMethod("hr.expense.sheet", "action_submit_expenses", []int64{id}); err != nil {
		return "", err
	}
	if err := c.CallMethod("hr.expense.sheet", "action_approve_expense_sheets", []int64{id}); err != nil {
		return "", err
	}
	return c.refreshState("hr.expense.sheet", id), nil
}

// ApproveLeave validates a leave request. The resulting state depends on
// the approval policy: validate, or validate1 under double validation.
func (c *Client) ApproveLeave(id int64) (string, error) {
	if err := c.CallMethod("hr.leave", "action_approve", []int64{id}); err != nil {
		return "", err
	}
	return c.refreshState("hr.leave", id), nil
}

// RejectLeave refuses a leave request.
func (c *Client) RejectLeave(id int64) (string, error) {
	if err := c.CallMethod("hr.leave", "action_refuse", []int64{id}); err != nil {
		return "", err
	}
	return c.refreshState("hr.leave", id), nil
}

// Factory builds per-database clients from configuration. It keeps one
// client per database so the authenticated uid survives across requests.
type Factory struct {
	mu      sync.Mutex
	clients map[string]*Client
	build   func(db string) (*Client, error)
}

// NewFactory wraps a constructor with a per-database client cache.
func NewFactory(build func(db string) (*Client, error)) *Factory {
	return &Factory{clients: make(map[string]*Client), build: build}
}

// Get returns the cached client for db, constructing it on first use.
func (f *Factory) Get(db string) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[db]; ok {
		return c, nil
	}
	c, err := f.build(db)
	if err != nil {
		return nil, err
	}
	f.clients[db] = c
	return c, nil
}
