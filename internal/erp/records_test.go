package erp

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	authResponse      = `<?xml version="1.0"?><methodResponse><params><param><value><int>2</int></value></param></params></methodResponse>`
	booleanResponse   = `<?xml version="1.0"?><methodResponse><params><param><value><boolean>1</boolean></value></param></params></methodResponse>`
	emptyReadResponse = `<?xml version="1.0"?><methodResponse><params><param><value><array><data></data></array></value></param></params></methodResponse>`
	readResponseFmt   = `<?xml version="1.0"?><methodResponse><params><param><value><array><data><value><struct><member><name>id</name><value><int>5</int></value></member><member><name>state</name><value><string>%s</string></value></member></struct></value></data></array></value></param></params></methodResponse>`
)

// fakeOdoo answers the common and object endpoints with canned XML-RPC
// responses, recording which workflow methods were invoked.
type fakeOdoo struct {
	srv *httptest.Server

	mu        sync.Mutex
	readState string
	emptyRead bool
	readCalls int
	methods   []string
}

func newFakeOdoo(t *testing.T, readState string) *fakeOdoo {
	t.Helper()
	f := &fakeOdoo{readState: readState}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		w.Header().Set("Content-Type", "text/xml")

		if strings.HasSuffix(r.URL.Path, "/common") {
			fmt.Fprint(w, authResponse)
			return
		}
		if strings.Contains(body, ">read<") {
			f.mu.Lock()
			f.readCalls++
			empty, state := f.emptyRead, f.readState
			f.mu.Unlock()
			if empty {
				fmt.Fprint(w, emptyReadResponse)
				return
			}
			fmt.Fprintf(w, readResponseFmt, state)
			return
		}
		for _, m := range []string{
			"action_post", "button_cancel",
			"action_submit_expenses", "action_approve_expense_sheets",
			"action_approve", "action_refuse", "create",
		} {
			if strings.Contains(body, ">"+m+"<") {
				f.mu.Lock()
				f.methods = append(f.methods, m)
				f.mu.Unlock()
				break
			}
		}
		fmt.Fprint(w, booleanResponse)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOdoo) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(f.srv.URL, "tln_db", "bot", "secret", 16, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRejectInvoiceReportsStateFromReread(t *testing.T) {
	// The ERP acknowledges button_cancel but keeps the record posted; the
	// reported state must come from the re-read, not the button call.
	f := newFakeOdoo(t, "posted")
	c := f.client(t)

	state, err := c.RejectInvoice(5, "")
	require.NoError(t, err)
	assert.Equal(t, "posted", state)
	assert.Equal(t, 1, f.readCalls)
	assert.Contains(t, f.methods, "button_cancel")
}

func TestApproveLeaveReportsDoubleValidationState(t *testing.T) {
	f := newFakeOdoo(t, "validate1")
	c := f.client(t)

	state, err := c.ApproveLeave(9)
	require.NoError(t, err)
	assert.Equal(t, "validate1", state)
	assert.Equal(t, 1, f.readCalls)
}

func TestApproveExpenseSubmitsThenApproves(t *testing.T) {
	f := newFakeOdoo(t, "approve")
	c := f.client(t)

	state, err := c.ApproveExpense(7)
	require.NoError(t, err)
	assert.Equal(t, "approve", state)
	assert.Equal(t, []string{"action_submit_expenses", "action_approve_expense_sheets"}, f.methods)
	assert.Equal(t, 1, f.readCalls)
}

func TestRejectLeaveFallsBackToUnknownState(t *testing.T) {
	f := newFakeOdoo(t, "")
	f.emptyRead = true
	c := f.client(t)

	state, err := c.RejectLeave(9)
	require.NoError(t, err)
	assert.Equal(t, "unknown", state)
}
