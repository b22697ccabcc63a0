package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmcore/internal/apperr"
	"mmcore/internal/model"
)

type stubApprovalService struct {
	resp model.ApprovalResponse
	err  error

	gotDB   string
	gotKind model.ObjectKind
	gotID   string
	gotReq  model.ApprovalRequest
}

func (s *stubApprovalService) Process(ctx context.Context, dbName string, kind model.ObjectKind, objectID string, req model.ApprovalRequest) (model.ApprovalResponse, error) {
	s.gotDB, s.gotKind, s.gotID, s.gotReq = dbName, kind, objectID, req
	return s.resp, s.err
}

func passthroughDB(c *gin.Context) {
	c.Set("erpDB", c.Query("db"))
	c.Next()
}

func noopAuth(c *gin.Context) { c.Next() }

func newApprovalRouter(svc *stubApprovalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewApprovalHandler(svc).RegisterRoutes(router.Group("/api/v1"), noopAuth, passthroughDB)
	return router
}

func postApproval(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestProcessSuccess(t *testing.T) {
	svc := &stubApprovalService{resp: model.ApprovalResponse{
		Success:  true,
		NewState: "posted",
		Result:   model.ResultSuccess,
	}}
	router := newApprovalRouter(svc)

	w := postApproval(router, "/api/v1/approvals/invoice/42?db=tln_db",
		map[string]any{"action": "approve", "actor": "budi@example.com"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tln_db", svc.gotDB)
	assert.Equal(t, model.KindInvoice, svc.gotKind)
	assert.Equal(t, "42", svc.gotID)
	assert.NotEmpty(t, svc.gotReq.RequestID, "a request id is minted when the caller sends none")
	assert.Equal(t, model.SourceAPI, svc.gotReq.Source)
}

func TestProcessAlreadyApprovedMapsTo409(t *testing.T) {
	svc := &stubApprovalService{err: apperr.AlreadyApproved("invoice is already posted", nil)}
	router := newApprovalRouter(svc)

	w := postApproval(router, "/api/v1/approvals/invoice/42?db=tln_db",
		map[string]any{"action": "approve", "actor": "budi@example.com"})

	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeAlreadyApproved, body["error"])
	assert.Equal(t, "invoice is already posted", body["message"])
}

func TestProcessUnknownKind(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{})

	w := postApproval(router, "/api/v1/approvals/shipment/42?db=tln_db",
		map[string]any{"action": "approve", "actor": "budi@example.com"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProcessRejectsBadBody(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{})

	// action outside the enum
	w := postApproval(router, "/api/v1/approvals/invoice/42?db=tln_db",
		map[string]any{"action": "escalate", "actor": "budi@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// missing actor
	w = postApproval(router, "/api/v1/approvals/invoice/42?db=tln_db",
		map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
