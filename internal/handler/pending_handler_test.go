package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmcore/internal/model"
)

type stubContextService struct {
	pending model.PendingItemsResponse
	err     error
}

func (s *stubContextService) ObjectContext(ctx context.Context, db string, kind model.ObjectKind, objectID string) (model.ObjectContext, error) {
	return model.ObjectContext{}, s.err
}

func (s *stubContextService) PendingApprovals(ctx context.Context, db string) (model.PendingItemsResponse, error) {
	return s.pending, s.err
}

func (s *stubContextService) OverdueItems(ctx context.Context, db string, thresholdDays int) (model.PendingItemsResponse, error) {
	return s.pending, s.err
}

func newPendingRouter(svc *stubContextService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewPendingHandler(svc).RegisterRoutes(router.Group("/api/v1"), noopAuth, passthroughDB)
	return router
}

func TestPendingApprovalsAcceptsActorParam(t *testing.T) {
	svc := &stubContextService{pending: model.PendingItemsResponse{
		DB:    "tln_db",
		Count: 1,
		Items: []model.PendingItem{{ObjectType: model.KindInvoice, ObjectID: "11"}},
	}}
	router := newPendingRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/pending/approvals?db=tln_db&actor=budi@example.com", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body model.PendingItemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestOverdueRejectsBadThreshold(t *testing.T) {
	router := newPendingRouter(&stubContextService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/pending/overdue?db=tln_db&threshold_days=soon", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
