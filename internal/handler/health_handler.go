package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mmcore/internal/model"
	"mmcore/internal/repository"
	"mmcore/pkg/timeutil"
)

// WarehousePinger is the readiness slice of the warehouse client.
type WarehousePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version   string
	auditRepo repository.AuditRepository
	warehouse WarehousePinger
}

func NewHealthHandler(version string, auditRepo repository.AuditRepository, warehouse WarehousePinger) *HealthHandler {
	return &HealthHandler{version: version, auditRepo: auditRepo, warehouse: warehouse}
}

// Health endpoints are unauthenticated; they sit in front of the API
// prefix so orchestration probes need no credentials.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

// Health reports process liveness.
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	model.HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: timeutil.UTCNow(),
	})
}

// Ready reports connectivity to the audit store and the warehouse.
//
//	@Summary	Readiness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	model.ReadinessResponse
//	@Router		/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]bool{
		"audit_store": h.auditRepo.Ping(ctx) == nil,
		"warehouse":   h.warehouse.Ping(ctx) == nil,
	}

	status := "ready"
	for _, ok := range checks {
		if !ok {
			status = "degraded"
			break
		}
	}
	c.JSON(http.StatusOK, model.ReadinessResponse{Status: status, Checks: checks})
}
