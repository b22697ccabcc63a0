package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mmcore/internal/apperr"
	"mmcore/internal/service"
)

type MetricsHandler struct {
	metrics service.MetricsService
}

func NewMetricsHandler(metrics service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) RegisterRoutes(router *gin.RouterGroup, auth, validDB gin.HandlerFunc) {
	metrics := router.Group("/metrics", auth, validDB)
	{
		metrics.GET("/sales/today", h.SalesToday)
		metrics.GET("/sales/mtd", h.SalesMTD)
		metrics.GET("/invoices/overdue", h.OverdueInvoices)
		metrics.GET("/customers/:id/risk", h.CustomerRisk)
	}
}

// SalesToday returns today's confirmed order aggregates.
//
//	@Summary	Sales today
//	@Tags		metrics
//	@Produce	json
//	@Param		db	query		string	true	"ERP database"
//	@Success	200	{object}	model.SalesSummary
//	@Router		/metrics/sales/today [get]
func (h *MetricsHandler) SalesToday(c *gin.Context) {
	summary, err := h.metrics.SalesToday(c.Request.Context(), erpDB(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SalesMTD returns month-to-date confirmed order aggregates.
//
//	@Summary	Sales month to date
//	@Tags		metrics
//	@Produce	json
//	@Param		db	query		string	true	"ERP database"
//	@Success	200	{object}	model.SalesSummary
//	@Router		/metrics/sales/mtd [get]
func (h *MetricsHandler) SalesMTD(c *gin.Context) {
	summary, err := h.metrics.SalesMTD(c.Request.Context(), erpDB(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// OverdueInvoices returns posted invoices past due by at least threshold_days.
//
//	@Summary	Overdue invoices
//	@Tags		metrics
//	@Produce	json
//	@Param		db				query		string	true	"ERP database"
//	@Param		threshold_days	query		int		false	"minimum days overdue (default 0)"
//	@Success	200				{object}	model.OverdueInvoicesResponse
//	@Failure	422				{object}	response.ErrorBody
//	@Router		/metrics/invoices/overdue [get]
func (h *MetricsHandler) OverdueInvoices(c *gin.Context) {
	raw := c.DefaultQuery("threshold_days", "0")
	threshold, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, apperr.Validation("threshold_days must be an integer",
			map[string]any{"threshold_days": raw}))
		return
	}

	resp, err := h.metrics.OverdueInvoices(c.Request.Context(), erpDB(c), threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CustomerRisk returns the receivables risk snapshot for one customer.
//
//	@Summary	Customer receivables risk
//	@Tags		metrics
//	@Produce	json
//	@Param		db	query		string	true	"ERP database"
//	@Param		id	path		int		true	"customer id"
//	@Success	200	{object}	model.CustomerRisk
//	@Failure	404	{object}	response.ErrorBody
//	@Router		/metrics/customers/{id}/risk [get]
func (h *MetricsHandler) CustomerRisk(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, apperr.Validation("customer id must be a positive integer",
			map[string]any{"id": c.Param("id")}))
		return
	}

	risk, err := h.metrics.CustomerRisk(c.Request.Context(), erpDB(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, risk)
}
