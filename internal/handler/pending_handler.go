package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mmcore/internal/apperr"
	"mmcore/internal/service"
)

type PendingHandler struct {
	contexts service.ContextService
}

func NewPendingHandler(contexts service.ContextService) *PendingHandler {
	return &PendingHandler{contexts: contexts}
}

func (h *PendingHandler) RegisterRoutes(router *gin.RouterGroup, auth, validDB gin.HandlerFunc) {
	pending := router.Group("/pending", auth, validDB)
	{
		pending.GET("/approvals", h.PendingApprovals)
		pending.GET("/overdue", h.Overdue)
	}
}

// PendingApprovals lists objects waiting for an approver.
//
//	@Summary	Items pending approval
//	@Tags		pending
//	@Produce	json
//	@Param		db		query		string	true	"ERP database"
//	@Param		actor	query		string	false	"approver filter, accepted but not applied"
//	@Success	200		{object}	model.PendingItemsResponse
//	@Router		/pending/approvals [get]
func (h *PendingHandler) PendingApprovals(c *gin.Context) {
	// actor is accepted for compatibility with chat clients but not used
	// as a filter: draft invoices carry no approver assignment in the ERP.
	_ = c.Query("actor")

	resp, err := h.contexts.PendingApprovals(c.Request.Context(), erpDB(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Overdue lists invoices past due as pending collection work.
//
//	@Summary	Overdue items
//	@Tags		pending
//	@Produce	json
//	@Param		db				query		string	true	"ERP database"
//	@Param		threshold_days	query		int		false	"minimum days overdue (default 0)"
//	@Success	200				{object}	model.PendingItemsResponse
//	@Failure	422				{object}	response.ErrorBody
//	@Router		/pending/overdue [get]
func (h *PendingHandler) Overdue(c *gin.Context) {
	raw := c.DefaultQuery("threshold_days", "0")
	threshold, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, apperr.Validation("threshold_days must be an integer",
			map[string]any{"threshold_days": raw}))
		return
	}

	resp, err := h.contexts.OverdueItems(c.Request.Context(), erpDB(c), threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
