package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mmcore/internal/repository"
	"mmcore/internal/service"
	"mmcore/pkg/pagination"
	"mmcore/pkg/response"
)

type AuditHandler struct {
	audit service.AuditService
}

func NewAuditHandler(audit service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/audit/logs", auth, h.ListLogs)
}

// ListLogs returns recent audit entries, newest first.
//
//	@Summary	List audit log entries
//	@Tags		audit
//	@Produce	json
//	@Param		action_type	query		string	false	"filter by action type, e.g. invoice.approve"
//	@Param		actor		query		string	false	"filter by actor"
//	@Param		object_type	query		string	false	"filter by object type"
//	@Param		object_id	query		string	false	"filter by object id"
//	@Param		page		query		int		false	"page number"
//	@Param		limit		query		int		false	"page size (max 100)"
//	@Success	200			{object}	response.Envelope
//	@Failure	401			{object}	response.ErrorBody
//	@Router		/audit/logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.AuditFilter{
		ActionType: c.Query("action_type"),
		Actor:      c.Query("actor"),
		ObjectType: c.Query("object_type"),
		ObjectID:   c.Query("object_id"),
	}

	logs, total, err := h.audit.RecentLogs(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(logs, total, params.Page, params.Limit))
}
