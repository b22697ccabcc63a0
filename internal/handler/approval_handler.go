package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mmcore/internal/apperr"
	"mmcore/internal/middleware"
	"mmcore/internal/model"
	"mmcore/internal/service"
)

type ApprovalHandler struct {
	approvals service.ApprovalService
}

func NewApprovalHandler(approvals service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup, auth, validDB gin.HandlerFunc) {
	router.POST("/approvals/:kind/:id", auth, validDB, h.Process)
}

// Process runs the approval pipeline for one object.
//
//	@Summary	Approve or reject a business object
//	@Tags		approvals
//	@Accept		json
//	@Produce	json
//	@Param		kind	path		string					true	"invoice | expense | leave"
//	@Param		id		path		string					true	"object id"
//	@Param		db		query		string					true	"ERP database"
//	@Param		request	body		model.ApprovalRequest	true	"approval request"
//	@Success	200		{object}	model.ApprovalResponse
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/approvals/{kind}/{id} [post]
func (h *ApprovalHandler) Process(c *gin.Context) {
	kind, ok := model.ParseObjectKind(c.Param("kind"))
	if !ok {
		writeError(c, apperr.Validation(
			"kind must be one of invoice, expense, leave",
			map[string]any{"kind": c.Param("kind")}))
		return
	}

	var req model.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body",
			map[string]any{"reason": err.Error()}))
		return
	}

	// Callers that carry an authenticated identity cannot approve on
	// someone else's behalf; service calls keep the actor from the body.
	if ac, ok := middleware.GetAuthContext(c); ok && !ac.IsService {
		req.Actor = ac.Actor
		if ac.Role != "" {
			req.ActorRole = ac.Role
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = model.SourceAPI
	}

	result, err := h.approvals.Process(c.Request.Context(), erpDB(c), kind, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
