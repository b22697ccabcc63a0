package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mmcore/internal/apperr"
	"mmcore/internal/model"
	"mmcore/internal/service"
)

type ContextHandler struct {
	contexts service.ContextService
}

func NewContextHandler(contexts service.ContextService) *ContextHandler {
	return &ContextHandler{contexts: contexts}
}

func (h *ContextHandler) RegisterRoutes(router *gin.RouterGroup, auth, validDB gin.HandlerFunc) {
	router.GET("/context/:kind/:id", auth, validDB, h.ObjectContext)
}

// ObjectContext returns the live state and available actions for one object.
//
//	@Summary	Object context for chat notifications
//	@Tags		context
//	@Produce	json
//	@Param		kind	path		string	true	"invoice | expense | leave"
//	@Param		id		path		string	true	"object id"
//	@Param		db		query		string	true	"ERP database"
//	@Success	200		{object}	model.ObjectContext
//	@Failure	404		{object}	response.ErrorBody
//	@Router		/context/{kind}/{id} [get]
func (h *ContextHandler) ObjectContext(c *gin.Context) {
	kind, ok := model.ParseObjectKind(c.Param("kind"))
	if !ok {
		writeError(c, apperr.Validation(
			"kind must be one of invoice, expense, leave",
			map[string]any{"kind": c.Param("kind")}))
		return
	}

	oc, err := h.contexts.ObjectContext(c.Request.Context(), erpDB(c), kind, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, oc)
}
