package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mmcore/internal/service"
)

type DigestHandler struct {
	digests service.DigestService
}

func NewDigestHandler(digests service.DigestService) *DigestHandler {
	return &DigestHandler{digests: digests}
}

func (h *DigestHandler) RegisterRoutes(router *gin.RouterGroup, auth, validDB gin.HandlerFunc) {
	router.GET("/digest/:domain/daily", auth, validDB, h.Daily)
}

// Daily builds the daily digest for one domain.
//
//	@Summary	Daily digest
//	@Tags		digest
//	@Produce	json
//	@Param		domain	path		string	true	"sales | finance | ops"
//	@Param		db		query		string	true	"ERP database"
//	@Success	200		{object}	model.DigestResponse
//	@Failure	422		{object}	response.ErrorBody
//	@Router		/digest/{domain}/daily [get]
func (h *DigestHandler) Daily(c *gin.Context) {
	resp, err := h.digests.Daily(c.Request.Context(), c.Param("domain"), erpDB(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
