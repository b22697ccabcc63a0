package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mmcore/internal/apperr"
	"mmcore/internal/config"
	"mmcore/internal/middleware"
	"mmcore/internal/model"
	"mmcore/internal/service"
)

type SlashHandler struct {
	slash    service.SlashService
	settings *config.Settings
}

func NewSlashHandler(slash service.SlashService, settings *config.Settings) *SlashHandler {
	return &SlashHandler{slash: slash, settings: settings}
}

// Slash routes are authenticated by the chat platform token, not the
// API key / bearer scheme.
func (h *SlashHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/slash/command", h.Command)
	router.GET("/slash/help", h.Help)
}

// Command executes one slash command invocation.
//
//	@Summary	Execute a slash command
//	@Tags		slash
//	@Accept		x-www-form-urlencoded
//	@Produce	json
//	@Param		command	formData	string	true	"command, e.g. /erp"
//	@Param		text	formData	string	false	"arguments"
//	@Success	200		{object}	model.SlashCommandResponse
//	@Failure	401		{object}	response.ErrorBody
//	@Router		/slash/command [post]
func (h *SlashHandler) Command(c *gin.Context) {
	var req model.SlashCommandRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, apperr.Validation("invalid slash command payload",
			map[string]any{"reason": err.Error()}))
		return
	}

	if err := middleware.VerifySlashToken(h.settings, req.Token); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.slash.Execute(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Help lists the available commands.
//
//	@Summary	Slash command help
//	@Tags		slash
//	@Produce	json
//	@Success	200	{object}	model.SlashCommandResponse
//	@Router		/slash/help [get]
func (h *SlashHandler) Help(c *gin.Context) {
	c.JSON(http.StatusOK, h.slash.Help())
}
