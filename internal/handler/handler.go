package handler

import (
	"github.com/gin-gonic/gin"

	"mmcore/internal/apperr"
	"mmcore/pkg/response"
)

// writeError maps any service error onto the wire taxonomy.
func writeError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.JSON(appErr.Status, response.Error(appErr.Code, appErr.Message, appErr.Details))
}

// erpDB returns the database name validated by the db middleware.
func erpDB(c *gin.Context) string {
	return c.GetString("erpDB")
}
