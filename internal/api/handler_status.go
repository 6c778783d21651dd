package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatus returns the current occupancy view.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.views.View())
}
