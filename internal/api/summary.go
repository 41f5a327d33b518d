package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/internal/service"
)

// SummaryHandler serves the summarizer endpoint
type SummaryHandler struct {
	service *service.SummaryService
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(service *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// SummaryMini answers a summarization or question prompt
func (h *SummaryHandler) SummaryMini(c *gin.Context) {
	var params api.AIQueryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if params.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	c.JSON(http.StatusOK, h.service.Summarize(params))
}
