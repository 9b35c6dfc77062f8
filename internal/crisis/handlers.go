package crisis

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for crisis support content.
type Handler struct {
	resources Resources
}

// NewHandler creates a new crisis handler.
func NewHandler(resources Resources) *Handler {
	return &Handler{resources: resources}
}

// RegisterRoutes sets up crisis routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/crisis/resources", h.GetResources)
}

// GetResources handles GET /crisis/resources
func (h *Handler) GetResources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": h.resources})
}
