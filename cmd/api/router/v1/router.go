package v1

import (
	httpHandler "daoob/internal/pkg/messaging/presentation/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, deps httpHandler.Dependencies) {
	v1 := r.Group("/api/v1")
	// Pass the stores, realtime registry and queue client down to the HTTP layer
	httpHandler.RegisterRoutes(v1, deps)
}
