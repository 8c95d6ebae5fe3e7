package result

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/analysis/:upload_id", h.Get)
}

// RegisterPublicRoutes mounts the websocket stream, which authenticates
// with the token query parameter instead of the Authorization header.
func (h *WSHandler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/analysis/:upload_id/ws", h.Stream)
}
