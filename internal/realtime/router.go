package realtime

import (
	"github.com/gin-gonic/gin"
)

// SetupRealtimeRoutes mounts the websocket endpoint. The bearer token
// travels as a query parameter because browsers cannot set headers on a
// websocket handshake.
func SetupRealtimeRoutes(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/ws/functions/:id", hub.ServeWS)
}
