package http

import (
	"callbreak/internal/api/ws"
	"callbreak/internal/room"

	"github.com/gin-gonic/gin"
)

func NewRouter(rooms *room.Manager, hub *ws.Hub) *gin.Engine {
	r := gin.Default()

	// WebSocket entry point for clients
	r.GET("/ws", hub.HandleWS)

	// --- ROOM ENDPOINTS ---
	r.POST("/rooms", CreateRoomHandler(rooms))
	r.GET("/rooms", ListRoomsHandler(rooms))
	r.GET("/rooms/:id", GetRoomHandler(rooms))

	// --- META ---
	r.GET("/healthz", HealthHandler())

	return r
}
