package http

import (
	"net/http"

	"callbreak/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary Create a room
// @Description Create a room that players can then join over the WebSocket
// @Tags Room
// @Accept json
// @Produce json
// @Param request body http.CreateRoomRequest true "Room info"
// @Success 200 {object} map[string]interface{}
// @Router /rooms [post]
func CreateRoomHandler(rooms *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		roomID := req.RoomID
		if roomID == "" {
			roomID = uuid.NewString()
		}
		r, existed := rooms.GetOrCreate(roomID)
		if existed {
			c.JSON(http.StatusConflict, gin.H{"error": "room already exists"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomId": r.ID})
	}
}

// @Summary List rooms
// @Description List all live rooms with their rosters and status
// @Tags Room
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rooms [get]
func ListRoomsHandler(rooms *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rooms.List()})
	}
}

// @Summary Get a room
// @Description Fetch one room's roster and status
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Router /rooms/{id} [get]
func GetRoomHandler(rooms *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := rooms.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r.Info()})
	}
}

// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
