package http

// CreateRoomRequest represents the payload for POST /rooms. RoomID is
// optional; a random id is generated when it is empty.
type CreateRoomRequest struct {
	RoomID string `json:"roomId"`
}
