package room

import "encoding/json"

// Message scopes. Room-scoped messages drive the lobby, game-scoped messages
// are routed to the active game.
const (
	ScopeRoom = "room"
	ScopeGame = "game"
)

// ClientMessage is the inbound envelope from a client (human or bot).
type ClientMessage struct {
	Scope   string          `json:"scope"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the outbound envelope delivered to clients.
type ServerMessage struct {
	Scope   string `json:"scope"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
