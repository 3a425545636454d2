package room

import (
	"encoding/json"
	"time"
)

// Host is the narrow port a running game uses for all of its side effects.
// Broadcast and Send fan messages out to every player or a single player;
// Ended hands control back to the room when the match is over; Schedule
// arranges a callback that runs with the room's exclusive access, so game
// code never observes concurrent mutation. Games never touch a transport.
type Host interface {
	Broadcast(msgType string, payload any)
	Send(playerID, msgType string, payload any)
	Error(playerID, message string)
	Ended(reason string, payload any)
	Schedule(d time.Duration, fn func()) *time.Timer
}

// Game is a match implementation driven by the Room. All methods are called
// with the room's exclusive access held.
type Game interface {
	// AllowStart reports whether the current roster can start a match.
	AllowStart() error
	// Start deals (or resumes) the match and notifies the first actor.
	Start()
	HandleMessage(player *Player, msg ClientMessage)
	HandleDisconnect(player *Player)
	HandleReconnect(player *Player)
	// Marshal serializes the full match for persistence.
	Marshal() (json.RawMessage, error)
}

// GameFactory builds a fresh game for the given roster in rotation order.
type GameFactory func(players []*Player, host Host) Game

// GameRestorer rebuilds a persisted game for the same roster.
type GameRestorer func(data json.RawMessage, players []*Player, host Host) (Game, error)

// Bot is a seat filler that consumes the same event surface as a human
// client and produces inbound messages through the act callback it was
// constructed with.
type Bot interface {
	Player() *Player
	HandleGameMessage(msgType string, payload any)
}

// BotFactory builds a bot for a profile; act feeds its messages back into
// the room and is safe to call from any goroutine.
type BotFactory func(profile *Player, act func(ClientMessage)) Bot

// Messenger delivers outbound messages to connected human clients. Unknown
// or disconnected player ids are silently dropped.
type Messenger interface {
	Deliver(playerID string, msg ServerMessage)
}

// GameStore persists serialized games keyed by room id.
type GameStore interface {
	SaveGame(roomID string, data json.RawMessage)
	LoadGame(roomID string) (json.RawMessage, bool)
	DeleteGame(roomID string)
}
