package room

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrGameInProgress rejects joiners unknown to an active match.
var ErrGameInProgress = errors.New("a game is already in progress")

const maxSeats = 4

// Deps bundles the collaborators a Room needs. The Manager owns one set for
// all rooms.
type Deps struct {
	Messenger   Messenger
	Store       GameStore
	NewGame     GameFactory
	RestoreGame GameRestorer
	NewBot      BotFactory
	BotFill     bool
}

// Room owns a set of players (humans and bots) and at most one active game.
// It routes inbound messages by scope, relays game side effects outward and
// handles host migration and bot backfill. A single mutex guards the room,
// its game and the game's state; every entry point (client message, join,
// leave, scheduled timer or bot callback) takes it.
type Room struct {
	ID string

	mu           sync.Mutex
	deps         Deps
	players      map[string]*Player
	order        []string // join order; defines game rotation
	bots         map[string]Bot
	disconnected map[string]struct{}
	hostID       string
	game         Game
	active       bool
	onEmpty      func()
}

func New(id string, deps Deps, onEmpty func()) *Room {
	return &Room{
		ID:           id,
		deps:         deps,
		players:      make(map[string]*Player),
		bots:         make(map[string]Bot),
		disconnected: make(map[string]struct{}),
		onEmpty:      onEmpty,
	}
}

// Info is the registry/listing view of a room.
type Info struct {
	ID      string       `json:"id"`
	Players []PlayerInfo `json:"players"`
	HostID  string       `json:"hostId"`
	Status  string       `json:"status"` // "lobby" or "playing"
}

func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := "lobby"
	if r.active {
		status = "playing"
	}
	return Info{
		ID:      r.ID,
		Players: r.roster(),
		HostID:  r.hostID,
		Status:  status,
	}
}

// Join registers a player, or treats a known id as a reconnect while a game
// is active. Unknown joiners are rejected mid-game.
func (r *Room) Join(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.join(p)
}

func (r *Room) join(p *Player) error {
	if r.active && r.game != nil {
		if existing, ok := r.players[p.ID]; ok {
			delete(r.disconnected, p.ID)
			r.game.HandleReconnect(existing)
			return nil
		}
		return ErrGameInProgress
	}

	// Announce to the players already present.
	r.broadcastRoom("playerJoined", p.Info())

	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	if r.hostID == "" {
		r.hostID = p.ID
	}

	r.sendRoom(p.ID, "welcome", gin.H{
		"players": r.roster(),
		"hostId":  r.hostID,
	})

	if !p.IsBot && r.deps.BotFill {
		r.fillBots()
	}
	return nil
}

// fillBots seats bots until the table is full. Bot ids count up, skipping any
// a human happens to have claimed.
func (r *Room) fillBots() {
	for n := 1; len(r.players) < maxSeats; n++ {
		botID := fmt.Sprintf("bot-%d", n)
		if _, taken := r.players[botID]; taken {
			continue
		}
		profile := &Player{
			ID:      botID,
			Name:    fmt.Sprintf("Bot %d", n),
			Country: "US",
			IsBot:   true,
		}
		bot := r.deps.NewBot(profile, func(m ClientMessage) {
			r.HandleMessage(botID, m)
		})
		r.bots[botID] = bot
		if err := r.join(bot.Player()); err != nil {
			return
		}
	}
}

// Leave removes a player. While a game is active the seat is kept so the
// player can reconnect; the turn timer covers for them in the meantime.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}

	if r.active && r.game != nil {
		r.game.HandleDisconnect(p)
	}
	if r.active && r.game != nil {
		// Game survived the disconnect; hold the seat for a reconnect.
		r.disconnected[playerID] = struct{}{}
		r.broadcastRoom("playerLeft", gin.H{"playerId": playerID})
		return
	}

	r.removePlayer(playerID)
	r.broadcastRoom("playerLeft", gin.H{"playerId": playerID})

	if r.shouldClose() {
		r.close()
		return
	}
	r.migrateHost()
}

// HandleMessage routes an inbound message: game scope to the active game,
// room scope to the lobby, anything else is dropped.
func (r *Room) HandleMessage(playerID string, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}

	switch {
	case msg.Scope == ScopeGame && r.active && r.game != nil:
		r.game.HandleMessage(p, msg)
		r.persistGame()
	case msg.Scope == ScopeRoom:
		r.handleLobbyMessage(p, msg)
	}
}

func (r *Room) handleLobbyMessage(p *Player, msg ClientMessage) {
	switch msg.Type {
	case "startGame", "playAgain":
		r.startGame(p)
	}
}

func (r *Room) startGame(p *Player) {
	if p.ID != r.hostID {
		r.sendRoom(p.ID, "error", gin.H{"message": "only the host can start the game"})
		return
	}
	if r.active {
		r.sendRoom(p.ID, "error", gin.H{"message": ErrGameInProgress.Error()})
		return
	}

	roster := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		roster = append(roster, r.players[id])
	}
	host := &gameHost{room: r}

	game := r.resumeSavedGame(roster, host)
	if game == nil {
		game = r.deps.NewGame(roster, host)
	}
	if err := game.AllowStart(); err != nil {
		r.sendRoom(p.ID, "error", gin.H{"message": err.Error()})
		return
	}

	r.game = game
	r.active = true
	r.broadcastRoom("gameStarted", gin.H{})
	game.Start()
	r.persistGame()
}

// resumeSavedGame restores a persisted game for this room, if one exists and
// still matches the roster.
func (r *Room) resumeSavedGame(roster []*Player, host Host) Game {
	if r.deps.Store == nil || r.deps.RestoreGame == nil {
		return nil
	}
	data, ok := r.deps.Store.LoadGame(r.ID)
	if !ok {
		return nil
	}
	game, err := r.deps.RestoreGame(data, roster, host)
	if err != nil {
		log.Printf("room %s: discarding saved game: %v", r.ID, err)
		r.deps.Store.DeleteGame(r.ID)
		return nil
	}
	return game
}

func (r *Room) persistGame() {
	if !r.active || r.game == nil || r.deps.Store == nil {
		return
	}
	data, err := r.game.Marshal()
	if err != nil {
		log.Printf("room %s: failed to persist game: %v", r.ID, err)
		return
	}
	r.deps.Store.SaveGame(r.ID, data)
}

// endGame tears down the active game, announces the reason and purges seats
// held for players who never came back.
func (r *Room) endGame(reason string, payload any) {
	r.active = false
	r.game = nil
	if r.deps.Store != nil {
		r.deps.Store.DeleteGame(r.ID)
	}

	ended := gin.H{"reason": reason}
	if extra, ok := payload.(gin.H); ok {
		for k, v := range extra {
			ended[k] = v
		}
	}
	r.broadcastRoom("gameEnded", ended)
	for _, b := range r.bots {
		b.HandleGameMessage("gameEnded", ended)
	}

	for id := range r.disconnected {
		delete(r.disconnected, id)
		r.removePlayer(id)
		r.broadcastRoom("playerLeft", gin.H{"playerId": id})
	}

	if r.shouldClose() {
		r.close()
		return
	}
	r.migrateHost()
}

func (r *Room) removePlayer(playerID string) {
	delete(r.players, playerID)
	delete(r.disconnected, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// shouldClose reports whether the room is empty or only bots remain.
func (r *Room) shouldClose() bool {
	for _, p := range r.players {
		if !p.IsBot {
			return false
		}
	}
	return true
}

func (r *Room) close() {
	r.players = make(map[string]*Player)
	r.order = nil
	r.bots = make(map[string]Bot)
	r.hostID = ""
	if r.deps.Store != nil {
		r.deps.Store.DeleteGame(r.ID)
	}
	if r.onEmpty != nil {
		r.onEmpty()
	}
}

// migrateHost reassigns the host when the current one is gone, preferring
// humans over bots.
func (r *Room) migrateHost() {
	if _, ok := r.players[r.hostID]; ok {
		return
	}
	r.hostID = ""
	for _, id := range r.order {
		if !r.players[id].IsBot {
			r.hostID = id
			break
		}
	}
	if r.hostID == "" && len(r.order) > 0 {
		r.hostID = r.order[0]
	}
	if r.hostID != "" {
		r.broadcastRoom("hostChanged", gin.H{"newHostId": r.hostID})
	}
}

func (r *Room) roster() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.players[id].Info())
	}
	return infos
}

// broadcastRoom sends a room-scoped event to every connected human.
func (r *Room) broadcastRoom(msgType string, payload any) {
	for _, id := range r.order {
		if r.players[id].IsBot {
			continue
		}
		r.deps.Messenger.Deliver(id, ServerMessage{Scope: ScopeRoom, Type: msgType, Payload: payload})
	}
}

// sendRoom sends a room-scoped event to one player.
func (r *Room) sendRoom(playerID, msgType string, payload any) {
	if bot, ok := r.bots[playerID]; ok {
		bot.HandleGameMessage(msgType, payload)
		return
	}
	r.deps.Messenger.Deliver(playerID, ServerMessage{Scope: ScopeRoom, Type: msgType, Payload: payload})
}

// gameHost adapts the Room to the Host port the game drives its side effects
// through. All methods except the scheduled callback run with the room mutex
// already held.
type gameHost struct {
	room *Room
}

func (h *gameHost) Broadcast(msgType string, payload any) {
	r := h.room
	for _, id := range r.order {
		if bot, ok := r.bots[id]; ok {
			bot.HandleGameMessage(msgType, payload)
			continue
		}
		r.deps.Messenger.Deliver(id, ServerMessage{Scope: ScopeGame, Type: msgType, Payload: payload})
	}
}

func (h *gameHost) Send(playerID, msgType string, payload any) {
	r := h.room
	if bot, ok := r.bots[playerID]; ok {
		bot.HandleGameMessage(msgType, payload)
		return
	}
	r.deps.Messenger.Deliver(playerID, ServerMessage{Scope: ScopeGame, Type: msgType, Payload: payload})
}

func (h *gameHost) Error(playerID, message string) {
	h.Send(playerID, "error", gin.H{"message": message})
}

func (h *gameHost) Ended(reason string, payload any) {
	h.room.endGame(reason, payload)
}

func (h *gameHost) Schedule(d time.Duration, fn func()) *time.Timer {
	r := h.room
	g := r.game
	return time.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.active || r.game == nil || r.game != g {
			return // superseded: the game ended or was replaced
		}
		fn()
		r.persistGame()
	})
}
