package callbreak

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"callbreak/internal/game"
	"callbreak/internal/room"

	"github.com/gin-gonic/gin"
)

// Options tunes a single match. Zero values fall back to the defaults below.
type Options struct {
	TotalRounds  int
	TurnTimeout  time.Duration
	TrickDelay   time.Duration
	RoundDelay   time.Duration
	DisableTimer bool
	Rand         *rand.Rand
}

const (
	defaultTotalRounds = 5
	defaultTurnTimeout = 30 * time.Second
	defaultTrickDelay  = 1500 * time.Millisecond
	defaultRoundDelay  = 2 * time.Second
)

func (o *Options) fillDefaults() {
	if o.TotalRounds <= 0 {
		o.TotalRounds = defaultTotalRounds
	}
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = defaultTurnTimeout
	}
	if o.TrickDelay <= 0 {
		o.TrickDelay = defaultTrickDelay
	}
	if o.RoundDelay <= 0 {
		o.RoundDelay = defaultRoundDelay
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

var errNeedFourPlayers = errors.New("4 players required")

type bidPayload struct {
	Bid int `json:"bid"`
}

type playCardPayload struct {
	Card game.Card `json:"card"`
}

type getCardPayload struct {
	PlayedCards []game.PlayedCard `json:"playedCards"`
}

// Game orchestrates one Callbreak match over a game.State. It owns turn
// timing and pacing delays and emits every side effect through its
// room.Host; it never touches a transport.
type Game struct {
	players []*room.Player
	host    room.Host
	opts    Options

	state        *game.State
	disconnected map[string]struct{}

	timer    *time.Timer
	timerGen uint64
	deadline time.Time
}

// New builds a fresh match for the roster, in rotation order.
func New(players []*room.Player, host room.Host, opts Options) *Game {
	opts.fillDefaults()
	return &Game{
		players:      players,
		host:         host,
		opts:         opts,
		disconnected: make(map[string]struct{}),
	}
}

// AllowStart requires exactly 4 players with unique non-empty ids.
func (g *Game) AllowStart() error {
	if len(g.players) != 4 {
		return errNeedFourPlayers
	}
	seen := make(map[string]struct{}, len(g.players))
	for _, p := range g.players {
		if p.ID == "" {
			return game.ErrEmptyPlayerID
		}
		if _, dup := seen[p.ID]; dup {
			return game.ErrDuplicatePlayerID
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Start deals the first round, or resumes a restored match without
// redealing, then notifies the first actor and arms the turn timer.
func (g *Game) Start() {
	if g.state == nil {
		ids := make([]string, len(g.players))
		for i, p := range g.players {
			ids[i] = p.ID
		}
		state, err := game.NewState(ids, g.opts.TotalRounds, g.opts.Rand)
		if err != nil {
			g.endGame("stalled", nil)
			return
		}
		g.state = state
		g.state.NewRound()
	} else if g.state.Phase == game.PhaseRoundOver {
		// The save was taken between rounds; deal the next one on resume.
		g.state.NewRound()
	}

	g.sendGameState()
	g.notifyTurn()
	g.startTurnTimer()
}

// HandleMessage processes one game-scoped client message. Rule violations
// never escape: the offender gets a private error plus a fresh snapshot and
// the state is left untouched.
func (g *Game) HandleMessage(p *room.Player, msg room.ClientMessage) {
	var err error
	switch msg.Type {
	case "requestGameState":
		g.resyncPlayer(p.ID)
		return
	case "bid":
		var payload bidPayload
		if err = json.Unmarshal(msg.Payload, &payload); err == nil {
			err = g.checkTurn(p.ID, game.PhaseBidding)
		}
		if err == nil {
			err = g.handleBid(p.ID, payload.Bid)
		}
	case "playCard":
		var payload playCardPayload
		if err = json.Unmarshal(msg.Payload, &payload); err == nil {
			err = g.checkTurn(p.ID, game.PhasePlaying)
		}
		if err == nil {
			err = g.handleCard(p.ID, payload.Card)
		}
	default:
		// Unknown game message types are ignored.
		return
	}

	if err != nil {
		g.host.Error(p.ID, err.Error())
		g.resyncPlayer(p.ID)
	}
}

// checkTurn duplicates the state machine's phase/turn guards so invalid
// messages are rejected before any event fires.
func (g *Game) checkTurn(playerID string, phase game.Phase) error {
	if g.state.Phase != phase {
		return fmt.Errorf("not in %s phase", phase)
	}
	if g.state.CurrentPlayerID() != playerID {
		return game.ErrNotYourTurn
	}
	return nil
}

// handleBid applies a bid and moves the match along. It is shared by the
// message path and the turn-timeout auto-bid.
func (g *Game) handleBid(playerID string, bid int) error {
	if err := g.state.SubmitBid(playerID, bid); err != nil {
		return err
	}
	g.host.Broadcast("playerBid", gin.H{"playerId": playerID, "bid": bid})
	g.host.Broadcast("bidMade", gin.H{})
	g.sendGameState()

	// Either the next bidder acts, or bidding just finished and the trick
	// lead plays first.
	g.notifyTurn()
	g.startTurnTimer()
	return nil
}

// handleCard applies a card play and sequences trick completion. It is
// shared by the message path and the turn-timeout auto-play, so a timed-out
// fourth card resolves its trick like any other.
func (g *Game) handleCard(playerID string, card game.Card) error {
	if err := g.state.PlayCard(playerID, card); err != nil {
		return err
	}
	g.host.Broadcast("playerCard", gin.H{"playerId": playerID, "card": card})
	g.sendGameState() // the fourth card must be visible before resolution

	if len(g.state.PlayedCards) < 4 {
		g.notifyTurn()
		g.startTurnTimer()
		return nil
	}

	winnerID, err := g.state.ResolveTrick()
	if err != nil {
		return err
	}
	g.host.Broadcast("trickWon", gin.H{"winnerId": winnerID})
	g.stopTimer()

	switch g.state.Phase {
	case game.PhaseGameOver:
		g.endGame("completed", gin.H{"winnerId": g.state.Winner})
	case game.PhaseRoundOver:
		// Let clients show the round scores before the next deal.
		g.host.Schedule(g.opts.RoundDelay, func() {
			g.state.NewRound()
			g.sendGameState()
			g.notifyTurn()
			g.startTurnTimer()
		})
	default:
		// Pause for the trick collection animation.
		g.host.Schedule(g.opts.TrickDelay, func() {
			g.notifyTurn()
			g.startTurnTimer()
		})
	}
	return nil
}

// HandleDisconnect cancels the match if it happens during bidding; during
// play the turn timer covers for the absent player.
func (g *Game) HandleDisconnect(p *room.Player) {
	g.disconnected[p.ID] = struct{}{}
	if g.state != nil && g.state.Phase == game.PhaseBidding {
		g.stopTimer()
		g.endGame("player_disconnected_during_bidding", gin.H{"playerId": p.ID})
	}
}

// HandleReconnect resends the player's view; no state changes.
func (g *Game) HandleReconnect(p *room.Player) {
	delete(g.disconnected, p.ID)
	g.resyncPlayer(p.ID)
}

func (g *Game) resyncPlayer(playerID string) {
	g.host.Send(playerID, "gameState", g.state.Snapshot(playerID))
	g.host.Send(playerID, "turnTimer", gin.H{"msLeft": g.remainingTimeMs()})
}

func (g *Game) sendGameState() {
	for _, p := range g.players {
		g.host.Send(p.ID, "gameState", g.state.Snapshot(p.ID))
	}
}

func (g *Game) notifyTurn() {
	switch g.state.Phase {
	case game.PhaseBidding:
		g.host.Send(g.state.CurrentPlayerID(), "getBid", gin.H{})
	case game.PhasePlaying:
		g.host.Send(g.state.CurrentPlayerID(), "getCard", getCardPayload{
			PlayedCards: append([]game.PlayedCard{}, g.state.PlayedCards...),
		})
	}
}

// startTurnTimer arms the single authoritative countdown for the current
// actor, superseding any previous one.
func (g *Game) startTurnTimer() {
	if g.opts.DisableTimer {
		g.host.Broadcast("turnTimer", gin.H{"playerId": g.state.CurrentPlayerID(), "msLeft": -1})
		return
	}
	g.stopTimer()
	g.deadline = time.Now().Add(g.opts.TurnTimeout)
	g.host.Broadcast("turnTimer", gin.H{
		"playerId": g.state.CurrentPlayerID(),
		"msLeft":   g.remainingTimeMs(),
	})
	gen := g.timerGen
	g.timer = g.host.Schedule(g.opts.TurnTimeout, func() { g.onTurnTimeout(gen) })
}

// onTurnTimeout acts on behalf of the stalled player: the minimum bid, or a
// uniformly random legal card. The forced action goes through the same code
// path as a normal one, so the match proceeds identically. If even that
// fails the match is ended rather than left hanging.
//
// An expired timer's goroutine can lose the race for the room's lock against
// the player's own action. Stop cannot cancel it at that point, so the
// callback carries the generation it was armed with and bails once any stop
// or restart has moved the counter on.
func (g *Game) onTurnTimeout(gen uint64) {
	if gen != g.timerGen {
		return
	}
	playerID := g.state.CurrentPlayerID()

	var err error
	switch g.state.Phase {
	case game.PhaseBidding:
		err = g.handleBid(playerID, 1)
	case game.PhasePlaying:
		candidates := game.ValidCards(g.state.PlayerCards[playerID], g.trickCards())
		if len(candidates) == 0 {
			err = game.ErrCardNotHeld
		} else {
			err = g.handleCard(playerID, candidates[g.opts.Rand.Intn(len(candidates))])
		}
	default:
		return
	}

	if err != nil {
		g.stopTimer()
		g.endGame("stalled", nil)
	}
}

func (g *Game) trickCards() []game.Card {
	cards := make([]game.Card, len(g.state.PlayedCards))
	for i, pc := range g.state.PlayedCards {
		cards[i] = pc.Card
	}
	return cards
}

func (g *Game) endGame(reason string, payload any) {
	g.stopTimer()
	ended := gin.H{"reason": reason}
	if extra, ok := payload.(gin.H); ok {
		for k, v := range extra {
			ended[k] = v
		}
	}
	g.host.Broadcast("gameEnded", ended)
	g.host.Ended(reason, payload)
}

func (g *Game) remainingTimeMs() int64 {
	if g.opts.DisableTimer {
		return -1
	}
	left := time.Until(g.deadline).Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}

func (g *Game) stopTimer() {
	g.timerGen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
