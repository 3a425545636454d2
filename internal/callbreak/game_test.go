package callbreak

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"callbreak/internal/game"
	"callbreak/internal/room"

	"github.com/gin-gonic/gin"
)

type hostEvent struct {
	kind    string // "broadcast", "send", "error", "ended"
	player  string
	msgType string
	payload any
}

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

// fakeHost records every side effect and captures scheduled callbacks so
// tests can fire timers and pacing delays deterministically.
type fakeHost struct {
	events    []hostEvent
	scheduled []scheduledCall
}

func (h *fakeHost) Broadcast(msgType string, payload any) {
	h.events = append(h.events, hostEvent{kind: "broadcast", msgType: msgType, payload: payload})
}

func (h *fakeHost) Send(playerID, msgType string, payload any) {
	h.events = append(h.events, hostEvent{kind: "send", player: playerID, msgType: msgType, payload: payload})
}

func (h *fakeHost) Error(playerID, message string) {
	h.events = append(h.events, hostEvent{kind: "error", player: playerID, payload: message})
}

func (h *fakeHost) Ended(reason string, payload any) {
	h.events = append(h.events, hostEvent{kind: "ended", msgType: reason, payload: payload})
}

func (h *fakeHost) Schedule(d time.Duration, fn func()) *time.Timer {
	h.scheduled = append(h.scheduled, scheduledCall{delay: d, fn: fn})
	return time.AfterFunc(time.Hour, func() {}) // inert; tests fire fn directly
}

func (h *fakeHost) count(kind, msgType string) int {
	n := 0
	for _, e := range h.events {
		if e.kind == kind && e.msgType == msgType {
			n++
		}
	}
	return n
}

func (h *fakeHost) last(kind, msgType string) (hostEvent, bool) {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].kind == kind && h.events[i].msgType == msgType {
			return h.events[i], true
		}
	}
	return hostEvent{}, false
}

func (h *fakeHost) runLastScheduled(t *testing.T) {
	t.Helper()
	if len(h.scheduled) == 0 {
		t.Fatal("no scheduled callback to run")
	}
	call := h.scheduled[len(h.scheduled)-1]
	h.scheduled = h.scheduled[:len(h.scheduled)-1]
	call.fn()
}

func testRoster() []*room.Player {
	return []*room.Player{
		{ID: "p1", Name: "Asha"},
		{ID: "p2", Name: "Bikram"},
		{ID: "p3", Name: "Chen"},
		{ID: "p4", Name: "Divya"},
	}
}

func gameMsg(t *testing.T, msgType string, payload any) room.ClientMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	return room.ClientMessage{Scope: room.ScopeGame, Type: msgType, Payload: raw}
}

func newTestGame(t *testing.T, opts Options) (*Game, *fakeHost) {
	t.Helper()
	if opts.TotalRounds == 0 {
		opts.TotalRounds = 1
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	host := &fakeHost{}
	return New(testRoster(), host, opts), host
}

func playerByID(g *Game, id string) *room.Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func TestAllowStart(t *testing.T) {
	tests := []struct {
		name    string
		players []*room.Player
		wantErr bool
	}{
		{"full table", testRoster(), false},
		{"three players", testRoster()[:3], true},
		{"empty id", []*room.Player{{ID: "a"}, {ID: ""}, {ID: "c"}, {ID: "d"}}, true},
		{"duplicate id", []*room.Player{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "d"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.players, &fakeHost{}, Options{})
			if err := g.AllowStart(); (err != nil) != tt.wantErr {
				t.Errorf("AllowStart() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartNotifiesFirstBidder(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()

	for _, p := range testRoster() {
		found := false
		for _, e := range host.events {
			if e.kind == "send" && e.msgType == "gameState" && e.player == p.ID {
				snap, ok := e.payload.(game.Snapshot)
				if !ok {
					t.Fatalf("gameState payload for %s is %T", p.ID, e.payload)
				}
				if snap.You != p.ID {
					t.Errorf("snapshot for %s has you=%s", p.ID, snap.You)
				}
				if len(snap.PlayerCards) != 13 {
					t.Errorf("snapshot for %s has %d cards", p.ID, len(snap.PlayerCards))
				}
				found = true
			}
		}
		if !found {
			t.Errorf("no gameState sent to %s", p.ID)
		}
	}

	// Player left of the dealer bids first.
	bidder := g.state.CurrentPlayerID()
	if bidder != "p2" {
		t.Fatalf("first bidder = %s, want p2", bidder)
	}
	if e, ok := host.last("send", "getBid"); !ok || e.player != bidder {
		t.Errorf("getBid sent to %q, want %s", e.player, bidder)
	}
	if _, ok := host.last("broadcast", "turnTimer"); !ok {
		t.Error("no turnTimer broadcast after start")
	}
	if len(host.scheduled) != 1 {
		t.Errorf("scheduled callbacks = %d, want 1 turn timer", len(host.scheduled))
	}
}

func TestBidRejectionIsPrivate(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	host.events = nil

	// p1 bids out of turn.
	g.HandleMessage(playerByID(g, "p1"), gameMsg(t, "bid", bidPayload{Bid: 3}))

	if e, ok := host.last("error", ""); !ok || e.player != "p1" {
		t.Fatal("out-of-turn bid must produce a private error")
	}
	if e, ok := host.last("send", "gameState"); !ok || e.player != "p1" {
		t.Error("offender must be resynced with a fresh snapshot")
	}
	if host.count("broadcast", "playerBid") != 0 {
		t.Error("rejected bid must not be announced")
	}
	if len(g.state.Bids) != 0 {
		t.Error("rejected bid must not mutate state")
	}
}

func TestBiddingTransitionsToPlaying(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()

	for i := 0; i < 4; i++ {
		actor := g.state.CurrentPlayerID()
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 2}))
	}

	if got := host.count("broadcast", "playerBid"); got != 4 {
		t.Errorf("playerBid broadcasts = %d, want 4", got)
	}
	if g.state.Phase != game.PhasePlaying {
		t.Fatalf("phase = %s, want %s", g.state.Phase, game.PhasePlaying)
	}
	if e, ok := host.last("send", "getCard"); !ok || e.player != g.state.CurrentPlayerID() {
		t.Errorf("getCard sent to %q, want trick lead %s", e.player, g.state.CurrentPlayerID())
	}
}

// Drives a whole match through HandleMessage alone: bids, thirteen tricks,
// pacing callbacks, completion.
func TestFullMatchViaMessages(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()

	for i := 0; i < 4; i++ {
		actor := g.state.CurrentPlayerID()
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 3}))
	}

	for g.state.Phase == game.PhasePlaying {
		actor := g.state.CurrentPlayerID()
		valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
		if len(valid) == 0 {
			t.Fatalf("no valid cards for %s", actor)
		}
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))

		if g.state.Phase == game.PhasePlaying && len(g.state.PlayedCards) == 0 && len(host.scheduled) > 0 {
			// Trick resolved; run the pacing delay to get the next turn prompt.
			host.runLastScheduled(t)
		}
	}

	if g.state.Phase != game.PhaseGameOver {
		t.Fatalf("phase = %s, want %s", g.state.Phase, game.PhaseGameOver)
	}
	if got := host.count("broadcast", "trickWon"); got != 13 {
		t.Errorf("trickWon broadcasts = %d, want 13", got)
	}

	endedBroadcast, ok := host.last("broadcast", "gameEnded")
	if !ok {
		t.Fatal("no gameEnded broadcast")
	}
	payload := endedBroadcast.payload.(gin.H)
	if payload["reason"] != "completed" {
		t.Errorf("gameEnded reason = %v, want completed", payload["reason"])
	}
	if payload["winnerId"] != g.state.Winner {
		t.Errorf("gameEnded winnerId = %v, want %s", payload["winnerId"], g.state.Winner)
	}
	if e, ok := host.last("ended", "completed"); !ok {
		t.Error("host.Ended not invoked on completion")
	} else if e.msgType != "completed" {
		t.Errorf("Ended reason = %s, want completed", e.msgType)
	}
}

func TestMultiRoundAdvancesThroughRoundDelay(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true, TotalRounds: 2})
	g.Start()

	for round := 1; round <= 2; round++ {
		if g.state.RoundNumber != round {
			t.Fatalf("round number = %d, want %d", g.state.RoundNumber, round)
		}
		for i := 0; i < 4; i++ {
			actor := g.state.CurrentPlayerID()
			g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 1}))
		}
		for g.state.Phase == game.PhasePlaying {
			actor := g.state.CurrentPlayerID()
			valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
			g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))
			if g.state.Phase == game.PhasePlaying && len(g.state.PlayedCards) == 0 && len(host.scheduled) > 0 {
				host.runLastScheduled(t)
			}
		}
		if g.state.Phase == game.PhaseRoundOver {
			// The round delay deals the next round.
			host.runLastScheduled(t)
		}
	}

	if g.state.Phase != game.PhaseGameOver {
		t.Fatalf("phase = %s, want %s", g.state.Phase, game.PhaseGameOver)
	}
}

func TestTurnTimeoutAutoBids(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()

	stalled := g.state.CurrentPlayerID()
	host.runLastScheduled(t) // fire the turn timer

	if g.state.Bids[stalled] != 1 {
		t.Errorf("auto-bid for %s = %d, want 1", stalled, g.state.Bids[stalled])
	}
	e, ok := host.last("broadcast", "playerBid")
	if !ok {
		t.Fatal("auto-bid must be announced like a normal bid")
	}
	payload := e.payload.(gin.H)
	if payload["playerId"] != stalled {
		t.Errorf("playerBid for %v, want %s", payload["playerId"], stalled)
	}
}

// A timeout on the fourth card must resolve the trick, not stall the match.
func TestTurnTimeoutOnFourthCardResolvesTrick(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()

	for i := 0; i < 4; i++ {
		actor := g.state.CurrentPlayerID()
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 2}))
	}
	for i := 0; i < 3; i++ {
		actor := g.state.CurrentPlayerID()
		valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))
	}
	if len(g.state.PlayedCards) != 3 {
		t.Fatalf("trick has %d cards, want 3", len(g.state.PlayedCards))
	}

	host.runLastScheduled(t) // fourth player's turn timer

	if host.count("broadcast", "trickWon") != 1 {
		t.Fatal("timed-out fourth card must resolve the trick")
	}
	if len(g.state.PlayedCards) != 0 {
		t.Errorf("trick not cleared after timeout resolution")
	}
}

func TestDisconnectDuringBiddingEndsMatch(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()

	g.HandleDisconnect(playerByID(g, "p3"))

	e, ok := host.last("broadcast", "gameEnded")
	if !ok {
		t.Fatal("disconnect during bidding must end the match")
	}
	payload := e.payload.(gin.H)
	if payload["reason"] != "player_disconnected_during_bidding" {
		t.Errorf("reason = %v", payload["reason"])
	}
	if payload["playerId"] != "p3" {
		t.Errorf("playerId = %v, want p3", payload["playerId"])
	}
	if _, ok := host.last("ended", "player_disconnected_during_bidding"); !ok {
		t.Error("host.Ended not invoked")
	}
}

func TestDisconnectDuringPlayKeepsMatch(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	for i := 0; i < 4; i++ {
		actor := g.state.CurrentPlayerID()
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 2}))
	}
	host.events = nil

	g.HandleDisconnect(playerByID(g, "p4"))
	if _, ok := host.last("ended", ""); ok {
		t.Fatal("disconnect during play must not end the match")
	}
	if _, ok := g.disconnected["p4"]; !ok {
		t.Error("disconnected player not tracked")
	}

	g.HandleReconnect(playerByID(g, "p4"))
	if e, ok := host.last("send", "gameState"); !ok || e.player != "p4" {
		t.Error("reconnect must resync the player")
	}
	if e, ok := host.last("send", "turnTimer"); !ok || e.player != "p4" {
		t.Error("reconnect must resend the timer")
	}
	if _, ok := g.disconnected["p4"]; ok {
		t.Error("reconnected player still marked disconnected")
	}
}

func TestRequestGameStateResyncs(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	host.events = nil

	g.HandleMessage(playerByID(g, "p3"), room.ClientMessage{Scope: room.ScopeGame, Type: "requestGameState"})

	if e, ok := host.last("send", "gameState"); !ok || e.player != "p3" {
		t.Error("requestGameState must send a snapshot back")
	}
	if host.count("error", "") != 0 {
		t.Error("requestGameState must not error")
	}
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	host.events = nil

	g.HandleMessage(playerByID(g, "p1"), room.ClientMessage{Scope: room.ScopeGame, Type: "dance"})
	if len(host.events) != 0 {
		t.Errorf("unknown message produced %d events", len(host.events))
	}
}

func fullBids(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < 4; i++ {
		actor := g.state.CurrentPlayerID()
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 2}))
	}
}

func TestMarshalRestoreRoundTrip(t *testing.T) {
	g, _ := newTestGame(t, Options{DisableTimer: true, TotalRounds: 3})
	g.Start()
	fullBids(t, g)
	g.HandleDisconnect(playerByID(g, "p2"))

	raw, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	restored, err := Restore(raw, testRoster(), &fakeHost{}, Options{TotalRounds: 3})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.state.Phase != game.PhasePlaying {
		t.Errorf("restored phase = %s, want %s", restored.state.Phase, game.PhasePlaying)
	}
	if restored.state.CurrentPlayerID() != g.state.CurrentPlayerID() {
		t.Errorf("restored turn = %s, want %s", restored.state.CurrentPlayerID(), g.state.CurrentPlayerID())
	}
	if _, ok := restored.disconnected["p2"]; !ok {
		t.Error("restored game lost the disconnected set")
	}
	if !restored.opts.DisableTimer {
		t.Error("restored game must keep the timer setting")
	}
	for _, id := range g.state.Players {
		if len(restored.state.PlayerCards[id]) != len(g.state.PlayerCards[id]) {
			t.Errorf("restored hand size for %s differs", id)
		}
	}

	// Start on a restored game resumes; it must not redeal.
	host := &fakeHost{}
	restored.host = host
	before := append([]game.Card(nil), restored.state.PlayerCards["p1"]...)
	restored.Start()
	for i, c := range restored.state.PlayerCards["p1"] {
		if before[i] != c {
			t.Fatal("Start on a restored game redealt the hands")
		}
	}
	if e, ok := host.last("send", "getCard"); !ok || e.player != restored.state.CurrentPlayerID() {
		t.Error("resume must prompt the current actor")
	}
}

func TestRestoreRejectsMismatchedRoster(t *testing.T) {
	g, _ := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	raw, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	other := testRoster()
	other[2].ID = "stranger"
	if _, err := Restore(raw, other, &fakeHost{}, Options{}); err == nil {
		t.Error("Restore must reject a roster that does not match the save")
	}

	if _, err := Restore(json.RawMessage(`{"state"`), testRoster(), &fakeHost{}, Options{}); err == nil {
		t.Error("Restore must reject corrupt data")
	}
}

func TestMarshalBeforeStartFails(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	if _, err := g.Marshal(); err == nil {
		t.Error("Marshal before Start must fail")
	}
}

func TestIllegalCardKeepsStateAndResyncs(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true})
	g.Start()
	fullBids(t, g)

	actor := g.state.CurrentPlayerID()
	hand := g.state.PlayerCards[actor]
	// A card nobody holds; rejected before any rule check.
	bogus := game.Card("XX")
	handLen := len(hand)
	host.events = nil

	g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: bogus}))

	if e, ok := host.last("error", ""); !ok || e.player != actor {
		t.Error("illegal play must produce a private error")
	}
	if len(g.state.PlayerCards[actor]) != handLen {
		t.Error("illegal play must not change the hand")
	}
	if len(g.state.PlayedCards) != 0 {
		t.Error("illegal play must not enter the trick")
	}
}

// A bidder's expired timer can lose the race against their own bid; once the
// bid lands the timer is superseded and must not force a move on the next
// player.
func TestSupersededTurnTimerDoesNotAct(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()

	if len(host.scheduled) != 1 {
		t.Fatalf("scheduled callbacks = %d, want the armed turn timer", len(host.scheduled))
	}
	stale := host.scheduled[0]
	host.scheduled = nil

	actor := g.state.CurrentPlayerID()
	g.HandleMessage(playerByID(g, actor), gameMsg(t, "bid", bidPayload{Bid: 3}))
	next := g.state.CurrentPlayerID()

	stale.fn()

	if len(g.state.Bids) != 1 {
		t.Fatalf("bids = %v; a superseded timer must not force a move", g.state.Bids)
	}
	if g.state.CurrentPlayerID() != next {
		t.Error("superseded timer advanced the turn")
	}
	if host.count("broadcast", "playerBid") != 1 {
		t.Error("superseded timer announced a bid")
	}
}

func TestStoppedTimerDoesNotActDuringTrickPause(t *testing.T) {
	g, host := newTestGame(t, Options{})
	g.Start()
	fullBids(t, g)

	for i := 0; i < 3; i++ {
		actor := g.state.CurrentPlayerID()
		valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))
	}
	stale := host.scheduled[len(host.scheduled)-1] // fourth player's timer

	actor := g.state.CurrentPlayerID()
	valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
	g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))
	if len(g.state.PlayedCards) != 0 {
		t.Fatal("fourth card should have resolved the trick")
	}

	stale.fn() // fires during the trick pause, after stopTimer

	if len(g.state.PlayedCards) != 0 {
		t.Error("stopped timer forced a card during the trick pause")
	}
	if host.count("broadcast", "gameEnded") != 0 {
		t.Error("stopped timer must not end the match")
	}
}

func TestRestoreAtRoundOverDealsNextRound(t *testing.T) {
	g, host := newTestGame(t, Options{DisableTimer: true, TotalRounds: 2})
	g.Start()
	fullBids(t, g)

	for g.state.Phase == game.PhasePlaying {
		actor := g.state.CurrentPlayerID()
		valid := game.ValidCards(g.state.PlayerCards[actor], g.trickCards())
		g.HandleMessage(playerByID(g, actor), gameMsg(t, "playCard", playCardPayload{Card: valid[0]}))
		if g.state.Phase == game.PhasePlaying && len(g.state.PlayedCards) == 0 && len(host.scheduled) > 0 {
			host.runLastScheduled(t)
		}
	}
	if g.state.Phase != game.PhaseRoundOver {
		t.Fatalf("phase = %s, want %s", g.state.Phase, game.PhaseRoundOver)
	}

	raw, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resumedHost := &fakeHost{}
	restored, err := Restore(raw, testRoster(), resumedHost, Options{TotalRounds: 2})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored.Start()

	if restored.state.Phase != game.PhaseBidding {
		t.Fatalf("resumed phase = %s, want %s", restored.state.Phase, game.PhaseBidding)
	}
	if restored.state.RoundNumber != 2 {
		t.Errorf("resumed round = %d, want 2", restored.state.RoundNumber)
	}
	if e, ok := resumedHost.last("send", "getBid"); !ok || e.player != restored.state.CurrentPlayerID() {
		t.Error("resume must prompt the next round's first bidder")
	}
}
