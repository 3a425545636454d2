package callbreak

import (
	"encoding/json"
	"fmt"
	"sort"

	"callbreak/internal/game"
	"callbreak/internal/room"
)

// Data is the persistence shape of a whole match: the state plus the
// orchestrator's own bookkeeping.
type Data struct {
	State         game.StateData `json:"state"`
	Disconnected  []string       `json:"disconnected"`
	TimerDisabled bool           `json:"timerDisabled"`
}

// Marshal serializes the match for the room's game store.
func (g *Game) Marshal() (json.RawMessage, error) {
	if g.state == nil {
		return nil, fmt.Errorf("game not started")
	}
	disconnected := make([]string, 0, len(g.disconnected))
	for id := range g.disconnected {
		disconnected = append(disconnected, id)
	}
	sort.Strings(disconnected)

	return json.Marshal(Data{
		State:         g.state.Data(),
		Disconnected:  disconnected,
		TimerDisabled: g.opts.DisableTimer,
	})
}

// Restore rebuilds a persisted match for the same roster. Start on the
// restored game resumes play without redealing: same hands, same phase,
// same scores.
func Restore(raw json.RawMessage, players []*room.Player, host room.Host, opts Options) (*Game, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("corrupt saved game: %w", err)
	}

	ids := make(map[string]struct{}, len(players))
	for _, p := range players {
		ids[p.ID] = struct{}{}
	}
	if len(data.State.Players) != len(players) {
		return nil, fmt.Errorf("saved game has %d players, room has %d", len(data.State.Players), len(players))
	}
	for _, id := range data.State.Players {
		if _, ok := ids[id]; !ok {
			return nil, fmt.Errorf("saved game player %s is not in the room", id)
		}
	}

	opts.DisableTimer = data.TimerDisabled
	g := New(players, host, opts)
	state, err := game.RestoreState(data.State, g.opts.Rand)
	if err != nil {
		return nil, err
	}
	g.state = state
	for _, id := range data.Disconnected {
		g.disconnected[id] = struct{}{}
	}
	return g, nil
}
