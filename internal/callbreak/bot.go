package callbreak

import (
	"encoding/json"
	"math/rand"
	"time"

	"callbreak/internal/game"
	"callbreak/internal/room"
)

// BotOptions tunes how long a bot pretends to think.
type BotOptions struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Rand     *rand.Rand
}

// Bot fills a seat with a trivial random policy: bid 1 or 2, play a
// uniformly random legal card. It consumes the same events a human client
// receives and produces ordinary client messages, so the orchestrator never
// special-cases it.
type Bot struct {
	profile *room.Player
	act     func(room.ClientMessage)
	opts    BotOptions

	hand []game.Card
}

func NewBot(profile *room.Player, act func(room.ClientMessage), opts BotOptions) *Bot {
	if opts.MinDelay <= 0 {
		opts.MinDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	profile.IsBot = true
	return &Bot{profile: profile, act: act, opts: opts}
}

func (b *Bot) Player() *room.Player {
	return b.profile
}

// HandleGameMessage reacts to the game's event surface. It is invoked with
// the room's exclusive access held, so it only records state and schedules
// the actual action for later; the action re-enters the room like any other
// client message.
func (b *Bot) HandleGameMessage(msgType string, payload any) {
	switch msgType {
	case "gameState":
		if snap, ok := payload.(game.Snapshot); ok {
			b.hand = snap.PlayerCards
		}
	case "getBid":
		bid := b.opts.Rand.Intn(2) + 1
		b.actLater("bid", bidPayload{Bid: bid})
	case "getCard":
		pc, ok := payload.(getCardPayload)
		if !ok {
			return
		}
		played := make([]game.Card, len(pc.PlayedCards))
		for i, p := range pc.PlayedCards {
			played[i] = p.Card
		}
		candidates := game.ValidCards(b.hand, played)
		if len(candidates) == 0 {
			return
		}
		card := candidates[b.opts.Rand.Intn(len(candidates))]
		b.actLater("playCard", playCardPayload{Card: card})
	}
}

func (b *Bot) actLater(msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := room.ClientMessage{Scope: room.ScopeGame, Type: msgType, Payload: raw}

	delay := b.opts.MinDelay
	if span := b.opts.MaxDelay - b.opts.MinDelay; span > 0 {
		delay += time.Duration(b.opts.Rand.Int63n(int64(span)))
	}
	time.AfterFunc(delay, func() { b.act(msg) })
}
