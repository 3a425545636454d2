package game

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Phase is the lifecycle stage of a Callbreak match. The string values are
// part of the wire contract.
type Phase string

const (
	PhaseBidding   Phase = "bidding"
	PhasePlaying   Phase = "playing"
	PhaseRoundOver Phase = "round_over"
	PhaseGameOver  Phase = "game_over"
)

// PlayedCard is a card in a trick together with the id of its player.
type PlayedCard struct {
	Player string `json:"player"`
	Card   Card   `json:"card"`
}

// RoundRecord is an immutable archive of one completed round.
type RoundRecord struct {
	RoundNumber  int            `json:"roundNumber"`
	Bids         map[string]int `json:"bids"`
	TricksWon    map[string]int `json:"tricksWon"`
	PlayedTricks [][]PlayedCard `json:"playedTricks"`
	BiddingOrder []string       `json:"biddingOrder"`
}

var (
	ErrPlayerCount       = errors.New("callbreak requires exactly 4 players")
	ErrEmptyPlayerID     = errors.New("each player must have a valid id")
	ErrDuplicatePlayerID = errors.New("player ids must be unique")
	ErrNotBidding        = errors.New("cannot submit a bid outside of the bidding phase")
	ErrNotPlaying        = errors.New("cannot play cards outside of the playing phase")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrInvalidBid        = errors.New("bid must be between 1 and 8")
	ErrCardNotHeld       = errors.New("you do not have this card")
	ErrIllegalCard       = errors.New("invalid card played, you must follow the game rules")
	ErrTrickIncomplete   = errors.New("trick is not complete")
)

const handSize = 13

// State is the authoritative per-match mutable aggregate. The four player ids
// are fixed at construction and their order defines the turn rotation.
type State struct {
	Players     []string
	PlayerCards map[string][]Card

	Turn        int
	Phase       Phase
	RoundNumber int
	Winner      string // set only once Phase == PhaseGameOver

	Bids      map[string]int
	TricksWon map[string]int
	Points    map[string]float64

	PlayedCards          []PlayedCard
	TrickLeadPlayerIndex int

	RoundHistory []RoundRecord

	totalRounds  int
	biddingOrder []string
	trickHistory [][]PlayedCard
	rng          *rand.Rand
}

// NewState validates the roster and returns a state ready for NewRound.
func NewState(playerIDs []string, totalRounds int, rng *rand.Rand) (*State, error) {
	if len(playerIDs) != 4 {
		return nil, ErrPlayerCount
	}
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			return nil, ErrEmptyPlayerID
		}
		if _, dup := seen[id]; dup {
			return nil, ErrDuplicatePlayerID
		}
		seen[id] = struct{}{}
	}
	if totalRounds < 1 {
		totalRounds = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &State{
		Players:     append([]string(nil), playerIDs...),
		PlayerCards: make(map[string][]Card, 4),
		Phase:       PhaseBidding,
		Bids:        make(map[string]int, 4),
		TricksWon:   make(map[string]int, 4),
		Points:      make(map[string]float64, 4),
		totalRounds: totalRounds,
		rng:         rng,
	}
	for _, id := range playerIDs {
		s.Points[id] = 0
	}
	return s, nil
}

// CurrentPlayerID returns the id of the player whose action is awaited.
func (s *State) CurrentPlayerID() string {
	return s.Players[s.Turn]
}

// TotalRounds returns the configured round limit for this match.
func (s *State) TotalRounds() int {
	return s.totalRounds
}

// NewRound deals fresh hands and resets the per-round fields. Points and
// round history persist across rounds. If the round limit has been reached
// the match transitions to game over instead.
func (s *State) NewRound() {
	if s.RoundNumber >= s.totalRounds {
		s.Phase = PhaseGameOver
		return
	}

	isFirstRound := s.RoundNumber == 0
	s.RoundNumber++

	deck := NewDeck(s.rng, true)
	for _, id := range s.Players {
		hand, _ := deck.Draw(handSize)
		hand = append([]Card(nil), hand...)
		SortHand(hand)
		s.PlayerCards[id] = hand
	}

	s.Bids = make(map[string]int, 4)
	s.TricksWon = make(map[string]int, 4)
	for _, id := range s.Players {
		s.TricksWon[id] = 0
	}
	s.trickHistory = nil
	s.PlayedCards = nil

	if isFirstRound {
		// First round: dealer rotation decides who bids first.
		dealerIndex := (s.RoundNumber - 1) % len(s.Players)
		s.Turn = (dealerIndex + 1) % len(s.Players)
	}
	// Otherwise the winner of the previous round's last trick leads; Turn is
	// already set by the last ResolveTrick.
	s.TrickLeadPlayerIndex = s.Turn

	s.biddingOrder = make([]string, 0, len(s.Players))
	for i := range s.Players {
		s.biddingOrder = append(s.biddingOrder, s.Players[(s.Turn+i)%len(s.Players)])
	}

	s.Phase = PhaseBidding
}

// SubmitBid records a bid for the acting player and advances the turn. The
// fourth bid flips the phase to playing with the trick lead acting first.
func (s *State) SubmitBid(playerID string, bid int) error {
	if s.Phase != PhaseBidding {
		return ErrNotBidding
	}
	if s.CurrentPlayerID() != playerID {
		return ErrNotYourTurn
	}
	if bid < 1 || bid > 8 {
		return ErrInvalidBid
	}

	s.Bids[playerID] = bid
	s.Turn = (s.Turn + 1) % len(s.Players)

	if len(s.Bids) == len(s.Players) {
		s.Phase = PhasePlaying
		s.Turn = s.TrickLeadPlayerIndex
	}
	return nil
}

// PlayCard moves a legal card from the player's hand into the current trick.
// The turn is not advanced on the fourth card; the caller resolves the trick
// explicitly via ResolveTrick.
func (s *State) PlayCard(playerID string, card Card) error {
	if s.Phase != PhasePlaying {
		return ErrNotPlaying
	}
	if s.CurrentPlayerID() != playerID {
		return ErrNotYourTurn
	}
	hand := s.PlayerCards[playerID]
	if !containsCard(hand, card) {
		return ErrCardNotHeld
	}
	if !containsCard(ValidCards(hand, s.trickCards()), card) {
		return ErrIllegalCard
	}

	s.PlayedCards = append(s.PlayedCards, PlayedCard{Player: playerID, Card: card})
	s.PlayerCards[playerID] = removeCard(hand, card)

	if len(s.PlayedCards) < len(s.Players) {
		s.Turn = (s.Turn + 1) % len(s.Players)
	}
	return nil
}

// ResolveTrick determines the trick winner, credits it, and clears the trick.
// On the thirteenth trick it scores the round; on the final round it also
// decides the overall winner. Returns the trick winner's id.
func (s *State) ResolveTrick() (string, error) {
	if len(s.PlayedCards) != len(s.Players) {
		return "", ErrTrickIncomplete
	}

	winningPlay := s.PlayedCards[0]
	winnerIndex := s.TrickLeadPlayerIndex
	leadingSuit := SuitOf(s.PlayedCards[0].Card)

	for i := 1; i < len(s.PlayedCards); i++ {
		if Beats(s.PlayedCards[i].Card, winningPlay.Card, leadingSuit) {
			winningPlay = s.PlayedCards[i]
			winnerIndex = (s.TrickLeadPlayerIndex + i) % len(s.Players)
		}
	}

	winnerID := s.Players[winnerIndex]
	s.TricksWon[winnerID]++

	s.trickHistory = append(s.trickHistory, append([]PlayedCard(nil), s.PlayedCards...))
	s.PlayedCards = nil
	s.Turn = winnerIndex
	s.TrickLeadPlayerIndex = winnerIndex

	if s.handsEmpty() {
		s.scoreRound()
		s.archiveRound()
		s.Phase = PhaseRoundOver

		if s.RoundNumber >= s.totalRounds {
			s.Phase = PhaseGameOver
			s.determineWinner()
		}
	}
	return winnerID, nil
}

func (s *State) trickCards() []Card {
	cards := make([]Card, len(s.PlayedCards))
	for i, pc := range s.PlayedCards {
		cards[i] = pc.Card
	}
	return cards
}

func (s *State) handsEmpty() bool {
	for _, hand := range s.PlayerCards {
		if len(hand) > 0 {
			return false
		}
	}
	return true
}

// scoreRound applies the Callbreak formula once per round: an underbid loses
// the full bid, otherwise the bid is earned plus 0.1 per overtrick.
func (s *State) scoreRound() {
	for _, id := range s.Players {
		bid := s.Bids[id]
		tricks := s.TricksWon[id]
		points := s.Points[id]
		if tricks < bid {
			points -= float64(bid)
		} else {
			points += float64(bid) + 0.1*float64(tricks-bid)
		}
		s.Points[id] = math.Round(points*100) / 100
	}
}

func (s *State) archiveRound() {
	s.RoundHistory = append(s.RoundHistory, RoundRecord{
		RoundNumber:  s.RoundNumber,
		Bids:         copyIntMap(s.Bids),
		TricksWon:    copyIntMap(s.TricksWon),
		PlayedTricks: s.trickHistory,
		BiddingOrder: append([]string(nil), s.biddingOrder...),
	})
}

// determineWinner picks the highest cumulative score; ties go to the earliest
// player in rotation order.
func (s *State) determineWinner() {
	best := math.Inf(-1)
	for _, id := range s.Players {
		if s.Points[id] > best {
			best = s.Points[id]
			s.Winner = id
		}
	}
}

func containsCard(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

func removeCard(cards []Card, card Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c != card {
			out = append(out, c)
		}
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
