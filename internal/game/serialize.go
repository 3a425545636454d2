package game

import "math/rand"

// Snapshot is the per-player view of the match. It never contains another
// player's hand; ValidCards is populated only when it is the viewer's turn
// during the playing phase.
type Snapshot struct {
	Players      []string           `json:"players"`
	You          string             `json:"you"`
	PlayerCards  []Card             `json:"playerCards"`
	Turn         int                `json:"turn"`
	Phase        Phase              `json:"phase"`
	RoundNumber  int                `json:"roundNumber"`
	Bids         map[string]int     `json:"bids"`
	PlayedCards  []PlayedCard       `json:"playedCards"`
	TricksWon    map[string]int     `json:"tricksWon"`
	ValidCards   []Card             `json:"validCards"`
	RoundHistory []RoundRecord      `json:"roundHistory"`
	Points       map[string]float64 `json:"points"`
	Winner       *string            `json:"winner"`
}

// StateData is the full wire/persistence shape of a State. The keyed-by-id
// maps are flattened here, at the one canonical conversion point.
type StateData struct {
	Players              []string           `json:"players"`
	PlayerCards          map[string][]Card  `json:"playerCards"`
	Turn                 int                `json:"turn"`
	Winner               *string            `json:"winner"`
	RoundNumber          int                `json:"roundNumber"`
	TotalRounds          int                `json:"totalRounds"`
	Bids                 map[string]int     `json:"bids"`
	Points               map[string]float64 `json:"points"`
	TricksWon            map[string]int     `json:"tricksWon"`
	Phase                Phase              `json:"phase"`
	TrickHistory         [][]PlayedCard     `json:"cardsHistory"`
	PlayedCards          []PlayedCard       `json:"playedCards"`
	TrickLeadPlayerIndex int                `json:"trickLeadPlayerIndex"`
	RoundHistory         []RoundRecord      `json:"roundHistory"`
	BiddingOrder         []string           `json:"currentBiddingOrder"`
}

func nullableWinner(winner string) *string {
	if winner == "" {
		return nil
	}
	return &winner
}

// Snapshot projects the state for one player.
func (s *State) Snapshot(playerID string) Snapshot {
	var valid []Card
	if s.Phase == PhasePlaying && s.CurrentPlayerID() == playerID {
		valid = ValidCards(s.PlayerCards[playerID], s.trickCards())
	}
	if valid == nil {
		valid = []Card{}
	}
	return Snapshot{
		Players:      append([]string(nil), s.Players...),
		You:          playerID,
		PlayerCards:  append([]Card{}, s.PlayerCards[playerID]...),
		Turn:         s.Turn,
		Phase:        s.Phase,
		RoundNumber:  s.RoundNumber,
		Bids:         copyIntMap(s.Bids),
		PlayedCards:  append([]PlayedCard{}, s.PlayedCards...),
		TricksWon:    copyIntMap(s.TricksWon),
		ValidCards:   valid,
		RoundHistory: append([]RoundRecord{}, s.RoundHistory...),
		Points:       copyFloatMap(s.Points),
		Winner:       nullableWinner(s.Winner),
	}
}

// Data converts the full state to its persistence shape.
func (s *State) Data() StateData {
	hands := make(map[string][]Card, len(s.PlayerCards))
	for id, hand := range s.PlayerCards {
		hands[id] = append([]Card(nil), hand...)
	}
	return StateData{
		Players:              append([]string(nil), s.Players...),
		PlayerCards:          hands,
		Turn:                 s.Turn,
		Winner:               nullableWinner(s.Winner),
		RoundNumber:          s.RoundNumber,
		TotalRounds:          s.totalRounds,
		Bids:                 copyIntMap(s.Bids),
		Points:               copyFloatMap(s.Points),
		TricksWon:            copyIntMap(s.TricksWon),
		Phase:                s.Phase,
		TrickHistory:         append([][]PlayedCard(nil), s.trickHistory...),
		PlayedCards:          append([]PlayedCard(nil), s.PlayedCards...),
		TrickLeadPlayerIndex: s.TrickLeadPlayerIndex,
		RoundHistory:         append([]RoundRecord(nil), s.RoundHistory...),
		BiddingOrder:         append([]string(nil), s.biddingOrder...),
	}
}

// RestoreState rebuilds a State from its persistence shape. The restored
// state behaves identically to the original: same hands, phase and scores.
func RestoreState(data StateData, rng *rand.Rand) (*State, error) {
	s, err := NewState(data.Players, data.TotalRounds, rng)
	if err != nil {
		return nil, err
	}
	for id, hand := range data.PlayerCards {
		s.PlayerCards[id] = append([]Card(nil), hand...)
	}
	s.Turn = data.Turn
	if data.Winner != nil {
		s.Winner = *data.Winner
	}
	s.RoundNumber = data.RoundNumber
	s.Bids = copyIntMap(data.Bids)
	s.Points = copyFloatMap(data.Points)
	s.TricksWon = copyIntMap(data.TricksWon)
	s.Phase = data.Phase
	s.trickHistory = data.TrickHistory
	s.PlayedCards = data.PlayedCards
	s.TrickLeadPlayerIndex = data.TrickLeadPlayerIndex
	s.RoundHistory = data.RoundHistory
	s.biddingOrder = data.BiddingOrder
	return s, nil
}
