package game

import (
	"fmt"
	"math/rand"
)

// Suit is a single-letter suit code as used on the wire.
type Suit string

const (
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
	Spades   Suit = "S"
)

// Card is a short string of rank followed by suit, e.g. "AS" or "10H".
// The same encoding is used in hands, tricks, history and persistence.
type Card string

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var rankValues = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 11, "Q": 12, "K": 13, "A": 14,
}

// Deck is an ordered sequence of cards drawn from the front.
type Deck []Card

// NewDeck returns all 52 cards, optionally shuffled with the given rng.
func NewDeck(rng *rand.Rand, shuffle bool) Deck {
	deck := make(Deck, 0, 52)
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card(r+string(s)))
		}
	}
	if shuffle {
		rng.Shuffle(len(deck), func(i, j int) {
			deck[i], deck[j] = deck[j], deck[i]
		})
	}
	return deck
}

// Draw removes and returns count cards from the front of the deck.
func (d *Deck) Draw(count int) ([]Card, error) {
	if count > len(*d) {
		return nil, fmt.Errorf("cannot draw %d cards from a deck of %d", count, len(*d))
	}
	drawn := (*d)[:count]
	*d = (*d)[count:]
	return drawn, nil
}
