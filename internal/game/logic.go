package game

import "sort"

// TrumpSuit is fixed for Callbreak.
const TrumpSuit = Spades

// SuitOf returns the suit letter of a card.
func SuitOf(c Card) Suit {
	return Suit(c[len(c)-1:])
}

// RankValue returns the rank of a card on the 2..14 scale (ace high).
func RankValue(c Card) int {
	return rankValues[string(c[:len(c)-1])]
}

// Beats reports whether a wins over b in a trick led with leadingSuit.
// Trump beats any non-trump; within a suit higher rank wins; a card of the
// leading suit beats any off-suit non-trump. This is a trick-winning
// comparison, not a global card ordering.
func Beats(a, b Card, leadingSuit Suit) bool {
	suitA, suitB := SuitOf(a), SuitOf(b)

	if suitA == TrumpSuit && suitB != TrumpSuit {
		return true
	}
	if suitB == TrumpSuit && suitA != TrumpSuit {
		return false
	}
	if suitA == suitB {
		return RankValue(a) > RankValue(b)
	}
	if suitB != leadingSuit {
		return suitA == leadingSuit
	}
	return false
}

// ValidCards returns the legal cards from hand given the cards already played
// in the current trick. Leading allows anything. A player holding the leading
// suit must beat the highest leading-suit card if able, otherwise may play any
// leading-suit card. A void player holding trump must overtrump if able,
// otherwise any trump. A player void in both may discard anything.
func ValidCards(hand []Card, played []Card) []Card {
	if len(hand) == 0 {
		return nil
	}
	if len(played) == 0 {
		return append([]Card(nil), hand...)
	}

	leadingSuit := SuitOf(played[0])

	var leading []Card
	for _, c := range hand {
		if SuitOf(c) == leadingSuit {
			leading = append(leading, c)
		}
	}
	if len(leading) > 0 {
		highest := played[0]
		for _, c := range played[1:] {
			if SuitOf(c) == leadingSuit && RankValue(c) > RankValue(highest) {
				highest = c
			}
		}
		var higher []Card
		for _, c := range leading {
			if Beats(c, highest, leadingSuit) {
				higher = append(higher, c)
			}
		}
		if len(higher) > 0 {
			return higher
		}
		return leading
	}

	var trumps []Card
	for _, c := range hand {
		if SuitOf(c) == TrumpSuit {
			trumps = append(trumps, c)
		}
	}
	if len(trumps) > 0 {
		highestTrump := 0
		for _, c := range played {
			if SuitOf(c) == TrumpSuit && RankValue(c) > highestTrump {
				highestTrump = RankValue(c)
			}
		}
		var higher []Card
		for _, c := range trumps {
			if RankValue(c) > highestTrump {
				higher = append(higher, c)
			}
		}
		if len(higher) > 0 {
			return higher
		}
		return trumps
	}

	return append([]Card(nil), hand...)
}

// SortHand orders a hand by suit (C, D, H, S) then rank descending, for a
// stable client display.
func SortHand(hand []Card) {
	sort.Slice(hand, func(i, j int) bool {
		si, sj := SuitOf(hand[i]), SuitOf(hand[j])
		if si != sj {
			return si < sj
		}
		return RankValue(hand[i]) > RankValue(hand[j])
	})
}
