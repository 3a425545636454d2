package game

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
)

func TestSnapshotHidesOtherHands(t *testing.T) {
	s := newTestState(t, 5)
	s.NewRound()

	snap := s.Snapshot("p1")
	if snap.You != "p1" {
		t.Errorf("you = %s, want p1", snap.You)
	}
	if !reflect.DeepEqual(snap.PlayerCards, s.PlayerCards["p1"]) {
		t.Error("snapshot must carry the viewer's own hand")
	}
	for _, id := range []string{"p2", "p3", "p4"} {
		for _, c := range s.PlayerCards[id] {
			if containsCard(snap.PlayerCards, c) {
				t.Fatalf("snapshot for p1 contains %s held by %s", c, id)
			}
		}
	}
}

func TestSnapshotValidCardsOnlyOnViewerTurn(t *testing.T) {
	s := newTestState(t, 5)
	s.NewRound()
	for i := 0; i < 4; i++ {
		if err := s.SubmitBid(s.CurrentPlayerID(), 3); err != nil {
			t.Fatalf("SubmitBid: %v", err)
		}
	}

	actor := s.CurrentPlayerID()
	if got := s.Snapshot(actor).ValidCards; len(got) == 0 {
		t.Error("acting player's snapshot must list valid cards")
	}
	for _, id := range s.Players {
		if id == actor {
			continue
		}
		snap := s.Snapshot(id)
		if snap.ValidCards == nil {
			t.Errorf("validCards for %s must encode as [], not null", id)
		}
		if len(snap.ValidCards) != 0 {
			t.Errorf("waiting player %s got valid cards %v", id, snap.ValidCards)
		}
	}
}

func TestStateDataRoundTrip(t *testing.T) {
	s := newTestState(t, 5)
	s.NewRound()
	for _, bid := range []int{2, 3, 4, 1} {
		if err := s.SubmitBid(s.CurrentPlayerID(), bid); err != nil {
			t.Fatalf("SubmitBid: %v", err)
		}
	}
	// Play a partial trick so restore covers mid-trick state.
	id := s.CurrentPlayerID()
	if err := s.PlayCard(id, s.PlayerCards[id][0]); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}

	raw, err := json.Marshal(s.Data())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var data StateData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored, err := RestoreState(data, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	if !reflect.DeepEqual(restored.Data(), s.Data()) {
		t.Error("restored state diverges from the original")
	}
	if restored.CurrentPlayerID() != s.CurrentPlayerID() {
		t.Errorf("restored turn %s, want %s", restored.CurrentPlayerID(), s.CurrentPlayerID())
	}
	if restored.TotalRounds() != s.TotalRounds() {
		t.Errorf("restored total rounds %d, want %d", restored.TotalRounds(), s.TotalRounds())
	}
}
