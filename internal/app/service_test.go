package app

import (
	"math/rand"
	"testing"

	"mascarpone/internal/domain"
)

func newTestService(seed int64) *Service {
	return NewService(rand.New(rand.NewSource(seed)), domain.DefaultRules())
}

func countKind(evs []Event, kind EventKind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestStartGameDealsHands(t *testing.T) {
	svc := newTestService(42)
	room, err := svc.NewRoom("r1")
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		evs, err := svc.Join(room, id, id)
		if err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		if evs[0].Kind != EventPlayerJoined || !evs[0].Broadcast() {
			t.Fatalf("join event = %+v", evs[0])
		}
	}

	evs, err := svc.StartGame(room)
	if err != nil {
		t.Fatalf("start game error: %v", err)
	}
	if room.Phase != domain.PhaseDeclaring {
		t.Fatalf("phase = %s, want declaring", room.Phase)
	}
	if countKind(evs, EventRoundStarted) != 1 {
		t.Fatalf("expected one round started event")
	}

	handEvents := 0
	for _, ev := range evs {
		if ev.Kind != EventHandDealt {
			continue
		}
		handEvents++
		payload := ev.Payload.(HandDealtPayload)
		if len(payload.Hand) != 5 {
			t.Fatalf("hand size = %d, want 5", len(payload.Hand))
		}
		if len(ev.Recipients) != 1 || ev.Recipients[0] != payload.PlayerID {
			t.Fatalf("hand event recipients = %v", ev.Recipients)
		}
		if ev.VisibleTo("someone-else") {
			t.Fatalf("hand visible to another player")
		}
	}
	if handEvents != 3 {
		t.Fatalf("hand events = %d, want 3", handEvents)
	}
}

func TestRoomsGetIndependentRandomness(t *testing.T) {
	svc := newTestService(7)
	deal := func(id string) []domain.Card {
		room, _ := svc.NewRoom(id)
		_, _ = svc.Join(room, "a", "a")
		_, _ = svc.Join(room, "b", "b")
		if _, err := svc.StartGame(room); err != nil {
			t.Fatalf("start: %v", err)
		}
		return room.Players["a"].Hand
	}
	h1, h2 := deal("r1"), deal("r2")
	same := true
	for i := range h1 {
		if h1[i] != h2[i] {
			same = false
		}
	}
	if same {
		t.Fatalf("two rooms dealt identical hands %v", h1)
	}
}

func TestDeclareAndPlayToRoundEnd(t *testing.T) {
	rules := domain.DefaultRules()
	rules.Schedule = []int{1}
	svc := NewService(rand.New(rand.NewSource(3)), rules)
	room, _ := svc.NewRoom("r1")
	for _, id := range []string{"u1", "u2", "u3"} {
		if _, err := svc.Join(room, id, id); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if _, err := svc.StartGame(room); err != nil {
		t.Fatalf("start: %v", err)
	}
	room.Players["u1"].Hand = []domain.Card{{Suit: domain.Spades, Rank: 2}}
	room.Players["u2"].Hand = []domain.Card{{Suit: domain.Clubs, Rank: 2}}
	room.Players["u3"].Hand = []domain.Card{{Suit: domain.Diamonds, Rank: 2}}

	for _, id := range []string{"u1", "u2"} {
		if _, err := svc.DeclareTricks(room, id, 0); err != nil {
			t.Fatalf("declare %s: %v", id, err)
		}
	}
	evs, err := svc.DeclareTricks(room, "u3", 0)
	if err != nil {
		t.Fatalf("declare u3: %v", err)
	}
	p := evs[0].Payload.(TricksDeclaredPayload)
	if p.FirstPlayer != "u1" || p.NextDeclarer != "" {
		t.Fatalf("declared payload = %+v", p)
	}

	if _, err := svc.PlayCard(room, "u1", 0, false); err != nil {
		t.Fatalf("play u1: %v", err)
	}
	if _, err := svc.PlayCard(room, "u2", 0, false); err != nil {
		t.Fatalf("play u2: %v", err)
	}
	evs, err = svc.PlayCard(room, "u3", 0, false)
	if err != nil {
		t.Fatalf("play u3: %v", err)
	}

	if countKind(evs, EventCardPlayed) != 1 || countKind(evs, EventTrickCompleted) != 1 || countKind(evs, EventRoundCompleted) != 1 {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if countKind(evs, EventGameEnded) != 0 {
		t.Fatalf("game should continue with two survivors")
	}
	for _, ev := range evs {
		if ev.Kind == EventTrickCompleted && ev.Payload.(TrickCompletedPayload).Trick.WinnerID != "u3" {
			t.Fatalf("trick winner = %+v", ev.Payload)
		}
		if ev.Kind == EventRoundCompleted {
			rc := ev.Payload.(RoundCompletedPayload)
			if rc.Phase != domain.PhaseRoundEnd || len(rc.Summary.Eliminated) != 1 || rc.Summary.Eliminated[0] != "u3" {
				t.Fatalf("round completed = %+v", rc)
			}
		}
	}

	evs, err = svc.NextRound(room)
	if err != nil {
		t.Fatalf("next round: %v", err)
	}
	if countKind(evs, EventHandDealt) != 2 {
		t.Fatalf("hands dealt to %d players, want 2", countKind(evs, EventHandDealt))
	}
}

func TestPlayCardEmitsGameEnded(t *testing.T) {
	rules := domain.DefaultRules()
	rules.Schedule = []int{1}
	svc := NewService(rand.New(rand.NewSource(5)), rules)
	room, _ := svc.NewRoom("r1")
	_, _ = svc.Join(room, "u1", "u1")
	_, _ = svc.Join(room, "u2", "u2")
	if _, err := svc.StartGame(room); err != nil {
		t.Fatalf("start: %v", err)
	}
	room.Players["u1"].Hand = []domain.Card{domain.AceOfHearts}
	room.Players["u2"].Hand = []domain.Card{{Suit: domain.Hearts, Rank: domain.RankKing}}
	_, _ = svc.DeclareTricks(room, "u1", 1)
	if _, err := svc.DeclareTricks(room, "u2", 0); err == nil {
		t.Fatalf("last declarer completed the total")
	}
	if _, err := svc.DeclareTricks(room, "u2", 1); err != nil {
		t.Fatalf("declare u2: %v", err)
	}
	_, _ = svc.PlayCard(room, "u1", 0, false)
	evs, err := svc.PlayCard(room, "u2", 0, false)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	var ended *GameEndedPayload
	for _, ev := range evs {
		if ev.Kind == EventGameEnded {
			p := ev.Payload.(GameEndedPayload)
			ended = &p
		}
	}
	if ended == nil || ended.WinnerID != "u1" || ended.Rounds != 1 || len(ended.History) != 1 {
		t.Fatalf("game ended payload = %+v", ended)
	}
}

func TestServiceReturnsDomainErrors(t *testing.T) {
	svc := newTestService(1)
	room, _ := svc.NewRoom("r1")
	_, _ = svc.Join(room, "u1", "u1")
	if _, err := svc.StartGame(room); domain.ErrorCode(err) != "not_enough_players" {
		t.Fatalf("start with one player = %v", err)
	}
	if _, err := svc.Leave(room, "ghost"); domain.ErrorCode(err) != "unknown_player" {
		t.Fatalf("leave unknown = %v", err)
	}
	evs, err := svc.Leave(room, "u1")
	if err != nil || len(evs) != 1 || evs[0].Kind != EventPlayerLeft {
		t.Fatalf("leave = %+v, %v", evs, err)
	}
}
