package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestViewUnknownPlayer(t *testing.T) {
	room := newTestRoom(t, DefaultRules(), "a")
	if _, err := room.View("nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("View = %v, want ErrUnknownPlayer", err)
	}
}

func TestViewHidesOtherHands(t *testing.T) {
	room := startedRoom(t, []int{3}, "a", "b", "c")
	v, err := room.View("a")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !reflect.DeepEqual(v.Hand, room.Players["a"].Hand) {
		t.Fatalf("own hand = %v, want %v", v.Hand, room.Players["a"].Hand)
	}
	if len(v.Players) != 2 {
		t.Fatalf("opponents = %d, want 2", len(v.Players))
	}
	for _, o := range v.Players {
		if o.ID == "a" {
			t.Fatalf("viewer listed as opponent")
		}
		if o.CardCount != 3 || o.Declared != nil || !o.Active {
			t.Fatalf("opponent %+v", o)
		}
	}
}

func TestViewTurnAndForbiddenValue(t *testing.T) {
	room := startedRoom(t, []int{3}, "a", "b", "c")
	declareAll(t, room, 1, 1)

	vc, _ := room.View("c")
	if !vc.YourTurn || !vc.LastDeclarer {
		t.Fatalf("c view: yourTurn=%v last=%v", vc.YourTurn, vc.LastDeclarer)
	}
	if n, ok := vc.ForbiddenValue(); !ok || n != 1 {
		t.Fatalf("forbidden = %d,%v want 1,true", n, ok)
	}
	if len(vc.Legal) != 3 || vc.Legal[0] != 0 || vc.Legal[1] != 2 {
		t.Fatalf("legal = %v, want [0 2 3]", vc.Legal)
	}
	if vc.TotalDeclared != 2 {
		t.Fatalf("total declared = %d", vc.TotalDeclared)
	}

	va, _ := room.View("a")
	if va.YourTurn || va.LastDeclarer || va.Forbidden != nil {
		t.Fatalf("a sees the last-declarer constraint: %+v", va)
	}
	if va.CurrentTurn != "c" {
		t.Fatalf("current turn = %q, want c", va.CurrentTurn)
	}
	if len(va.Legal) != 0 {
		t.Fatalf("a may not declare out of turn: %v", va.Legal)
	}
	var ob OpponentView
	for _, o := range va.Players {
		if o.ID == "b" {
			ob = o
		}
	}
	if ob.Declared == nil || *ob.Declared != 1 {
		t.Fatalf("b's declaration not visible: %+v", ob)
	}
}

func TestViewIsACopy(t *testing.T) {
	room := startedRoom(t, []int{2}, "a", "b")
	declareAll(t, room, 0, 0)
	play(t, room, "a", room.Players["a"].Hand[0].String(), false)

	v1, _ := room.View("b")
	v2, _ := room.View("b")
	if !reflect.DeepEqual(v1, v2) {
		t.Fatalf("views differ without a mutation")
	}

	v1.Hand[0] = AceOfHearts
	v1.Pile[0].PlayerID = "tampered"
	*v1.Players[0].Declared = 9
	if room.Pile[0].PlayerID != "a" || *room.Players["a"].Declared != 0 {
		t.Fatalf("view aliases room state")
	}
	v3, _ := room.View("b")
	if !reflect.DeepEqual(v2, v3) {
		t.Fatalf("mutating a view changed later views")
	}
}
