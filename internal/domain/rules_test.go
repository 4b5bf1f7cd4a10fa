package domain

import (
	"errors"
	"testing"
)

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rules)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Rules) {}},
		{name: "min below two", mutate: func(r *Rules) { r.MinPlayers = 1 }, wantErr: true},
		{name: "max below min", mutate: func(r *Rules) { r.MaxPlayers = 1 }, wantErr: true},
		{name: "deck too large", mutate: func(r *Rules) { r.DeckSize = 53 }, wantErr: true},
		{name: "more seats than cards", mutate: func(r *Rules) { r.DeckSize = 8 }, wantErr: true},
		{name: "empty schedule", mutate: func(r *Rules) { r.Schedule = nil }, wantErr: true},
		{name: "zero schedule entry", mutate: func(r *Rules) { r.Schedule = []int{3, 0} }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("Validate() = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestHandSize(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name          string
		round, active int
		want          int
	}{
		{name: "round one", round: 1, active: 4, want: 5},
		{name: "round four", round: 4, active: 4, want: 2},
		{name: "last entry", round: 9, active: 3, want: 7},
		{name: "past schedule reuses last", round: 20, active: 3, want: 7},
		{name: "shrinks to fit deck", round: 9, active: 10, want: 5},
		{name: "shrink round one", round: 1, active: 10, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.HandSize(tt.round, tt.active)
			if err != nil {
				t.Fatalf("HandSize: %v", err)
			}
			if got != tt.want {
				t.Fatalf("HandSize(%d, %d) = %d, want %d", tt.round, tt.active, got, tt.want)
			}
			if got*tt.active > r.DeckSize {
				t.Fatalf("deal of %d x %d exceeds deck", got, tt.active)
			}
		})
	}
}

func TestHandSizeConfigurationFloor(t *testing.T) {
	r := Rules{MinPlayers: 2, MaxPlayers: 4, Schedule: []int{3}, DeckSize: 4}
	if _, err := r.HandSize(1, 5); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("HandSize = %v, want ErrConfiguration", err)
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(ErrForbiddenTotal); got != "forbidden_total" {
		t.Fatalf("ErrorCode = %q", got)
	}
	if got := ErrorCode(errors.New("boom")); got != "internal" {
		t.Fatalf("ErrorCode = %q, want internal", got)
	}
	r := Rules{}
	if got := ErrorCode(r.Validate()); got != "configuration_error" {
		t.Fatalf("wrapped ErrorCode = %q", got)
	}
}
