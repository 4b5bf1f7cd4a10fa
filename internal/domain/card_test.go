package domain

import "testing"

func mustCard(t *testing.T, s string) Card {
	t.Helper()
	c, err := ParseCard(s)
	if err != nil {
		t.Fatalf("ParseCard(%q): %v", s, err)
	}
	return c
}

func TestParseCardRoundTrip(t *testing.T) {
	for _, c := range NewDeck() {
		got, err := ParseCard(c.String())
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", c.String(), err)
		}
		if got != c {
			t.Fatalf("ParseCard(%q) = %+v, want %+v", c.String(), got, c)
		}
	}
}

func TestParseCardRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "A", "1H", "11S", "ZH", "AX", "0D"} {
		if _, err := ParseCard(s); err == nil {
			t.Fatalf("ParseCard(%q) succeeded, want error", s)
		}
	}
}

func TestStrengthBeats(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		aLow    bool
		b       string
		bLow    bool
		aBeatsB bool
	}{
		{name: "higher suit beats higher rank", a: "2H", b: "KD", aBeatsB: true},
		{name: "same suit higher rank", a: "9C", b: "8C", aBeatsB: true},
		{name: "ace high in suit", a: "AS", b: "KS", aBeatsB: true},
		{name: "ace low in suit", a: "AS", aLow: true, b: "2S", aBeatsB: false},
		{name: "ace low still beats lower suit", a: "AD", aLow: true, b: "KS", aBeatsB: true},
		{name: "ace of hearts beats king of hearts", a: "AH", b: "KH", aBeatsB: true},
		{name: "ace of hearts beats everything", a: "AH", b: "AD", aBeatsB: true},
		{name: "ace of hearts low loses to two of spades", a: "AH", aLow: true, b: "2S", aBeatsB: false},
		{name: "two of spades beats ace of hearts low", a: "2S", b: "AH", bLow: true, aBeatsB: true},
		{name: "ace low spade beats ace of hearts low", a: "AS", aLow: true, b: "AH", bLow: true, aBeatsB: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := StrengthOf(mustCard(t, tt.a), tt.aLow)
			b := StrengthOf(mustCard(t, tt.b), tt.bLow)
			if got := a.Beats(b); got != tt.aBeatsB {
				t.Fatalf("%s beats %s = %v, want %v", tt.a, tt.b, got, tt.aBeatsB)
			}
			if tt.aBeatsB && b.Beats(a) {
				t.Fatalf("strength is not antisymmetric for %s / %s", tt.a, tt.b)
			}
		})
	}
}

func TestAceOfHeartsDominatesWholeDeck(t *testing.T) {
	high := StrengthOf(AceOfHearts, false)
	low := StrengthOf(AceOfHearts, true)
	for _, c := range NewDeck() {
		if c.IsAceOfHearts() {
			continue
		}
		for _, aceLow := range []bool{false, true} {
			s := StrengthOf(c, aceLow)
			if !high.Beats(s) {
				t.Fatalf("AH should beat %s (aceLow=%v)", c, aceLow)
			}
			if !s.Beats(low) {
				t.Fatalf("%s (aceLow=%v) should beat AH played low", c, aceLow)
			}
		}
	}
}

func TestAceLowIgnoredForNonAces(t *testing.T) {
	c := mustCard(t, "7D")
	if StrengthOf(c, true) != StrengthOf(c, false) {
		t.Fatalf("ace-low flag changed strength of %s", c)
	}
}

func TestCompareSimple(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2S", "3S", -1},
		{"KS", "2C", -1},
		{"2H", "KD", 1},
		{"AS", "KS", 1},
		{"AH", "AD", 1},
		{"KH", "AH", -1},
		{"QC", "QC", 0},
	}
	for _, tt := range tests {
		if got := CompareSimple(mustCard(t, tt.a), mustCard(t, tt.b)); got != tt.want {
			t.Fatalf("CompareSimple(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareSimpleAgreesWithStrength(t *testing.T) {
	deck := NewDeck()
	for _, a := range deck {
		for _, b := range deck {
			if a == b {
				continue
			}
			simple := CompareSimple(a, b) > 0
			trick := StrengthOf(a, false).Beats(StrengthOf(b, false))
			if simple != trick {
				t.Fatalf("%s vs %s: simple=%v trick=%v", a, b, simple, trick)
			}
		}
	}
}
