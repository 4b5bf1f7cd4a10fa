package domain

import "math/rand"

// Phase represents the lifecycle stage of a room.
type Phase string

const (
	// PhaseWaiting is the lobby state where players can join or leave.
	PhaseWaiting Phase = "waiting"
	// PhaseDeclaring is the bidding step where each active player names a trick count.
	PhaseDeclaring Phase = "declaring"
	// PhasePlaying is the trick-taking step.
	PhasePlaying Phase = "playing"
	// PhaseRoundEnd follows a settled round that left two or more players.
	PhaseRoundEnd Phase = "round_end"
	// PhaseGameOver is terminal.
	PhaseGameOver Phase = "game_over"
)

// Player holds state for a participant in the room.
type Player struct {
	ID         string
	Name       string
	Hand       []Card
	TricksWon  int
	Declared   *int // nil until the player declares this round
	Eliminated bool
}

// PlayedCard is one entry of the pile.
type PlayedCard struct {
	PlayerID string `json:"player_id"`
	Card     Card   `json:"card"`
	AceLow   bool   `json:"ace_low"`
}

// PlayerResult is one player's line in a round summary.
type PlayerResult struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Declared   int    `json:"declared"`
	Won        int    `json:"won"`
	Mascarpone bool   `json:"mascarpone"` // true when won != declared
}

// RoundSummary records how a round settled.
type RoundSummary struct {
	Round         int            `json:"round"`
	CardsPerRound int            `json:"cards_per_round"`
	Results       []PlayerResult `json:"results"`
	Eliminated    []string       `json:"eliminated"`
}

// TrickResult describes a resolved trick.
type TrickResult struct {
	Number      int          `json:"number"` // 1-based within the round
	Pile        []PlayedCard `json:"pile"`
	WinnerID    string       `json:"winner_id"`
	WinningCard Card         `json:"winning_card"`
}

// PlayOutcome is what a successful play produced. Trick is set when the play
// completed a trick, Round when it completed the round.
type PlayOutcome struct {
	Played       PlayedCard
	NextPlayerID string
	Trick        *TrickResult
	Round        *RoundSummary
	GameOver     bool
	WinnerID     string
}

// Room holds authoritative state for one game.
type Room struct {
	ID    string
	Rules Rules

	Phase Phase

	Players map[string]*Player // playerId -> player
	Order   []string           // every joined player, join order
	Active  []string           // players still in the game, turn order

	// Round tracking
	Round         int
	CardsPerRound int
	Declarations  map[string]int
	DeclarerIdx   int

	// Trick tracking
	Trick     int // completed tricks this round
	Pile      []PlayedCard
	TurnIdx   int
	LeaderIdx int

	// LastTrickWinner seeds the next round's leader.
	LastTrickWinner string

	History  []RoundSummary
	WinnerID string // set in game_over; empty when nobody survived

	rng *rand.Rand
}
