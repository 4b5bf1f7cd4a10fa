package bot

import (
	"fmt"
	"math/rand"
	"strings"
)

// Level names a bot strategy.
type Level string

const (
	LevelNaive  Level = "naive"
	LevelRandom Level = "random"
)

// ParseLevel maps a config string to a Level, defaulting to naive.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "", LevelNaive:
		return LevelNaive, nil
	case LevelRandom:
		return LevelRandom, nil
	default:
		return "", fmt.Errorf("unknown bot level: %q", s)
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level Level, rng *rand.Rand) (Brain, error) {
	switch level {
	case LevelNaive:
		return NaiveBrain{}, nil
	case LevelRandom:
		return NewRandomBrain(rng), nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}
