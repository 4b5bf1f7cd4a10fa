package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"mascarpone/internal/domain"
)

// EnvPrefix namespaces overrides in the Nakama runtime env and the process env.
const EnvPrefix = "mascarpone_"

type GameConfig struct {
	MinPlayers    int   `json:"min_players"`
	MaxPlayers    int   `json:"max_players"`
	RoundSchedule []int `json:"round_schedule"`
	DeckSize      int   `json:"deck_size"`

	// BotAutoFillDelaySeconds configures how many seconds to wait before adding bots to a solo human lobby.
	// Zero disables auto-fill.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	// BotAutoFillCount is how many bots join a solo human.
	BotAutoFillCount int    `json:"bot_auto_fill_count"`
	BotLevel         string `json:"bot_level"`

	InviteSecret     string `json:"invite_secret"`
	InviteTTLSeconds int    `json:"invite_ttl_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the built-in configuration.
func Default() *GameConfig {
	r := domain.DefaultRules()
	return &GameConfig{
		MinPlayers:              r.MinPlayers,
		MaxPlayers:              r.MaxPlayers,
		RoundSchedule:           r.Schedule,
		DeckSize:                r.DeckSize,
		BotAutoFillDelaySeconds: 10,
		BotAutoFillCount:        3,
		BotLevel:                "naive",
		InviteTTLSeconds:        int((24 * time.Hour).Seconds()),
	}
}

// ParseGameConfig decodes a JSON config on top of the defaults.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return c, nil
}

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns a copy of the loaded configuration, or the defaults
// when nothing was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	c := *cfg
	c.RoundSchedule = append([]int(nil), cfg.RoundSchedule...)
	return &c
}

// ApplyEnv overrides fields from env. Keys are matched case-insensitively
// against EnvPrefix plus the JSON field name, e.g. mascarpone_max_players.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	for k, v := range env {
		key := strings.ToLower(k)
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		field := strings.TrimPrefix(key, EnvPrefix)
		var err error
		switch field {
		case "min_players":
			c.MinPlayers, err = strconv.Atoi(v)
		case "max_players":
			c.MaxPlayers, err = strconv.Atoi(v)
		case "deck_size":
			c.DeckSize, err = strconv.Atoi(v)
		case "round_schedule":
			c.RoundSchedule, err = parseSchedule(v)
		case "bot_auto_fill_delay_seconds":
			c.BotAutoFillDelaySeconds, err = strconv.Atoi(v)
		case "bot_auto_fill_count":
			c.BotAutoFillCount, err = strconv.Atoi(v)
		case "bot_level":
			c.BotLevel = v
		case "invite_secret":
			c.InviteSecret = v
		case "invite_ttl_seconds":
			c.InviteTTLSeconds, err = strconv.Atoi(v)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", k, v, err)
		}
	}
	return nil
}

// ProcessEnv returns the process environment as a map for ApplyEnv.
func ProcessEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Rules converts the configuration into validated room rules.
func (c *GameConfig) Rules() (domain.Rules, error) {
	r := domain.Rules{
		MinPlayers: c.MinPlayers,
		MaxPlayers: c.MaxPlayers,
		Schedule:   append([]int(nil), c.RoundSchedule...),
		DeckSize:   c.DeckSize,
	}
	if err := r.Validate(); err != nil {
		return domain.Rules{}, err
	}
	return r, nil
}

// InviteTTL returns the invite lifetime.
func (c *GameConfig) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLSeconds) * time.Second
}

// BotAutoFillDelay returns the solo-lobby wait before bots join.
func (c *GameConfig) BotAutoFillDelay() time.Duration {
	return time.Duration(c.BotAutoFillDelaySeconds) * time.Second
}

func parseSchedule(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
