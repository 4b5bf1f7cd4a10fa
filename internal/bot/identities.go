package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Level       string `json:"level"`
}

var (
	identMu       sync.RWMutex
	botIdentities []BotIdentity
	botByID       map[string]BotIdentity
	loadOnce      sync.Once
	provisionOnce sync.Once
	loadErr       error
)

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var ids []BotIdentity
		if err := json.Unmarshal(data, &ids); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		setIdentities(ids)
	})
	return loadErr
}

func setIdentities(ids []BotIdentity) {
	identMu.Lock()
	defer identMu.Unlock()
	botIdentities = ids
	botByID = make(map[string]BotIdentity, len(ids))
	for _, identity := range ids {
		if identity.UserID != "" {
			botByID[identity.UserID] = identity
		}
	}
}

// ProvisionBots ensures that bot accounts exist in Nakama and carry is_bot metadata.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	provisionOnce.Do(func() {
		identMu.RLock()
		ids := append([]BotIdentity(nil), botIdentities...)
		identMu.RUnlock()

		for i := range ids {
			identity := &ids[i]
			if identity.DeviceID == "" {
				continue
			}
			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot": true,
				"level":  identity.Level,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
			}
			logger.Info("ProvisionBots: Bot %s (%s) is ready. Level: %s", identity.DisplayName, userID, identity.Level)
		}
		setIdentities(ids)
	})
}

// Identity returns a bot identity by index (mod pool size). Entries that were
// never provisioned keep their names but get a synthetic user id; without a
// pool the whole identity is synthesized.
func Identity(index int) BotIdentity {
	identMu.RLock()
	defer identMu.RUnlock()
	if len(botIdentities) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("Bot %d", index+1),
			Level:       string(LevelNaive),
		}
	}
	identity := botIdentities[index%len(botIdentities)]
	if identity.UserID == "" {
		identity.UserID = fmt.Sprintf("bot-%d", index)
	}
	return identity
}

// IsBot reports whether the given user ID belongs to the bot pool.
func IsBot(userID string) bool {
	identMu.RLock()
	defer identMu.RUnlock()
	if _, ok := botByID[userID]; ok {
		return true
	}
	var n int
	_, err := fmt.Sscanf(userID, "bot-%d", &n)
	return err == nil
}
