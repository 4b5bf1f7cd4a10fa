package nakama

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"mascarpone/internal/app"
	"mascarpone/internal/bot"
	"mascarpone/internal/config"
)

const (
	gameConfigPath   = "data/game_config.json"
	botIdentityPath  = "data/bot_identities.json"
	inviteIssuerName = "mascarpone"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("Using default game config: %v", err)
	}
	if err := bot.LoadIdentities(botIdentityPath); err != nil {
		logger.Warn("No bot identities loaded: %v", err)
	} else {
		bot.ProvisionBots(ctx, nk, logger)
	}

	invites := newInviteService(ctx, logger)

	if err := RegisterRPCs(initializer, invites); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameMascarpone, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(invites), nil
	}); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.Info("Mascarpone Go module loaded.")
	return nil
}

// newInviteService signs invites with the configured secret. Without one, a
// per-process secret is used and invites do not survive a restart.
func newInviteService(ctx context.Context, logger runtime.Logger) *app.InviteService {
	cfg := config.GetGameConfig()
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if err := cfg.ApplyEnv(env); err != nil {
		logger.Warn("Ignoring invalid env override: %v", err)
	}
	secret := cfg.InviteSecret
	if secret == "" {
		logger.Warn("No invite secret configured, generating one for this process.")
		secret = uuid.NewString()
	}
	return app.NewInviteService(secret, inviteIssuerName, cfg.InviteTTL())
}
