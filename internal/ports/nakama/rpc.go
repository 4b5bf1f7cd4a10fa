package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"mascarpone/internal/app"
)

// QuickMatchResponse is the payload returned to clients when requesting a waiting room.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// CreateRoomRequest is the optional create_room payload.
type CreateRoomRequest struct {
	Private bool `json:"private"`
}

// CreateRoomResponse returns the new match and, for private rooms, its invite.
type CreateRoomResponse struct {
	MatchID string `json:"match_id"`
	Invite  string `json:"invite,omitempty"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, invites *app.InviteService) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcCreateRoom, newRpcCreateRoom(invites))
}

// quickMatchQuery finds public rooms of our game that still accept players.
func quickMatchQuery() string {
	return fmt.Sprintf("+label.%s:%s +label.%s:T +label.%s:F",
		MatchLabelKey_Game, GameLabel, MatchLabelKey_Open, MatchLabelKey_Private)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 10
	authoritative := true
	minSize := 1

	// Bots hold seats without presences, so capacity comes from the label's
	// open flag rather than a size filter.
	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, nil, quickMatchQuery())
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: MatchList error: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		logger.Info("rpcQuickMatch [User:%s]: Found existing match %s", userID, matches[0].MatchId)
		b, _ := json.Marshal(QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(b), nil
	}

	// Seat and owner assignment happen in MatchJoin.
	matchID, err := nk.MatchCreate(ctx, MatchNameMascarpone, map[string]interface{}{})
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: MatchCreate error: %v", userID, err)
		return "", err
	}

	logger.Info("rpcQuickMatch [User:%s]: Created new match %s", userID, matchID)
	b, _ := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}

func newRpcCreateRoom(invites *app.InviteService) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

		var req CreateRoomRequest
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &req); err != nil {
				return "", runtime.NewError("invalid create_room payload", 3)
			}
		}

		matchID, err := nk.MatchCreate(ctx, MatchNameMascarpone, map[string]interface{}{
			MatchLabelKey_Private: req.Private,
		})
		if err != nil {
			logger.Error("rpcCreateRoom [User:%s]: MatchCreate error: %v", userID, err)
			return "", err
		}

		resp := CreateRoomResponse{MatchID: matchID}
		if req.Private {
			resp.Invite, err = invites.Issue(matchID)
			if err != nil {
				logger.Error("rpcCreateRoom [User:%s]: Failed to issue invite: %v", userID, err)
				return "", err
			}
		}

		logger.Info("rpcCreateRoom [User:%s]: Created match %s (private=%t)", userID, matchID, req.Private)
		b, _ := json.Marshal(resp)
		return string(b), nil
	}
}
