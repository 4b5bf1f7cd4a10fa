package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"mascarpone/internal/app"
	"mascarpone/internal/bot"
	"mascarpone/internal/config"
	"mascarpone/internal/domain"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
// Nakama runs MatchLoop, MatchJoin and MatchLeave one at a time per match, so
// the room needs no further locking.
type MatchState struct {
	Room      *domain.Room                `json:"-"`
	App       *app.Service                `json:"-"`
	Invites   *app.InviteService          `json:"-"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	Bots      map[string]*bot.Agent       `json:"-"` // Active bot agents

	MatchID string `json:"match_id"`
	OwnerID string `json:"owner_id"`
	Private bool   `json:"private"`
	Tick    int64  `json:"tick"`

	BotsEnabled          bool      `json:"bots_enabled"`
	BotLevel             bot.Level `json:"bot_level"`
	BotMinDelay          int       `json:"bot_min_delay"`           // Min ticks a bot waits
	BotMaxDelay          int       `json:"bot_max_delay"`           // Max ticks a bot waits
	BotAutoFillDelay     int       `json:"bot_auto_fill_delay"`     // Ticks to wait before auto-filling with bots; 0 disables
	BotAutoFillCount     int       `json:"bot_auto_fill_count"`     // Bots added for a solo human
	BotWaitUntil         int64     `json:"bot_wait_until"`          // Tick when the automated actor should act
	LastSinglePlayerTick int64     `json:"last_single_player_tick"` // Tick when a single player started waiting
	nextBot              int
}

// HumanCount counts seated players that are not bots.
func (state *MatchState) HumanCount() int {
	n := 0
	for _, id := range state.Room.Order {
		if !isBotUserId(id) {
			n++
		}
	}
	return n
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId)
}

// isConnectedHuman reports whether id is a human with a live presence.
func (state *MatchState) isConnectedHuman(id string) bool {
	if isBotUserId(id) {
		return false
	}
	_, ok := state.Presences[id]
	return ok
}

// findFirstHuman returns the first connected human in join order, or "".
func (state *MatchState) findFirstHuman() string {
	for _, id := range state.Room.Order {
		if state.isConnectedHuman(id) {
			return id
		}
	}
	return ""
}

type matchHandler struct {
	invites *app.InviteService
}

func newMatchHandler(invites *app.InviteService) *matchHandler {
	return &matchHandler{invites: invites}
}

// newMatchState builds the state for one match from the game config and runtime env.
func newMatchState(matchID string, cfg *config.GameConfig, env map[string]string, invites *app.InviteService, private bool) (*MatchState, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	svc := app.NewService(nil, rules)
	room, err := svc.NewRoom(matchID)
	if err != nil {
		return nil, err
	}
	level, err := bot.ParseLevel(cfg.BotLevel)
	if err != nil {
		level = bot.LevelNaive
	}

	state := &MatchState{
		Room:             room,
		App:              svc,
		Invites:          invites,
		Presences:        make(map[string]runtime.Presence),
		Bots:             make(map[string]*bot.Agent),
		MatchID:          matchID,
		Private:          private,
		BotsEnabled:      true,
		BotLevel:         level,
		BotMinDelay:      defaultBotMinDelayTicks,
		BotMaxDelay:      defaultBotMaxDelayTicks,
		BotAutoFillDelay: int(cfg.BotAutoFillDelay()/time.Second) * tickRate,
		BotAutoFillCount: cfg.BotAutoFillCount,
	}

	if val, ok := env["mascarpone_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["mascarpone_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			state.BotMinDelay = i * tickRate
		}
	}
	if val, ok := env["mascarpone_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			state.BotMaxDelay = i * tickRate
		}
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}
	return state, nil
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	private, _ := params[MatchLabelKey_Private].(bool)

	cfg := config.GetGameConfig()
	if err := cfg.ApplyEnv(env); err != nil {
		logger.Error("MatchInit: Invalid env override: %v", err)
		return nil, 0, ""
	}
	state, err := newMatchState(matchID, cfg, env, mh.invites, private)
	if err != nil {
		logger.Error("MatchInit: Failed to create room: %v", err)
		return nil, 0, ""
	}

	label, err := computeLabel(state).Marshal()
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	accepted, reason := mh.joinAllowed(matchState, presence.GetUserId(), metadata)
	if !accepted {
		logger.Debug("MatchJoinAttempt: Rejected %s: %s", presence.GetUserId(), reason)
	}
	return matchState, accepted, reason
}

func (mh *matchHandler) joinAllowed(state *MatchState, userID string, metadata map[string]string) (bool, string) {
	room := state.Room
	// Seated players may always come back to their seat.
	if _, seated := room.Players[userID]; seated {
		return true, ""
	}
	if room.Phase != domain.PhaseWaiting {
		return false, "Game in progress"
	}
	if state.Private {
		if state.Invites == nil {
			return false, "Invite required"
		}
		if err := state.Invites.Verify(metadata[MetadataInvite], state.MatchID); err != nil {
			return false, "Invite required"
		}
	}
	if len(room.Order) >= room.Rules.MaxPlayers && firstBot(room) == "" {
		return false, "Match full"
	}
	return true, ""
}

func firstBot(room *domain.Room) string {
	for _, id := range room.Order {
		if isBotUserId(id) {
			return id
		}
	}
	return ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	var events []app.Event
	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		events = append(events, mh.seatPresence(matchState, logger, p.GetUserId(), p.GetUsername())...)
	}
	mh.ensureOwner(matchState, logger)
	mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	return matchState
}

// seatPresence gives a joining human a seat, replacing a lobby bot when the room is full.
func (mh *matchHandler) seatPresence(state *MatchState, logger runtime.Logger, userID, username string) []app.Event {
	room := state.Room
	if _, seated := room.Players[userID]; seated {
		logger.Debug("MatchJoin: User %s returned to their seat.", userID)
		return nil
	}

	var events []app.Event
	if len(room.Order) >= room.Rules.MaxPlayers {
		if botID := firstBot(room); botID != "" {
			evs, err := state.App.Leave(room, botID)
			if err == nil {
				logger.Info("MatchJoin: Replacing bot %s with human %s", botID, userID)
				delete(state.Bots, botID)
				events = append(events, evs...)
			}
		}
	}

	if username == "" {
		username = "Anonymous"
	}
	evs, err := state.App.Join(room, userID, username)
	if err != nil {
		logger.Warn("MatchJoin: User %s joined but could not be seated: %v", userID, err)
		return events
	}
	return append(events, evs...)
}

// ensureOwner keeps the owner a connected human.
func (mh *matchHandler) ensureOwner(state *MatchState, logger runtime.Logger) {
	if state.OwnerID != "" && state.isConnectedHuman(state.OwnerID) {
		return
	}
	owner := state.findFirstHuman()
	if owner != state.OwnerID {
		state.OwnerID = owner
		if owner != "" {
			logger.Debug("Owner set to %s.", owner)
		}
	}
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	var events []app.Event
	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		// Mid-game leavers keep their seat and are played automatically.
		if matchState.Room.Phase == domain.PhaseWaiting {
			evs, err := matchState.App.Leave(matchState.Room, userID)
			if err != nil {
				logger.Warn("MatchLeave: Could not unseat %s: %v", userID, err)
				continue
			}
			events = append(events, evs...)
		}
		logger.Debug("MatchLeave: User %s left.", userID)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.ensureOwner(matchState, logger)
	mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		mh.handleMessage(ctx, matchState, dispatcher, logger, msg.GetUserId(), msg.GetOpCode(), msg.GetData())
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, opCode int64, data []byte) {
	if _, seated := state.Room.Players[senderID]; !seated {
		logger.Warn("handleMessage: Ignoring opcode %d from unseated user %s", opCode, senderID)
		return
	}

	var (
		events []app.Event
		err    error
	)
	switch opCode {
	case OpStartGame:
		events, err = mh.handleStartGame(state, logger, senderID)
	case OpDeclareTricks:
		events, err = mh.handleDeclareTricks(state, senderID, data)
	case OpPlayCard:
		events, err = mh.handlePlayCard(state, senderID, data)
	case OpNextRound:
		events, err = state.App.NextRound(state.Room)
	case OpAddBot:
		events, err = mh.handleAddBot(state, logger, senderID)
	case OpNewGame:
		events, err = mh.handleNewGame(state, logger, senderID)
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", opCode)
		return
	}

	if err != nil {
		logger.Warn("handleMessage: User %s opcode %d failed: %v", senderID, opCode, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handleStartGame(state *MatchState, logger runtime.Logger, senderID string) ([]app.Event, error) {
	logger.Info("StartGame: Request received from %s (owner=%s, seated=%d)", senderID, state.OwnerID, len(state.Room.Order))
	if senderID != state.OwnerID {
		return nil, ErrNotOwner
	}
	events, err := state.App.StartGame(state.Room)
	if err != nil {
		return nil, err
	}
	logger.Info("StartGame: Game started with %d players.", len(state.Room.Active))
	return events, nil
}

func (mh *matchHandler) handleDeclareTricks(state *MatchState, senderID string, data []byte) ([]app.Event, error) {
	req, err := decodeDeclare(data)
	if err != nil {
		return nil, err
	}
	return state.App.DeclareTricks(state.Room, senderID, req.Tricks)
}

func (mh *matchHandler) handlePlayCard(state *MatchState, senderID string, data []byte) ([]app.Event, error) {
	req, err := decodePlay(data)
	if err != nil {
		return nil, err
	}
	idx, err := resolveCardIndex(req, state.Room.Players[senderID].Hand)
	if err != nil {
		return nil, err
	}
	return state.App.PlayCard(state.Room, senderID, idx, req.AceLow)
}

func (mh *matchHandler) handleAddBot(state *MatchState, logger runtime.Logger, senderID string) ([]app.Event, error) {
	if senderID != state.OwnerID {
		return nil, ErrNotOwner
	}
	if !state.BotsEnabled {
		return nil, ErrBotsOff
	}
	return mh.addBot(state, logger)
}

func (mh *matchHandler) addBot(state *MatchState, logger runtime.Logger) ([]app.Event, error) {
	room := state.Room
	if room.Phase != domain.PhaseWaiting {
		return nil, domain.ErrWrongPhase
	}
	if len(room.Order) >= room.Rules.MaxPlayers {
		return nil, domain.ErrRoomFull
	}

	identity := state.nextBotIdentity()

	level := state.BotLevel
	if l, err := bot.ParseLevel(identity.Level); err == nil && identity.Level != "" {
		level = l
	}
	brain, err := bot.NewBrain(level, nil)
	if err != nil {
		return nil, err
	}
	name := identity.DisplayName
	if name == "" {
		name = identity.Username
	}
	events, err := state.App.Join(room, identity.UserID, name)
	if err != nil {
		return nil, err
	}
	state.Bots[identity.UserID] = &bot.Agent{ID: identity.UserID, Name: name, Strategy: brain}
	logger.Info("addBot: Added bot %s (%s)", name, identity.UserID)
	return events, nil
}

// nextBotIdentity picks a bot identity not already seated. Once the pool is
// exhausted it falls back to synthetic ids, which never repeat.
func (state *MatchState) nextBotIdentity() bot.BotIdentity {
	for i := 0; i < state.Room.Rules.MaxPlayers; i++ {
		identity := bot.Identity(state.nextBot)
		state.nextBot++
		if _, taken := state.Room.Players[identity.UserID]; !taken {
			return identity
		}
	}
	n := state.nextBot
	state.nextBot++
	return bot.BotIdentity{
		UserID:      fmt.Sprintf("bot-%d", n),
		DisplayName: fmt.Sprintf("Bot %d", n+1),
	}
}

// handleNewGame seats everyone still here in a fresh room after game over.
func (mh *matchHandler) handleNewGame(state *MatchState, logger runtime.Logger, senderID string) ([]app.Event, error) {
	if senderID != state.OwnerID {
		return nil, ErrNotOwner
	}
	if state.Room.Phase != domain.PhaseGameOver {
		return nil, domain.ErrWrongPhase
	}
	room, err := state.App.NewRoom(state.MatchID)
	if err != nil {
		return nil, err
	}

	var events []app.Event
	for _, id := range state.Room.Order {
		_, isBot := state.Bots[id]
		if !isBot && !state.isConnectedHuman(id) {
			continue
		}
		evs, err := state.App.Join(room, id, state.Room.Players[id].Name)
		if err != nil {
			logger.Warn("handleNewGame: Could not reseat %s: %v", id, err)
			continue
		}
		events = append(events, evs...)
	}
	state.Room = room
	state.BotWaitUntil = 0
	return events, nil
}

// automatedActor returns who must act now if that player is a bot or a human
// who left mid-game.
func (state *MatchState) automatedActor() (string, bool) {
	var id string
	switch state.Room.Phase {
	case domain.PhaseDeclaring:
		id = state.Room.CurrentDeclarer()
	case domain.PhasePlaying:
		id = state.Room.CurrentPlayer()
	default:
		return "", false
	}
	if id == "" {
		return "", false
	}
	if _, isBot := state.Bots[id]; isBot {
		return id, true
	}
	if _, connected := state.Presences[id]; !connected {
		return id, true
	}
	return "", false
}

// activeHumanConnected reports whether any still-active player is a connected human.
func (state *MatchState) activeHumanConnected() bool {
	for _, id := range state.Room.Active {
		if state.isConnectedHuman(id) {
			return true
		}
	}
	return false
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	room := state.Room

	// 1. Auto-fill lobby with bots if there's only one human player after delay
	if room.Phase == domain.PhaseWaiting && state.BotAutoFillDelay > 0 {
		if state.HumanCount() == 1 && len(room.Order) == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}
			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				var events []app.Event
				for i := 0; i < state.BotAutoFillCount; i++ {
					evs, err := mh.addBot(state, logger)
					if err != nil {
						break
					}
					events = append(events, evs...)
				}
				state.LastSinglePlayerTick = 0
				mh.dispatchEvents(ctx, state, dispatcher, logger, events)
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	// 2. Advance a settled round when no active human is around to do it.
	if room.Phase == domain.PhaseRoundEnd && !state.activeHumanConnected() {
		if mh.botReady(state, logger, "round_end") {
			events, err := state.App.NextRound(room)
			if err != nil {
				logger.Error("processBots: Failed to advance round: %v", err)
				return
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)
		}
		return
	}

	// 3. Handle automated turns in-game
	actor, ok := state.automatedActor()
	if !ok {
		state.BotWaitUntil = 0
		return
	}
	if !mh.botReady(state, logger, actor) {
		return
	}

	agent, exists := state.Bots[actor]
	if !exists {
		agent = &bot.Agent{ID: actor, Name: room.Players[actor].Name, Strategy: bot.NaiveBrain{}}
	}
	view, err := room.View(actor)
	if err != nil {
		logger.Error("processBots: No view for %s: %v", actor, err)
		return
	}

	var events []app.Event
	switch act := agent.Decide(view); act.Kind {
	case bot.ActionDeclare:
		events, err = state.App.DeclareTricks(room, actor, act.Tricks)
	case bot.ActionPlay:
		events, err = state.App.PlayCard(room, actor, act.CardIndex, act.AceLow)
	default:
		return
	}
	if err != nil {
		logger.Error("processBots: Bot %s made an illegal move: %v", actor, err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

// botReady arms a random delay on first call and reports when it has elapsed.
func (mh *matchHandler) botReady(state *MatchState, logger runtime.Logger, actor string) bool {
	if state.BotWaitUntil == 0 {
		delay := state.BotMinDelay
		if span := state.BotMaxDelay - state.BotMinDelay; span > 0 {
			delay += rand.Intn(span + 1)
		}
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: %s will act at tick %d (current %d)", actor, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return false
	}
	state.BotWaitUntil = 0
	return true
}

// dispatchEvents broadcasts events, refreshes the label, then sends every
// connected member their own view.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.sendViews(state, dispatcher, logger)
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}
	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if !ev.Broadcast() {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		// Targeted events for absent players or bots must not fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendViews sends each connected member their own projection of the room.
func (mh *matchHandler) sendViews(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, id := range state.Room.Order {
		presence, ok := state.Presences[id]
		if !ok {
			continue
		}
		view, err := state.Room.View(id)
		if err != nil {
			logger.Error("sendViews: No view for %s: %v", id, err)
			continue
		}
		bytes, err := json.Marshal(gameStateMessage{PlayerView: view, OwnerID: state.OwnerID})
		if err != nil {
			logger.Error("sendViews: Failed to marshal view: %v", err)
			continue
		}
		if err := dispatcher.BroadcastMessage(OpGameState, bytes, []runtime.Presence{presence}, nil, true); err != nil {
			logger.Error("sendViews: Failed to send view to %s: %v", id, err)
		}
	}
}

// gameStateMessage is the OpGameState payload.
type gameStateMessage struct {
	domain.PlayerView
	OwnerID string `json:"owner_id"`
}

// sendError sends an ErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	if err := dispatcher.BroadcastMessage(OpError, encodeError(err), []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := computeLabel(state).Marshal()
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
