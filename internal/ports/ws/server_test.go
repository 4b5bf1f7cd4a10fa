package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mascarpone/internal/app"
	"mascarpone/internal/bot"
	"mascarpone/internal/domain"
	"mascarpone/internal/ports"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	kinds    []app.EventKind
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	var ev publishedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.kinds = append(p.kinds, ev.Kind)
	return nil
}

func (p *recordingPublisher) snapshot() ([]string, []app.EventKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.channels...), append([]app.EventKind(nil), p.kinds...)
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// testClient drains its connection in the background so server writes never block.
type testClient struct {
	conn *websocket.Conn
	msgs chan inbound
}

type fixture struct {
	dir *app.Directory
	pub *recordingPublisher
	srv *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := app.NewDirectory(app.NewService(rand.New(rand.NewSource(7)), domain.DefaultRules()))
	pub := &recordingPublisher{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := echo.New()
	NewServer(dir, pub, logger).Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &fixture{dir: dir, pub: pub, srv: srv}
}

func (f *fixture) dial(t *testing.T) *testClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(f.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	tc := &testClient{conn: conn, msgs: make(chan inbound, 4096)}
	go func() {
		defer close(tc.msgs)
		for {
			var msg inbound
			if err := wsjson.Read(context.Background(), conn, &msg); err != nil {
				return
			}
			tc.msgs <- msg
		}
	}()
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return tc
}

func (tc *testClient) send(t *testing.T, msg ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, tc.conn, msg))
}

// expect skips frames until one of type typ arrives and decodes it into out.
func (tc *testClient) expect(t *testing.T, typ string, out interface{}) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-tc.msgs:
			require.True(t, ok, "connection closed while waiting for %s", typ)
			if msg.Type != typ {
				continue
			}
			if out != nil {
				require.NoError(t, json.Unmarshal(msg.Data, out))
			}
			return
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func intPtr(v int) *int { return &v }

// progress fingerprints a view so tests can wait for the server to apply a move.
func progress(v domain.PlayerView) string {
	return fmt.Sprintf("%s/%d/%d/%d/%d/%s", v.Phase, v.Round, v.Trick, len(v.Pile), v.TotalDeclared, v.CurrentTurn)
}

func (f *fixture) waitForChange(t *testing.T, roomID, playerID, before string) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, err := f.dir.PlayerView(roomID, playerID)
		return err == nil && progress(v) != before
	}, 5*time.Second, 5*time.Millisecond)
}

func createAndJoin(t *testing.T, f *fixture, names ...string) (string, map[string]*testClient) {
	t.Helper()
	host := f.dial(t)
	host.send(t, ClientMessage{Type: TypeCreateRoom})
	var created RoomCreated
	host.expect(t, TypeRoomCreated, &created)
	require.NotEmpty(t, created.RoomID)

	clients := make(map[string]*testClient)
	for i, name := range names {
		tc := host
		if i > 0 {
			tc = f.dial(t)
		}
		tc.send(t, ClientMessage{Type: TypeJoinRoom, RoomID: created.RoomID, PlayerName: name})
		var joined Joined
		tc.expect(t, TypeJoined, &joined)
		require.Equal(t, created.RoomID, joined.RoomID)
		clients[joined.PlayerID] = tc
	}
	return created.RoomID, clients
}

func TestHealthAndRoomLookup(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.srv.URL + "/rooms/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	roomID, _ := createAndJoin(t, f, "alice")
	resp, err = http.Get(f.srv.URL + "/rooms/" + roomID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RoomID  string       `json:"room_id"`
		Phase   domain.Phase `json:"phase"`
		Players []string     `json:"players"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, roomID, body.RoomID)
	assert.Equal(t, domain.PhaseWaiting, body.Phase)
	assert.Len(t, body.Players, 1)
}

func TestJoinSendsEveryMemberTheirOwnState(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice", "bob")

	for id, tc := range clients {
		var view domain.PlayerView
		tc.expect(t, TypeGameState, &view)
		assert.Equal(t, roomID, view.RoomID)
		assert.Equal(t, id, view.PlayerID)
	}
}

func TestErrorsGoToTheSender(t *testing.T) {
	f := newFixture(t)
	tc := f.dial(t)

	tests := []struct {
		msg  ClientMessage
		code string
	}{
		{ClientMessage{Type: TypeJoinRoom}, "bad_request"},
		{ClientMessage{Type: TypeJoinRoom, RoomID: "nope"}, "unknown_room"},
		{ClientMessage{Type: TypeStartGame, RoomID: "nope"}, "unknown_room"},
		{ClientMessage{Type: TypeDeclareTricks, RoomID: "nope"}, "bad_request"},
		{ClientMessage{Type: TypePlayCard, RoomID: "nope"}, "bad_request"},
		{ClientMessage{Type: "dance"}, "bad_request"},
	}
	for _, tt := range tests {
		tc.send(t, tt.msg)
		var em ErrorMessage
		tc.expect(t, TypeError, &em)
		assert.Equal(t, tt.code, em.Code, "message %+v", tt.msg)
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice")
	for _, tc := range clients {
		tc.send(t, ClientMessage{Type: TypeStartGame, RoomID: roomID})
		var em ErrorMessage
		tc.expect(t, TypeError, &em)
		assert.Equal(t, "not_enough_players", em.Code)
	}
}

func TestLeaveRoomEmptiesAndDropsIt(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice")
	for _, tc := range clients {
		tc.send(t, ClientMessage{Type: TypeLeaveRoom})
	}
	require.Eventually(t, func() bool {
		_, err := f.dir.Phase(roomID)
		return err != nil
	}, 5*time.Second, 5*time.Millisecond)
}

// playToGameOver drives every seat with the naive brain until the game ends.
func playToGameOver(t *testing.T, f *fixture, roomID string, clients map[string]*testClient) {
	t.Helper()
	var anyID string
	for id := range clients {
		anyID = id
		break
	}
	before := func() string {
		v, err := f.dir.PlayerView(roomID, anyID)
		require.NoError(t, err)
		return progress(v)
	}

	b := before()
	clients[anyID].send(t, ClientMessage{Type: TypeStartGame})
	f.waitForChange(t, roomID, anyID, b)

	brain := bot.NaiveBrain{}
	for moves := 0; moves < 1000; moves++ {
		phase, err := f.dir.Phase(roomID)
		require.NoError(t, err)
		if phase == domain.PhaseGameOver {
			return
		}

		b = before()
		if phase == domain.PhaseRoundEnd {
			clients[anyID].send(t, ClientMessage{Type: TypeNextRound})
			f.waitForChange(t, roomID, anyID, b)
			continue
		}

		views, err := f.dir.Views(roomID)
		require.NoError(t, err)
		var acted bool
		for id, v := range views {
			if !v.YourTurn {
				continue
			}
			agent := &bot.Agent{ID: id, Strategy: brain}
			act := agent.Decide(v)
			switch act.Kind {
			case bot.ActionDeclare:
				clients[id].send(t, ClientMessage{Type: TypeDeclareTricks, Tricks: intPtr(act.Tricks)})
			case bot.ActionPlay:
				clients[id].send(t, ClientMessage{Type: TypePlayCard, CardIndex: intPtr(act.CardIndex), AceLow: act.AceLow})
			}
			acted = true
			break
		}
		require.True(t, acted, "nobody could move in phase %s", phase)
		f.waitForChange(t, roomID, anyID, b)
	}
	t.Fatalf("game did not finish")
}

func closeAll(clients map[string]*testClient) {
	for _, tc := range clients {
		tc.conn.Close(websocket.StatusNormalClosure, "")
	}
}

func TestPlaysAGameOverTheWire(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice", "bob", "carol")
	playToGameOver(t, f, roomID, clients)

	phase, err := f.dir.Phase(roomID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseGameOver, phase)

	for _, tc := range clients {
		tc.expect(t, TypeTrickResult, nil)
		tc.expect(t, TypeRoundResult, nil)
		var over GameOver
		tc.expect(t, TypeGameOver, &over)
		assert.NotZero(t, over.Rounds)
	}

	channels, kinds := f.pub.snapshot()
	require.NotEmpty(t, channels)
	for _, ch := range channels {
		assert.Equal(t, ports.RoomChannel(roomID), ch)
	}
	assert.NotContains(t, kinds, app.EventHandDealt)
	assert.Contains(t, kinds, app.EventGameEnded)
}

func TestFinishedRoomIsRemovedOnceEveryoneDisconnects(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice", "bob")
	playToGameOver(t, f, roomID, clients)

	closeAll(clients)
	require.Eventually(t, func() bool { return f.dir.Len() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestRunningRoomIsRemovedOnceEveryoneDisconnects(t *testing.T) {
	f := newFixture(t)
	roomID, clients := createAndJoin(t, f, "alice", "bob")

	var first *testClient
	for _, tc := range clients {
		first = tc
		break
	}
	first.send(t, ClientMessage{Type: TypeStartGame, RoomID: roomID})
	require.Eventually(t, func() bool {
		phase, err := f.dir.Phase(roomID)
		return err == nil && phase == domain.PhaseDeclaring
	}, 5*time.Second, 5*time.Millisecond)

	first.conn.Close(websocket.StatusNormalClosure, "")
	// The remaining member keeps the game alive.
	time.Sleep(50 * time.Millisecond)
	phase, err := f.dir.Phase(roomID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDeclaring, phase)

	closeAll(clients)
	require.Eventually(t, func() bool { return f.dir.Len() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestOutsidersCannotDriveARoom(t *testing.T) {
	f := newFixture(t)
	roomID, _ := createAndJoin(t, f, "alice", "bob")

	outsider := f.dial(t)
	for _, typ := range []string{TypeStartGame, TypeNextRound} {
		outsider.send(t, ClientMessage{Type: typ, RoomID: roomID})
		var em ErrorMessage
		outsider.expect(t, TypeError, &em)
		assert.Equal(t, "unknown_player", em.Code, typ)
	}

	phase, err := f.dir.Phase(roomID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseWaiting, phase)
}
