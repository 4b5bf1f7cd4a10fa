package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"mascarpone/internal/app"
	"mascarpone/internal/domain"
	"mascarpone/internal/ports"
)

const defaultWriteTimeout = 5 * time.Second

// client is one WebSocket connection. Each connection is one player.
type client struct {
	id   string
	conn *websocket.Conn
	room string // guarded by Server.mu
}

// Server exposes an app.Directory over JSON WebSocket frames.
type Server struct {
	dir *app.Directory
	pub ports.EventPublisher
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]*client

	WriteTimeout time.Duration
	// AcceptOptions is passed to websocket.Accept; nil uses same-origin checks.
	AcceptOptions *websocket.AcceptOptions
}

// NewServer returns a server over dir. A nil pub disables event publishing.
func NewServer(dir *app.Directory, pub ports.EventPublisher, log logrus.FieldLogger) *Server {
	if pub == nil {
		pub = ports.NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		dir:          dir,
		pub:          pub,
		log:          log,
		clients:      make(map[string]*client),
		WriteTimeout: defaultWriteTimeout,
	}
}

// Register mounts the server's routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/ws", s.handleWS)
	e.GET("/healthz", s.handleHealth)
	e.GET("/rooms", s.handleRooms)
	e.GET("/rooms/:id", s.handleRoom)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"rooms": s.dir.Rooms()})
}

func (s *Server) handleRoom(c echo.Context) error {
	id := c.Param("id")
	phase, err := s.dir.Phase(id)
	if errors.Is(err, app.ErrUnknownRoom) {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}
	if err != nil {
		return err
	}
	members, err := s.dir.Members(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"room_id": id,
		"phase":   phase,
		"players": members,
	})
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), s.AcceptOptions)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return nil
	}
	defer conn.CloseNow()

	cl := &client{id: uuid.NewString(), conn: conn}
	s.mu.Lock()
	s.clients[cl.id] = cl
	s.mu.Unlock()

	log := s.log.WithField("player", cl.id)
	log.Info("client connected")
	defer s.disconnect(cl)

	ctx := c.Request().Context()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info("client disconnected")
			default:
				log.WithError(err).Debug("read failed")
			}
			return nil
		}
		s.handle(ctx, cl, msg)
	}
}

// disconnect forgets the connection. A waiting room frees the seat; a room
// none of whose members is still connected is removed whatever its phase.
func (s *Server) disconnect(cl *client) {
	s.mu.Lock()
	delete(s.clients, cl.id)
	roomID := cl.room
	s.mu.Unlock()

	if roomID == "" {
		return
	}
	if phase, err := s.dir.Phase(roomID); err == nil && phase == domain.PhaseWaiting {
		if events, err := s.dir.RemovePlayer(roomID, cl.id); err == nil {
			s.afterChange(roomID, events)
		}
	}
	s.dropIfAbandoned(roomID)
}

// dropIfAbandoned removes a room once no live connection is attached to it.
// Connection ids are never reused, so such a room can never be resumed.
func (s *Server) dropIfAbandoned(roomID string) {
	members, err := s.dir.Members(roomID)
	if err != nil {
		return
	}
	s.mu.RLock()
	for _, cl := range s.clients {
		if cl.room == roomID {
			s.mu.RUnlock()
			return
		}
	}
	s.mu.RUnlock()
	if s.dir.RemoveRoom(roomID) {
		s.log.WithFields(logrus.Fields{"room": roomID, "members": len(members)}).Info("removed abandoned room")
	}
}

// member rejects players not seated in roomID.
func (s *Server) member(roomID, playerID string) error {
	members, err := s.dir.Members(roomID)
	if err != nil {
		return err
	}
	for _, id := range members {
		if id == playerID {
			return nil
		}
	}
	return fmt.Errorf("%w: not a member of room %s", domain.ErrUnknownPlayer, roomID)
}

func (s *Server) roomOf(cl *client, msg ClientMessage) string {
	if msg.RoomID != "" {
		return msg.RoomID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cl.room
}

func (s *Server) setRoom(cl *client, roomID string) {
	s.mu.Lock()
	cl.room = roomID
	s.mu.Unlock()
}

// attach points cl at roomID and releases the room it was attached to before.
func (s *Server) attach(cl *client, roomID string) {
	s.mu.Lock()
	previous := cl.room
	cl.room = roomID
	s.mu.Unlock()

	if previous == "" || previous == roomID {
		return
	}
	if evs, err := s.dir.RemovePlayer(previous, cl.id); err == nil {
		s.afterChange(previous, evs)
	}
	s.dropIfAbandoned(previous)
}

func (s *Server) handle(ctx context.Context, cl *client, msg ClientMessage) {
	log := s.log.WithFields(logrus.Fields{"player": cl.id, "type": msg.Type})

	var (
		roomID = s.roomOf(cl, msg)
		events []app.Event
		err    error
	)
	switch msg.Type {
	case TypeCreateRoom:
		roomID, err = s.dir.CreateRoom()
		if err == nil {
			s.attach(cl, roomID)
			log.WithField("room", roomID).Info("room created")
			s.send(cl, TypeRoomCreated, RoomCreated{RoomID: roomID})
		}
		s.reportError(cl, log, err)
		return
	case TypeJoinRoom:
		s.join(cl, log, msg)
		return
	case TypeLeaveRoom:
		events, err = s.dir.RemovePlayer(roomID, cl.id)
		if err == nil {
			s.setRoom(cl, "")
			defer s.dropIfAbandoned(roomID)
		}
	case TypeStartGame:
		if err = s.member(roomID, cl.id); err == nil {
			events, err = s.dir.StartGame(roomID)
		}
	case TypeDeclareTricks:
		if msg.Tricks == nil {
			err = fmt.Errorf("%w: tricks is required", errBadRequest)
			break
		}
		events, err = s.dir.DeclareTricks(roomID, cl.id, *msg.Tricks)
	case TypePlayCard:
		if msg.CardIndex == nil {
			err = fmt.Errorf("%w: card_index is required", errBadRequest)
			break
		}
		events, err = s.dir.PlayCard(roomID, cl.id, *msg.CardIndex, msg.AceLow)
	case TypeNextRound:
		if err = s.member(roomID, cl.id); err == nil {
			events, err = s.dir.NextRound(roomID)
		}
	default:
		err = fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type)
	}

	if err != nil {
		s.reportError(cl, log.WithField("room", roomID), err)
		return
	}
	s.afterChange(roomID, events)
}

func (s *Server) join(cl *client, log logrus.FieldLogger, msg ClientMessage) {
	if msg.RoomID == "" {
		s.reportError(cl, log, fmt.Errorf("%w: room_id is required", errBadRequest))
		return
	}
	name := msg.PlayerName
	if name == "" {
		name = "Anonymous"
	}
	log = log.WithField("room", msg.RoomID)

	events, err := s.dir.AddPlayer(msg.RoomID, cl.id, name)
	if errors.Is(err, domain.ErrAlreadyJoined) {
		s.send(cl, TypeJoined, Joined{RoomID: msg.RoomID, PlayerID: cl.id})
		if view, err := s.dir.PlayerView(msg.RoomID, cl.id); err == nil {
			s.send(cl, TypeGameState, view)
		}
		return
	}
	if err != nil {
		s.reportError(cl, log, err)
		return
	}

	s.attach(cl, msg.RoomID)

	log.WithField("name", name).Info("player joined")
	s.send(cl, TypeJoined, Joined{RoomID: msg.RoomID, PlayerID: cl.id})
	s.afterChange(msg.RoomID, events)
}

func (s *Server) reportError(cl *client, log logrus.FieldLogger, err error) {
	if err == nil {
		return
	}
	log.WithError(err).Debug("request rejected")
	s.send(cl, TypeError, ErrorMessage{Code: errorCode(err), Message: err.Error()})
}

// afterChange publishes room events, sends the result frames, then gives
// every connected member their own view.
func (s *Server) afterChange(roomID string, events []app.Event) {
	views, err := s.dir.Views(roomID)
	if err != nil {
		s.log.WithError(err).WithField("room", roomID).Warn("no views after change")
		return
	}
	names := playerNames(views)
	members := s.connected(views)

	for _, ev := range events {
		s.publish(roomID, ev)

		var typ string
		var data interface{}
		switch p := ev.Payload.(type) {
		case app.TrickCompletedPayload:
			typ = TypeTrickResult
			data = TrickResult{Winner: p.Trick.WinnerID, WinnerName: names[p.Trick.WinnerID], Trick: p.Trick}
		case app.RoundCompletedPayload:
			typ = TypeRoundResult
			data = RoundResult{RoundSummary: p.Summary, Eliminated: p.Summary.Eliminated}
		case app.GameEndedPayload:
			typ = TypeGameOver
			data = GameOver{Winner: p.WinnerID, WinnerName: names[p.WinnerID], Rounds: p.Rounds, History: p.History}
		default:
			continue
		}
		for _, cl := range members {
			if ev.VisibleTo(cl.id) {
				s.send(cl, typ, data)
			}
		}
	}

	for _, cl := range members {
		s.send(cl, TypeGameState, views[cl.id])
	}
}

// connected returns the live connections among a room's members.
func (s *Server) connected(views map[string]domain.PlayerView) []*client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*client, 0, len(views))
	for id := range views {
		if cl, ok := s.clients[id]; ok {
			out = append(out, cl)
		}
	}
	return out
}

func playerNames(views map[string]domain.PlayerView) map[string]string {
	names := make(map[string]string)
	for _, v := range views {
		for _, o := range v.Players {
			names[o.ID] = o.Name
		}
	}
	return names
}

// publish forwards public events; private ones such as dealt hands stay local.
func (s *Server) publish(roomID string, ev app.Event) {
	if !ev.Broadcast() {
		return
	}
	payload, err := json.Marshal(publishedEvent{RoomID: roomID, Kind: ev.Kind, Payload: ev.Payload})
	if err != nil {
		s.log.WithError(err).Error("marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.WriteTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, ports.RoomChannel(roomID), payload); err != nil {
		s.log.WithError(err).WithField("room", roomID).Warn("publish failed")
	}
}

func (s *Server) send(cl *client, typ string, data interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.WriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, cl.conn, ServerMessage{Type: typ, Data: data}); err != nil {
		s.log.WithError(err).WithField("player", cl.id).Debug("write failed")
	}
}
