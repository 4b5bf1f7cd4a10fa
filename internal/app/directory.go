package app

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mascarpone/internal/domain"
)

var (
	ErrUnknownRoom     = errors.New("room not found")
	ErrRoomIDExhausted = errors.New("could not allocate a unique room id")
)

type roomEntry struct {
	mu   sync.Mutex
	room *domain.Room
}

// Directory owns every live room of a standalone server. The directory lock
// guards only the id map; each room serializes on its own lock.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry

	svc   *Service // room creation runs under mu
	newID func() string
}

// NewDirectory returns an empty directory creating rooms through svc.
func NewDirectory(svc *Service) *Directory {
	return &Directory{
		rooms: make(map[string]*roomEntry),
		svc:   svc,
		newID: func() string { return uuid.NewString()[:RoomIDLength] },
	}
}

// CreateRoom registers a new waiting room and returns its id.
func (d *Directory) CreateRoom() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		id := d.newID()
		if _, taken := d.rooms[id]; taken {
			continue
		}
		room, err := d.svc.NewRoom(id)
		if err != nil {
			return "", err
		}
		d.rooms[id] = &roomEntry{room: room}
		return id, nil
	}
	return "", ErrRoomIDExhausted
}

// RemoveRoom drops a room; it reports whether the id was registered.
func (d *Directory) RemoveRoom(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[id]; !ok {
		return false
	}
	delete(d.rooms, id)
	return true
}

// Rooms lists registered room ids in sorted order.
func (d *Directory) Rooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *Directory) entry(id string) (*roomEntry, error) {
	d.mu.RLock()
	e, ok := d.rooms[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	return e, nil
}

// withRoom runs fn while holding the room's lock.
func (d *Directory) withRoom(id string, fn func(*domain.Room) ([]Event, error)) ([]Event, error) {
	e, err := d.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

func (d *Directory) AddPlayer(roomID, playerID, name string) ([]Event, error) {
	return d.withRoom(roomID, func(r *domain.Room) ([]Event, error) {
		return d.svc.Join(r, playerID, name)
	})
}

func (d *Directory) RemovePlayer(roomID, playerID string) ([]Event, error) {
	return d.withRoom(roomID, func(r *domain.Room) ([]Event, error) {
		return d.svc.Leave(r, playerID)
	})
}

func (d *Directory) StartGame(roomID string) ([]Event, error) {
	return d.withRoom(roomID, d.svc.StartGame)
}

func (d *Directory) DeclareTricks(roomID, playerID string, n int) ([]Event, error) {
	return d.withRoom(roomID, func(r *domain.Room) ([]Event, error) {
		return d.svc.DeclareTricks(r, playerID, n)
	})
}

func (d *Directory) PlayCard(roomID, playerID string, cardIndex int, aceLow bool) ([]Event, error) {
	return d.withRoom(roomID, func(r *domain.Room) ([]Event, error) {
		return d.svc.PlayCard(r, playerID, cardIndex, aceLow)
	})
}

func (d *Directory) NextRound(roomID string) ([]Event, error) {
	return d.withRoom(roomID, d.svc.NextRound)
}

// PlayerView projects one room for one player.
func (d *Directory) PlayerView(roomID, playerID string) (domain.PlayerView, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return domain.PlayerView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.View(playerID)
}

// Views returns every joined player's view, taken under a single lock so the
// fan-out after a mutation is consistent.
func (d *Directory) Views(roomID string) (map[string]domain.PlayerView, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	views := make(map[string]domain.PlayerView, len(e.room.Order))
	for _, id := range e.room.Order {
		v, err := e.room.View(id)
		if err != nil {
			return nil, err
		}
		views[id] = v
	}
	return views, nil
}

// Members lists the joined players of a room in join order.
func (d *Directory) Members(roomID string) ([]string, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.room.Order...), nil
}

// Phase returns a room's current phase.
func (d *Directory) Phase(roomID string) (domain.Phase, error) {
	e, err := d.entry(roomID)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.Phase, nil
}
