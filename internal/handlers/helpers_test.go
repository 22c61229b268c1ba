// internal/handlers/helpers_test.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/glowrace/relay/internal/engine"
	"github.com/glowrace/relay/internal/room"
)

// memStore is a minimal in-memory room.Store for handler tests.
type memStore struct {
	mu    sync.Mutex
	rooms map[string]*memRoom
}

type memRoom struct {
	roomType string
	players  []string
	state    *room.GameState
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]*memRoom)}
}

func (m *memStore) CreateRoom(ctx context.Context, id, roomType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := room.DefaultState()
	m.rooms[id] = &memRoom{roomType: roomType, players: []string{}, state: &st}
	return nil
}

func (m *memStore) RoomExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[id]
	return ok, nil
}

func (m *memStore) GetType(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[id]; ok {
		return rm.roomType, nil
	}
	return "", nil
}

func (m *memStore) GetPlayers(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[id]; ok {
		return append([]string(nil), rm.players...), nil
	}
	return nil, nil
}

func (m *memStore) GetState(ctx context.Context, id string) (room.GameState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[id]; ok && rm.state != nil {
		return *rm.state, true, nil
	}
	return room.GameState{}, false, nil
}

func (m *memStore) SetPlayers(ctx context.Context, id string, players []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[id]; ok {
		rm.players = append([]string(nil), players...)
	}
	return nil
}

func (m *memStore) SetState(ctx context.Context, id string, st room.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm, ok := m.rooms[id]; ok {
		rm.state = &st
	}
	return nil
}

func (m *memStore) RefreshExpiry(ctx context.Context, id string) error { return nil }

func (m *memStore) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	return nil
}

func (m *memStore) ScanRoomIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeEngine answers every forward with a canned state (or error) and records
// the actions it saw.
type fakeEngine struct {
	mu    sync.Mutex
	calls []engine.Action
	state room.GameState
	err   error
}

func (f *fakeEngine) Forward(ctx context.Context, a engine.Action) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a)
	if f.err != nil {
		return nil, f.err
	}
	data, err := json.Marshal(f.state)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *fakeEngine) setResponse(st room.GameState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
	f.err = err
}

func (f *fakeEngine) actions() []engine.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Action(nil), f.calls...)
}

func newTestRelay(t *testing.T) (*RelayServer, *memStore, *fakeEngine) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	ms := newMemStore()
	fe := &fakeEngine{state: room.DefaultState()}
	srv := NewRelayServer(room.NewManager(ms, logger), room.NewRegistry(logger), fe, logger)
	return srv, ms, fe
}

func aliveState(ids ...string) room.GameState {
	st := room.GameState{Players: []room.PlayerState{}, GlowPoints: []room.Position{}}
	for _, id := range ids {
		st.Players = append(st.Players, room.PlayerState{ID: id, Name: "Player " + id, Alive: true})
	}
	return st
}
