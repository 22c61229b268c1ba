// internal/room/manager.go
package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the manager needs: one hash per room with
// type, player set and game state fields, TTL refreshed on every write.
// Implemented by store.RoomStore; tests substitute an in-memory fake.
type Store interface {
	CreateRoom(ctx context.Context, id, roomType string) error
	RoomExists(ctx context.Context, id string) (bool, error)
	GetType(ctx context.Context, id string) (string, error)
	GetPlayers(ctx context.Context, id string) ([]string, error)
	GetState(ctx context.Context, id string) (GameState, bool, error)
	SetPlayers(ctx context.Context, id string, players []string) error
	SetState(ctx context.Context, id string, st GameState) error
	RefreshExpiry(ctx context.Context, id string) error
	DeleteRoom(ctx context.Context, id string) error
	ScanRoomIDs(ctx context.Context) ([]string, error)
}

// RoomSummary is one row of the public room listing.
type RoomSummary struct {
	RoomID      string `json:"room_id"`
	PlayerCount int    `json:"player_count"`
}

// Manager owns the room lifecycle: create, join, list, state application and
// the deletion decision. It holds no in-memory room state of its own; the
// store is the single source of truth so any instance can serve any room.
type Manager struct {
	store Store
	log   *logrus.Logger
}

func NewManager(store Store, log *logrus.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Create generates a fresh room with an empty default state and returns its id.
func (m *Manager) Create(ctx context.Context, roomType string) (string, error) {
	if roomType != TypePublic && roomType != TypePrivate {
		return "", fmt.Errorf("invalid room type %q", roomType)
	}
	id := uuid.NewString()
	if err := m.store.CreateRoom(ctx, id, roomType); err != nil {
		return "", err
	}
	m.log.Infof("room %s created (type=%s)", id, roomType)
	return id, nil
}

// Exists reports whether the room has a store entry.
func (m *Manager) Exists(ctx context.Context, roomID string) (bool, error) {
	return m.store.RoomExists(ctx, roomID)
}

// Join adds playerID to the room's player set. A room whose game has ended is
// recycled first: player set and state are reset to defaults, then the joiner
// is admitted. The set never holds duplicates and never exceeds MaxPlayers.
func (m *Manager) Join(ctx context.Context, roomID, playerID string) error {
	exists, err := m.store.RoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}

	st, present, err := m.store.GetState(ctx, roomID)
	if err != nil {
		return err
	}
	players, err := m.store.GetPlayers(ctx, roomID)
	if err != nil {
		return err
	}

	if present && phaseOf(st) == PhaseGameOver {
		// Game-over recycling: the next joiner reuses the room id for a new
		// game instead of needing a fresh room.
		players = nil
		if err := m.store.SetState(ctx, roomID, DefaultState()); err != nil {
			return err
		}
		m.log.Infof("room %s recycled on join by %s", roomID, playerID)
	}

	for _, p := range players {
		if p == playerID {
			return ErrPlayerAlreadyInRoom
		}
	}
	if len(players) >= MaxPlayers {
		return ErrRoomFull
	}

	return m.store.SetPlayers(ctx, roomID, append(players, playerID))
}

// ListPublic enumerates public rooms. As a side effect it garbage-collects any
// public room that already satisfies the deletion predicate (listing sees no
// live connections, so the count is taken as zero).
func (m *Manager) ListPublic(ctx context.Context) ([]RoomSummary, error) {
	ids, err := m.store.ScanRoomIDs(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		roomType, err := m.store.GetType(ctx, id)
		if err != nil {
			return nil, err
		}
		if roomType != TypePublic {
			continue
		}
		st, _, err := m.store.GetState(ctx, id)
		if err != nil {
			return nil, err
		}
		players, err := m.store.GetPlayers(ctx, id)
		if err != nil {
			return nil, err
		}
		if shouldDelete(phaseOf(st), players, 0) {
			if err := m.store.DeleteRoom(ctx, id); err != nil {
				return nil, err
			}
			m.log.Infof("room %s reaped during listing", id)
			continue
		}
		summaries = append(summaries, RoomSummary{RoomID: id, PlayerCount: len(players)})
	}
	return summaries, nil
}

// ApplyState persists an authoritative snapshot from the engine. An unknown
// room is bootstrapped as a default public room first (the engine may push
// state before an explicit create). The player set is recomputed from the
// snapshot's alive players; if the deletion predicate holds the room is
// removed instead and deleted=true is reported so the caller can still
// broadcast the final snapshot before cleanup.
func (m *Manager) ApplyState(ctx context.Context, roomID string, st GameState, liveConns int) (deleted bool, err error) {
	exists, err := m.store.RoomExists(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := m.store.CreateRoom(ctx, roomID, TypePublic); err != nil {
			return false, err
		}
		m.log.Infof("room %s bootstrapped from engine state push", roomID)
	}

	playerIDs := AlivePlayerIDs(st)
	if shouldDelete(phaseOf(st), playerIDs, liveConns) {
		if err := m.store.DeleteRoom(ctx, roomID); err != nil {
			return false, err
		}
		m.log.Infof("room %s deleted (game over, no players left)", roomID)
		return true, nil
	}

	if err := m.store.SetPlayers(ctx, roomID, playerIDs); err != nil {
		return false, err
	}
	if err := m.store.SetState(ctx, roomID, st); err != nil {
		return false, err
	}
	return false, nil
}

// Reap re-evaluates the deletion predicate against the persisted state, used
// by disconnect cleanup once a room's connection set has emptied.
func (m *Manager) Reap(ctx context.Context, roomID string, liveConns int) (deleted bool, err error) {
	exists, err := m.store.RoomExists(ctx, roomID)
	if err != nil || !exists {
		return false, err
	}
	st, present, err := m.store.GetState(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}
	players, err := m.store.GetPlayers(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !shouldDelete(phaseOf(st), players, liveConns) {
		return false, nil
	}
	if err := m.store.DeleteRoom(ctx, roomID); err != nil {
		return false, err
	}
	m.log.Infof("room %s deleted after last disconnect", roomID)
	return true, nil
}

// CheckReset reports whether clients should treat the room as reset: no state
// yet, no players in the snapshot, or every listed player dead.
func (m *Manager) CheckReset(ctx context.Context, roomID string) (bool, error) {
	st, present, err := m.store.GetState(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !present || len(st.Players) == 0 {
		return true, nil
	}
	return len(AlivePlayerIDs(st)) == 0, nil
}

// LoadState returns the room's persisted snapshot, or the empty default when
// the room has none (including rooms that do not exist).
func (m *Manager) LoadState(ctx context.Context, roomID string) (GameState, error) {
	st, present, err := m.store.GetState(ctx, roomID)
	if err != nil {
		return GameState{}, err
	}
	if !present {
		return DefaultState(), nil
	}
	return st, nil
}

// Players returns the room's current player set (metadata, not state players).
func (m *Manager) Players(ctx context.Context, roomID string) ([]string, error) {
	return m.store.GetPlayers(ctx, roomID)
}
