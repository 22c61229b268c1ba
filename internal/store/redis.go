// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowrace/relay/internal/room"
)

// Rooms are stored as one Redis hash per room under "room:<id>" with fields
// type, players (JSON array of ids) and game_state (JSON object). Every write
// refreshes the room's TTL so an untouched room eventually expires on its own.
const (
	keyPrefix = "room:"

	fieldType    = "type"
	fieldPlayers = "players"
	fieldState   = "game_state"
)

// DefaultTTL is the room expiry applied when none is configured.
const DefaultTTL = time.Hour

// RoomStore is the typed Redis adapter behind the room manager. It implements
// room.Store.
type RoomStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect dials Redis and verifies it with a bounded ping.
func Connect(addr string, db int, ttl time.Duration) (*RoomStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &RoomStore{rdb: rdb, ttl: ttl}, nil
}

// New wraps an existing client; used by tests pointed at a disposable DB.
func New(rdb *redis.Client, ttl time.Duration) *RoomStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RoomStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// unavailable tags an infra failure with room.ErrStoreUnavailable so callers
// can match it without depending on go-redis error types.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", room.ErrStoreUnavailable, op, err)
}

// CreateRoom writes the room hash with an empty default state and arms the TTL.
func (s *RoomStore) CreateRoom(ctx context.Context, id, roomType string) error {
	stateJSON, err := json.Marshal(room.DefaultState())
	if err != nil {
		return fmt.Errorf("encode default state: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key(id),
		fieldType, roomType,
		fieldPlayers, "[]",
		fieldState, string(stateJSON),
	)
	pipe.Expire(ctx, key(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("create room "+id, err)
	}
	return nil
}

// RoomExists reports whether the room's hash is present.
func (s *RoomStore) RoomExists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(id)).Result()
	if err != nil {
		return false, unavailable("exists "+id, err)
	}
	return n > 0, nil
}

// GetType returns the room's type field, or "" when absent.
func (s *RoomStore) GetType(ctx context.Context, id string) (string, error) {
	v, err := s.rdb.HGet(ctx, key(id), fieldType).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("get type "+id, err)
	}
	return v, nil
}

// GetPlayers returns the room's player id set, or nil when absent.
func (s *RoomStore) GetPlayers(ctx context.Context, id string) ([]string, error) {
	v, err := s.rdb.HGet(ctx, key(id), fieldPlayers).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get players "+id, err)
	}
	var players []string
	if err := json.Unmarshal([]byte(v), &players); err != nil {
		return nil, fmt.Errorf("decode players for %s: %w", id, err)
	}
	return players, nil
}

// GetState returns the room's persisted snapshot; present=false when the
// field (or the whole room) is absent.
func (s *RoomStore) GetState(ctx context.Context, id string) (room.GameState, bool, error) {
	v, err := s.rdb.HGet(ctx, key(id), fieldState).Result()
	if errors.Is(err, redis.Nil) {
		return room.GameState{}, false, nil
	}
	if err != nil {
		return room.GameState{}, false, unavailable("get state "+id, err)
	}
	var st room.GameState
	if err := json.Unmarshal([]byte(v), &st); err != nil {
		return room.GameState{}, false, fmt.Errorf("decode game_state for %s: %w", id, err)
	}
	return st, true, nil
}

// SetPlayers overwrites the player set and refreshes the TTL.
func (s *RoomStore) SetPlayers(ctx context.Context, id string, players []string) error {
	if players == nil {
		players = []string{}
	}
	data, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	return s.setField(ctx, id, fieldPlayers, string(data))
}

// SetState overwrites the game snapshot and refreshes the TTL.
func (s *RoomStore) SetState(ctx context.Context, id string, st room.GameState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode game_state: %w", err)
	}
	return s.setField(ctx, id, fieldState, string(data))
}

func (s *RoomStore) setField(ctx context.Context, id, field, value string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key(id), field, value)
	pipe.Expire(ctx, key(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("set "+field+" "+id, err)
	}
	return nil
}

// RefreshExpiry re-arms the room's TTL without writing any field.
func (s *RoomStore) RefreshExpiry(ctx context.Context, id string) error {
	if err := s.rdb.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		return unavailable("refresh expiry "+id, err)
	}
	return nil
}

// DeleteRoom removes the room's hash. Deleting an absent room is not an error.
func (s *RoomStore) DeleteRoom(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return unavailable("delete room "+id, err)
	}
	return nil
}

// ScanRoomIDs walks the keyspace for room hashes and returns their ids. The
// result is a best-effort snapshot: rooms created or deleted mid-scan may or
// may not appear.
func (s *RoomStore) ScanRoomIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, unavailable("scan rooms", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
