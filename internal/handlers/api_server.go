// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/glowrace/relay/internal/engine"
	"github.com/glowrace/relay/internal/room"
)

// RelayServer bundles the collaborators every handler needs: the room
// lifecycle manager, the connection registry and the engine client.
type RelayServer struct {
	Rooms    *room.Manager
	Registry *room.Registry
	Engine   engine.Forwarder
	Log      *logrus.Logger
}

func NewRelayServer(rooms *room.Manager, registry *room.Registry, eng engine.Forwarder, log *logrus.Logger) *RelayServer {
	return &RelayServer{
		Rooms:    rooms,
		Registry: registry,
		Engine:   eng,
		Log:      log,
	}
}

// stateFrame is the wire shape of every server-to-client snapshot: the full
// game state plus the room id, matching what the engine emits.
type stateFrame struct {
	room.GameState
	RoomID string `json:"room_id"`
}

// processAction runs the action pipeline shared by the WebSocket loop and the
// HTTP action endpoint: forward to the engine (single attempt), persist the
// resulting state, fan it out to the room. The final game-over snapshot is
// still broadcast even when applying it deleted the room. On engine failure
// nothing is persisted or broadcast.
func (s *RelayServer) processAction(ctx context.Context, act engine.Action) (room.GameState, bool, error) {
	raw, err := s.Engine.Forward(ctx, act)
	if err != nil {
		return room.GameState{}, false, err
	}

	var st room.GameState
	if err := json.Unmarshal(raw, &st); err != nil {
		return room.GameState{}, false, fmt.Errorf("decode engine state: %w", err)
	}

	deleted, err := s.Rooms.ApplyState(ctx, act.RoomID, st, s.Registry.Count(act.RoomID))
	if err != nil {
		return room.GameState{}, false, err
	}

	s.broadcastState(act.RoomID, st)
	return st, deleted, nil
}

// broadcastState marshals a state frame and fans it out to every live
// connection in the room. Broken peers are pruned by the registry as it goes;
// the delivery count is informational only.
func (s *RelayServer) broadcastState(roomID string, st room.GameState) {
	frame, err := json.Marshal(stateFrame{GameState: st, RoomID: roomID})
	if err != nil {
		s.Log.Errorf("failed to marshal state frame for room %s: %v", roomID, err)
		return
	}
	n := s.Registry.Broadcast(roomID, frame)
	s.Log.Debugf("room %s: state delivered to %d connection(s)", roomID, n)
}
