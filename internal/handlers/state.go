// internal/handlers/state.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glowrace/relay/internal/engine"
	"github.com/glowrace/relay/internal/room"
)

// StatePushHandler handles POST /state: the engine pushes a full game state
// snapshot carrying its room_id. The state is persisted (bootstrapping a
// default public room for ids the engine saw first) and broadcast to the
// room; the final game-over snapshot still goes out before the room is
// cleaned up.
func StatePushHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var push struct {
			room.GameState
			RoomID string `json:"room_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
			writeError(w, http.StatusBadRequest, "invalid state payload")
			return
		}
		if push.RoomID == "" {
			writeError(w, http.StatusBadRequest, "room_id is required")
			return
		}

		deleted, err := s.Rooms.ApplyState(r.Context(), push.RoomID, push.GameState, s.Registry.Count(push.RoomID))
		if err != nil {
			s.Log.Warnf("apply state for room %s failed: %v", push.RoomID, err)
			writeError(w, statusForRoomError(err), err.Error())
			return
		}

		s.broadcastState(push.RoomID, push.GameState)
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
	}
}

// PlayerActionHandler handles POST /player_action, the HTTP twin of the
// WebSocket action path: the action is forwarded to the engine once, the
// resulting state persisted and fanned out, and the new state returned to the
// caller.
func PlayerActionHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var act engine.Action
		if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
			writeError(w, http.StatusBadRequest, "invalid action payload")
			return
		}
		if act.RoomID == "" || act.Kind == "" || act.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "room_id, action and playerId are required")
			return
		}

		st, _, err := s.processAction(r.Context(), act)
		if err != nil {
			s.Log.Warnf("player action %q in room %s failed: %v", act.Kind, act.RoomID, err)
			var engErr *engine.Error
			status := statusForRoomError(err)
			if errors.As(err, &engErr) {
				if engErr.Transient {
					status = http.StatusBadGateway
				} else {
					status = http.StatusUnprocessableEntity
				}
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stateFrame{GameState: st, RoomID: act.RoomID})
	}
}
