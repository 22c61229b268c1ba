// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// CreateRoomHandler handles POST /room/create: {"type": "public"|"private"}
// and answers {"room_id": "..."}.
func CreateRoomHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad create request payload")
			return
		}

		id, err := s.Rooms.Create(r.Context(), req.Type)
		if err != nil {
			s.Log.Warnf("room create failed: %v", err)
			status := statusForRoomError(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadRequest // invalid type is the only non-store failure
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"room_id": id})
	}
}

// JoinRoomHandler handles POST /room/join: {"room_id": "...", "player_id": "..."}.
func JoinRoomHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RoomID   string `json:"room_id"`
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "room_id and player_id are required")
			return
		}

		if err := s.Rooms.Join(r.Context(), req.RoomID, req.PlayerID); err != nil {
			s.Log.Warnf("join room %s by %s failed: %v", req.RoomID, req.PlayerID, err)
			writeError(w, statusForRoomError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// ListRoomsHandler handles GET /room/list and returns the public rooms as
// [{"room_id": ..., "player_count": ...}]. Listing lazily reaps finished
// empty rooms.
func ListRoomsHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := s.Rooms.ListPublic(r.Context())
		if err != nil {
			s.Log.Warnf("room listing failed: %v", err)
			writeError(w, statusForRoomError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// LoadStateHandler handles GET /load_state?room_id=... and returns the room's
// persisted snapshot, or the empty default when the room has none.
func LoadStateHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room_id")
		if roomID == "" {
			writeError(w, http.StatusBadRequest, "room_id is required")
			return
		}

		st, err := s.Rooms.LoadState(r.Context(), roomID)
		if err != nil {
			s.Log.Warnf("load state for room %s failed: %v", roomID, err)
			writeError(w, statusForRoomError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stateFrame{GameState: st, RoomID: roomID})
	}
}

// CheckResetHandler handles GET /check_reset?room_id=... and answers
// {"reset": bool}; clients use it to decide whether to show a room-reset
// prompt.
func CheckResetHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room_id")
		if roomID == "" {
			writeError(w, http.StatusBadRequest, "room_id is required")
			return
		}

		reset, err := s.Rooms.CheckReset(r.Context(), roomID)
		if err != nil {
			s.Log.Warnf("check reset for room %s failed: %v", roomID, err)
			writeError(w, statusForRoomError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"reset": reset})
	}
}
