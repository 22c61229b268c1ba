// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/glowrace/relay/internal/engine"
	"github.com/glowrace/relay/internal/middleware"
	"github.com/glowrace/relay/internal/room"
)

// writeTimeout bounds a single frame write so one stalled peer cannot wedge
// its write pump indefinitely.
const writeTimeout = 5 * time.Second

// RoomWSHandler upgrades GET /ws/{room_id} to a WebSocket session: the
// connection is registered with the room, receives the current persisted
// state immediately, then each inbound action runs the forward → persist →
// broadcast pipeline. The loop ends only on disconnect or unrecoverable I/O
// error; a bad message or a failed engine call is reported to the sender and
// the loop continues.
func RoomWSHandler(s *RelayServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/ws/"), "/", 2)[0]
		if roomID == "" {
			http.Error(w, "missing room_id in path (/ws/{room_id})", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"glowrace"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			s.Log.Warnf("websocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "glowrace" {
			c.Close(BadSubprotocolClose, "client must speak the glowrace subprotocol")
			return
		}

		exists, err := s.Rooms.Exists(r.Context(), roomID)
		if err != nil {
			s.Log.Warnf("room %s existence check failed: %v", roomID, err)
			c.Close(websocket.StatusInternalError, "store unavailable")
			return
		}
		if !exists {
			c.Close(RoomNotFoundClose, "room does not exist")
			return
		}

		middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, roomID)

		conn := room.NewConn(r.RemoteAddr)
		s.Registry.Register(roomID, conn)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, conn, s.Log)

		// Push the current snapshot before any action arrives, so a joiner
		// renders the room immediately.
		s.sendCurrentState(ctx, conn, roomID)

		readErr := s.readActions(ctx, c, conn, roomID)
		middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, roomID, readErr)

		// Disconnect cleanup: deregister first, then re-evaluate the deletion
		// predicate if no connection remains. The count check also covers a
		// conn that broadcast already pruned after its write pump died.
		conn.Close()
		becameEmpty := s.Registry.Unregister(roomID, conn)
		if becameEmpty || s.Registry.Count(roomID) == 0 {
			cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := s.Rooms.Reap(cleanupCtx, roomID, s.Registry.Count(roomID)); err != nil {
				s.Log.Warnf("room %s cleanup after disconnect failed: %v", roomID, err)
			}
			cancelCleanup()
		}

		c.Close(websocket.StatusNormalClosure, "")
	}
}

// sendCurrentState enqueues the room's persisted snapshot (or the empty
// default) to a single connection. Store trouble is logged, not fatal: the
// session stays up and the client will catch up on the next broadcast.
func (s *RelayServer) sendCurrentState(ctx context.Context, conn *room.Conn, roomID string) {
	st, err := s.Rooms.LoadState(ctx, roomID)
	if err != nil {
		s.Log.Warnf("room %s: failed to load state for new connection: %v", roomID, err)
		st = room.DefaultState()
	}
	frame, err := json.Marshal(stateFrame{GameState: st, RoomID: roomID})
	if err != nil {
		s.Log.Errorf("room %s: failed to marshal initial state: %v", roomID, err)
		return
	}
	conn.Write(frame)
}

// readActions is the per-connection receive loop. It returns the read error
// that ended the session (nil for a normal peer close).
func (s *RelayServer) readActions(ctx context.Context, c *websocket.Conn, conn *room.Conn, roomID string) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.Log.Warnf("room %s: ignoring non-text message type %d", roomID, typ)
			continue
		}

		var act engine.Action
		if err := json.Unmarshal(data, &act); err != nil {
			s.Log.Warnf("room %s: invalid action json: %v", roomID, err)
			sendErrorFrame(conn, "invalid JSON")
			continue
		}
		// The session is bound to one room for its lifetime; the path id is
		// authoritative over whatever the client put in the frame.
		act.RoomID = roomID
		if act.Kind == "" || act.PlayerID == "" {
			sendErrorFrame(conn, "action and playerId are required")
			continue
		}

		if _, _, err := s.processAction(ctx, act); err != nil {
			// Engine or store trouble never kills the session; the room state
			// is left unchanged and only the sender hears about it.
			s.Log.Warnf("room %s: action %q from %s failed: %v", roomID, act.Kind, act.PlayerID, err)
			sendErrorFrame(conn, err.Error())
			continue
		}
	}
}

// sendErrorFrame reports a per-message failure to the originating connection.
func sendErrorFrame(conn *room.Conn, msg string) {
	frame, err := json.Marshal(map[string]string{
		"type":  "error",
		"error": msg,
	})
	if err != nil {
		return
	}
	conn.Write(frame)
}

// writePump drains the connection's outbound queue onto the socket. A write
// failure marks the registry handle dead and exits; the read loop notices the
// closure and runs disconnect cleanup.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, log *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case frame := <-conn.Out():
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				log.Warnf("websocket write to %s failed: %v", conn.Remote(), err)
				conn.Close()
				return
			}
		}
	}
}
