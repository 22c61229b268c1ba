// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes. These give clients a more specific reason
// than the standard codes; everything else closes with normal closure.
const (
	// BadSubprotocolClose: client connected without the glowrace subprotocol.
	BadSubprotocolClose websocket.StatusCode = 3000
	// RoomNotFoundClose: the room id in the WS URL has no store entry.
	RoomNotFoundClose websocket.StatusCode = 3001
)
