// internal/room/errors.go
package room

import "errors"

var (
	// ErrRoomNotFound is returned when an operation targets a room id with no
	// store entry.
	ErrRoomNotFound = errors.New("room not found")

	// ErrPlayerAlreadyInRoom is returned by Join when the player id is already
	// part of the room's player set.
	ErrPlayerAlreadyInRoom = errors.New("player already in room")

	// ErrRoomFull is returned by Join once the room holds MaxPlayers ids.
	ErrRoomFull = errors.New("room full")

	// ErrStoreUnavailable wraps transient store failures. Callers log it and
	// surface an error to the requesting client; it never crashes a session.
	ErrStoreUnavailable = errors.New("store unavailable")
)
