// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowrace/relay/internal/room"
)

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func getReq(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateJoinListRoundTrip(t *testing.T) {
	srv, _, _ := newTestRelay(t)

	w := postJSON(t, CreateRoomHandler(srv), "/room/create", `{"type":"public"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		RoomID string `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.RoomID)

	w = postJSON(t, JoinRoomHandler(srv), "/room/join",
		`{"room_id":"`+created.RoomID+`","player_id":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Joining again conflicts.
	w = postJSON(t, JoinRoomHandler(srv), "/room/join",
		`{"room_id":"`+created.RoomID+`","player_id":"p1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The room shows up in the public listing with one player.
	w = getReq(t, ListRoomsHandler(srv), "/room/list")
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []room.RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.RoomID, rooms[0].RoomID)
	assert.Equal(t, 1, rooms[0].PlayerCount)

	// Join populates metadata only; the state players stay empty until the
	// engine pushes an update.
	w = getReq(t, LoadStateHandler(srv), "/load_state?room_id="+created.RoomID)
	require.Equal(t, http.StatusOK, w.Code)
	var st room.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Empty(t, st.Players)
}

func TestCreateRejectsInvalidType(t *testing.T) {
	srv, _, _ := newTestRelay(t)
	w := postJSON(t, CreateRoomHandler(srv), "/room/create", `{"type":"matchmaking"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinUnknownRoomIs404(t *testing.T) {
	srv, _, _ := newTestRelay(t)
	w := postJSON(t, JoinRoomHandler(srv), "/room/join", `{"room_id":"missing","player_id":"p1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckResetHandler(t *testing.T) {
	srv, ms, _ := newTestRelay(t)
	require.NoError(t, ms.CreateRoom(context.Background(), "r1", room.TypePublic))

	w := getReq(t, CheckResetHandler(srv), "/check_reset?room_id=r1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Reset bool `json:"reset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Reset, "fresh room has no players yet")

	require.NoError(t, ms.SetState(context.Background(), "r1", aliveState("p1")))
	w = getReq(t, CheckResetHandler(srv), "/check_reset?room_id=r1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Reset)
}

func TestStatePushPersistsAndBootstraps(t *testing.T) {
	srv, ms, _ := newTestRelay(t)

	st := aliveState("p1", "p2")
	body, _ := json.Marshal(struct {
		room.GameState
		RoomID string `json:"room_id"`
	}{st, "pushed-first"})

	w := postJSON(t, StatePushHandler(srv), "/state", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Deleted)

	// Unknown room was bootstrapped as public, players recomputed from state.
	typ, err := ms.GetType(context.Background(), "pushed-first")
	require.NoError(t, err)
	assert.Equal(t, room.TypePublic, typ)
	players, err := ms.GetPlayers(context.Background(), "pushed-first")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, players)
}

func TestStatePushGameOverDeletes(t *testing.T) {
	srv, ms, _ := newTestRelay(t)
	require.NoError(t, ms.CreateRoom(context.Background(), "r1", room.TypePublic))

	st := room.GameState{Players: []room.PlayerState{}, GlowPoints: []room.Position{}, GameOver: true}
	body, _ := json.Marshal(struct {
		room.GameState
		RoomID string `json:"room_id"`
	}{st, "r1"})

	w := postJSON(t, StatePushHandler(srv), "/state", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)

	exists, err := ms.RoomExists(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPlayerActionRunsPipeline(t *testing.T) {
	srv, ms, fe := newTestRelay(t)
	require.NoError(t, ms.CreateRoom(context.Background(), "r1", room.TypePublic))
	fe.setResponse(aliveState("p1"), nil)

	w := postJSON(t, PlayerActionHandler(srv), "/player_action",
		`{"room_id":"r1","action":"addPlayer","playerId":"p1","name":"Neo"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Exactly one forward, verbatim payload.
	calls := fe.actions()
	require.Len(t, calls, 1)
	assert.Equal(t, "addPlayer", calls[0].Kind)
	assert.Equal(t, "Neo", calls[0].Name)

	// New state persisted and returned.
	players, err := ms.GetPlayers(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, players)
	var st room.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Len(t, st.Players, 1)
	assert.Equal(t, "p1", st.Players[0].ID)
}
