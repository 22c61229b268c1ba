// internal/room/room.go
package room

// Room types accepted by the create endpoint. Public rooms show up in the
// listing; private rooms are reachable only by id.
const (
	TypePublic  = "public"
	TypePrivate = "private"
)

// MaxPlayers caps the player set of a single room.
const MaxPlayers = 10

// Position is one cell on the game grid.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PlayerState is the engine's view of one player inside a game state snapshot.
// The relay never interprets anything beyond ID and Alive; the rest is carried
// through verbatim for the clients.
type PlayerState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Row       int        `json:"row"`
	Col       int        `json:"col"`
	Tail      []Position `json:"tail"`
	Direction string     `json:"direction"`
	Score     int        `json:"score"`
	Alive     bool       `json:"alive"`
}

// GameState is the authoritative snapshot produced by the simulation engine
// and fanned out to every connection in a room.
type GameState struct {
	Players    []PlayerState `json:"players"`
	GlowPoints []Position    `json:"glowPoints"`
	GameOver   bool          `json:"gameOver"`
}

// DefaultState is the empty snapshot a freshly created (or recycled) room
// starts with.
func DefaultState() GameState {
	return GameState{
		Players:    []PlayerState{},
		GlowPoints: []Position{},
		GameOver:   false,
	}
}

// AlivePlayerIDs returns the ids of players the engine still considers alive.
// This is the recomputed player set persisted on every state update.
func AlivePlayerIDs(st GameState) []string {
	ids := make([]string, 0, len(st.Players))
	for _, p := range st.Players {
		if p.Alive {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Phase is the explicit lifecycle tag of a room, computed once per mutation
// instead of re-deriving gameOver/liveness checks at every call site.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseGameOver
)

func phaseOf(st GameState) Phase {
	if st.GameOver {
		return PhaseGameOver
	}
	return PhaseActive
}

// shouldDelete is the single deletion predicate used by every cleanup site
// (state application, disconnect cleanup, lazy GC during listing): a room is
// removed once the game is over, no player remains in its player set, and no
// live connection is attached.
func shouldDelete(phase Phase, playerIDs []string, liveConns int) bool {
	return phase == PhaseGameOver && len(playerIDs) == 0 && liveConns == 0
}
