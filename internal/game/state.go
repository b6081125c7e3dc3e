package game

// Role distinguishes the two client flavors. Every component behaves the
// same for both; only the allowed outbound messages and a couple of
// reconciliation arms differ.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

const (
	GridWidth  = 28
	GridHeight = 14

	// MaxPlayers is the room ceiling; the host's connected counter is
	// clamped to it.
	MaxPlayers = 4

	// NoCaptor marks a flag nobody is carrying.
	NoCaptor = -1
)

type Cell struct {
	X int
	Y int
}

type Player struct {
	X    int
	Y    int
	Team int
}

type Flag struct {
	X    int
	Y    int
	Team int
}

// State is the reconciled, renderable snapshot of one room as this client
// last heard it. It is a value: reconciliation returns a fresh State rather
// than mutating in place, so a view can hold the previous one until the next
// whole-value swap.
type State struct {
	Players     []Player
	Walls       []Cell
	Flags       []Flag
	FlagCaptors []int // one slot per flag, NoCaptor when uncaptured
	Scores      [2]int
	IsStarted   bool

	// Player role only.
	PlayerID  int
	SessionID string

	// Host role only. Locally counted from join/leave events.
	ConnectedPlayers int
}

// TeamOf derives a player's team from its index in the snapshot order.
// Even indexes are team 0 (blue), odd are team 1 (red). The team is never
// transmitted; reordering the sequence reassigns teams, so every consumer
// must go through this one function.
func TeamOf(index int) int { return index % 2 }

// NewState seeds the static map configuration: the wall layout and the two
// flag spawns on a 28x14 grid. Everything else waits for server messages.
func NewState() State {
	return State{
		Walls: []Cell{
			{X: 0, Y: 1}, {X: 27, Y: 1}, {X: 8, Y: 2}, {X: 19, Y: 2},
			{X: 8, Y: 6}, {X: 9, Y: 6}, {X: 18, Y: 6}, {X: 19, Y: 6},
			{X: 8, Y: 7}, {X: 9, Y: 7}, {X: 18, Y: 7}, {X: 19, Y: 7},
			{X: 8, Y: 11}, {X: 19, Y: 11}, {X: 0, Y: 12}, {X: 27, Y: 12},
		},
		Flags: []Flag{
			{X: 0, Y: 7, Team: 0},
			{X: 27, Y: 6, Team: 1},
		},
		FlagCaptors: []int{NoCaptor, NoCaptor},
		PlayerID:    -1,
	}
}

// Captured reports whether the flag at index i is being carried.
func (s State) Captured(i int) bool {
	return i >= 0 && i < len(s.FlagCaptors) && s.FlagCaptors[i] != NoCaptor
}

// CarriedFlag returns the index of the flag carried by the given player, or
// NoCaptor when the player carries nothing.
func (s State) CarriedFlag(playerIndex int) int {
	for i, captor := range s.FlagCaptors {
		if captor == playerIndex {
			return i
		}
	}
	return NoCaptor
}
