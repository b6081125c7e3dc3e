package game

import (
	"math"

	"github.com/mukhtarkv/CTF/pkg/protocol"
)

// Reconcile folds one inbound event into the display state and returns the
// next state. It is total: every event produces a state, and events it does
// not care about (chat, unknown kinds) return the input unchanged. Callers
// apply it once per message, in arrival order.
func Reconcile(s State, role Role, ev protocol.ServerEvent) State {
	switch ev := ev.(type) {
	case protocol.Welcome:
		if role == RolePlayer {
			s.SessionID = ev.SessionID
		}
		return s

	case protocol.UserJoined:
		switch role {
		case RoleHost:
			s.ConnectedPlayers = min(MaxPlayers, s.ConnectedPlayers+1)
		case RolePlayer:
			// Joins of other participants are not our identity.
			if ev.SessionID == s.SessionID && s.SessionID != "" {
				s.PlayerID = ev.PlayerID
			}
		}
		return s

	case protocol.UserLeft:
		if role == RoleHost {
			s.ConnectedPlayers = max(0, s.ConnectedPlayers-1)
		}
		return s

	case protocol.Positions:
		return applyPositions(s, ev)

	case protocol.GameStarted:
		// One-way: nothing resets it.
		s.IsStarted = true
		return s

	default:
		// chat, error, host_left and unrecognized kinds carry no display
		// state; they surface elsewhere.
		return s
	}
}

// applyPositions replaces players, flag captors and scores together from a
// single snapshot. The three are never merged field-by-field across
// messages: absent captors mean nobody carries anything and absent scores
// mean 0-0.
func applyPositions(s State, pos protocol.Positions) State {
	// Without a players sequence there is no snapshot to apply; treating
	// it as "everyone gone" would wipe the board on a malformed message.
	if pos.Players == nil {
		return s
	}

	players := make([]Player, len(pos.Players))
	for i, p := range pos.Players {
		players[i] = Player{
			X:    int(math.Trunc(p[0])),
			Y:    int(math.Trunc(p[1])),
			Team: TeamOf(i),
		}
	}
	s.Players = players

	captors := make([]int, len(s.Flags))
	for i := range captors {
		captors[i] = NoCaptor
		if i < len(pos.FlagCaptors) && pos.FlagCaptors[i] != nil {
			captors[i] = *pos.FlagCaptors[i]
		}
	}
	s.FlagCaptors = captors

	s.Scores = [2]int{}
	for i := 0; i < len(pos.Scores) && i < 2; i++ {
		s.Scores[i] = pos.Scores[i]
	}
	return s
}
