// Package protocol defines the JSON wire format spoken over a room socket.
//
// Every frame is an envelope {"type": "...", ...} where type discriminates
// the payload. Server events arrive as one of the closed set below; client
// events are built with the New* constructors and encoded with Encode.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates wire messages.
type Kind string

const (
	// Server -> Client
	KindWelcome     Kind = "welcome"
	KindUserJoined  Kind = "user_joined"
	KindUserLeft    Kind = "user_left"
	KindHostLeft    Kind = "host_left"
	KindPositions   Kind = "positions"
	KindGameStarted Kind = "game_started"
	KindChat        Kind = "chat"
	KindError       Kind = "error"

	// Client -> Server
	KindStartGame Kind = "start_game"
	KindMove      Kind = "move"
)

// ServerEvent is an inbound message from the room server. The set is closed:
// an exhaustive type switch over the concrete types covers every recognized
// kind, and Unknown carries anything the parser does not recognize so newer
// servers stay compatible.
type ServerEvent interface{ isServerEvent() }

type Welcome struct {
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	Room      string `json:"room"`
}

type UserJoined struct {
	SessionID string `json:"session_id"`
	PlayerID  int    `json:"player_id"`
}

type UserLeft struct {
	SessionID string `json:"session_id"`
}

type HostLeft struct {
	SessionID string `json:"session_id"`
}

// Positions is the authoritative snapshot: player cells as [x,y] pairs,
// the captor slot per flag (nil when uncaptured) and the per-team scores.
type Positions struct {
	Players     [][2]float64 `json:"players"`
	FlagCaptors []*int       `json:"flag_captors"`
	Scores      []int        `json:"scores"`
}

type GameStarted struct {
	StartedBy string `json:"started_by"`
}

type Chat struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

type ServerError struct {
	Message string `json:"message"`
}

// Unknown is returned for a well-formed envelope of an unrecognized kind.
type Unknown struct {
	Kind Kind
}

func (Welcome) isServerEvent()     {}
func (UserJoined) isServerEvent()  {}
func (UserLeft) isServerEvent()    {}
func (HostLeft) isServerEvent()    {}
func (Positions) isServerEvent()   {}
func (GameStarted) isServerEvent() {}
func (Chat) isServerEvent()        {}
func (ServerError) isServerEvent() {}
func (Unknown) isServerEvent()     {}

// KindOf reports the wire discriminator for a server event.
func KindOf(ev ServerEvent) Kind {
	switch ev := ev.(type) {
	case Welcome:
		return KindWelcome
	case UserJoined:
		return KindUserJoined
	case UserLeft:
		return KindUserLeft
	case HostLeft:
		return KindHostLeft
	case Positions:
		return KindPositions
	case GameStarted:
		return KindGameStarted
	case Chat:
		return KindChat
	case ServerError:
		return KindError
	case Unknown:
		return ev.Kind
	default:
		return ""
	}
}

// EncodeServer flattens a server event into its {"type": ...} envelope.
// The sending side of the protocol; Parse is its inverse.
func EncodeServer(ev ServerEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", KindOf(ev), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", KindOf(ev), err)
	}
	kind, _ := json.Marshal(KindOf(ev))
	fields["type"] = kind
	return json.Marshal(fields)
}

// ParseError reports a frame that could not be decoded. The connection
// survives it; the frame is dropped.
type ParseError struct {
	Frame []byte
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: bad frame %q: %v", e.Frame, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type envelope struct {
	Type Kind `json:"type"`
}

// Parse decodes one inbound frame. A missing or empty type discriminator is
// a *ParseError; a discriminator we have no struct for parses as Unknown.
func Parse(frame []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &ParseError{Frame: frame, Err: err}
	}
	if env.Type == "" {
		return nil, &ParseError{Frame: frame, Err: fmt.Errorf("missing type")}
	}

	var ev ServerEvent
	switch env.Type {
	case KindWelcome:
		ev = &Welcome{}
	case KindUserJoined:
		ev = &UserJoined{}
	case KindUserLeft:
		ev = &UserLeft{}
	case KindHostLeft:
		ev = &HostLeft{}
	case KindPositions:
		ev = &Positions{}
	case KindGameStarted:
		ev = &GameStarted{}
	case KindChat:
		ev = &Chat{}
	case KindError:
		ev = &ServerError{}
	default:
		return Unknown{Kind: env.Type}, nil
	}

	if err := json.Unmarshal(frame, ev); err != nil {
		return nil, &ParseError{Frame: frame, Err: err}
	}
	return deref(ev), nil
}

// deref returns the value behind the pointer filled by Parse so callers
// switch on value types.
func deref(ev ServerEvent) ServerEvent {
	switch v := ev.(type) {
	case *Welcome:
		return *v
	case *UserJoined:
		return *v
	case *UserLeft:
		return *v
	case *HostLeft:
		return *v
	case *Positions:
		return *v
	case *GameStarted:
		return *v
	case *Chat:
		return *v
	case *ServerError:
		return *v
	default:
		return ev
	}
}

// ClientEvent is an outbound message. Only three exist: the host starts the
// game, a player moves, anyone chats.
type ClientEvent interface{ isClientEvent() }

type StartGame struct {
	Type Kind `json:"type"`
}

type Move struct {
	Type Kind `json:"type"`
	DX   int  `json:"dx"`
	DY   int  `json:"dy"`
}

type ChatSend struct {
	Type    Kind   `json:"type"`
	Content string `json:"content"`
}

func (StartGame) isClientEvent() {}
func (Move) isClientEvent()      {}
func (ChatSend) isClientEvent()  {}

func NewStartGame() StartGame { return StartGame{Type: KindStartGame} }

// NewMove builds a unit move intent. dx and dy are each -1, 0 or 1.
func NewMove(dx, dy int) Move { return Move{Type: KindMove, DX: dx, DY: dy} }

func NewChat(content string) ChatSend { return ChatSend{Type: KindChat, Content: content} }

// Encode serializes a client event for the wire.
func Encode(ev ClientEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return data, nil
}

// ParseClient decodes an outbound-direction frame on the receiving side.
// Unrecognized kinds are a *ParseError here: the server accepts exactly
// three client events.
func ParseClient(frame []byte) (ClientEvent, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &ParseError{Frame: frame, Err: err}
	}

	switch env.Type {
	case KindStartGame:
		return NewStartGame(), nil
	case KindMove:
		var ev Move
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, &ParseError{Frame: frame, Err: err}
		}
		return ev, nil
	case KindChat:
		var ev ChatSend
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, &ParseError{Frame: frame, Err: err}
		}
		return ev, nil
	default:
		return nil, &ParseError{Frame: frame, Err: fmt.Errorf("unknown client event %q", env.Type)}
	}
}
