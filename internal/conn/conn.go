// Package conn owns the one socket a game view holds and its lifecycle
// state machine. Inbound frames are parsed and handed out on the Events
// channel in arrival order; views fold them into display state without ever
// touching the transport.
package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/pkg/protocol"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const writeTimeout = 3 * time.Second

// Event is what the manager hands to its consumer: either a lifecycle
// transition or a parsed inbound message.
type Event interface{ isConnEvent() }

type StateChanged struct {
	State State
}

type Inbound struct {
	Msg protocol.ServerEvent
}

func (StateChanged) isConnEvent() {}
func (Inbound) isConnEvent()      {}

// Transport is one open socket. The production implementation wraps a
// websocket connection; tests substitute their own through DialFunc.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Transport, error)

// Manager runs the session state machine:
//
//	disconnected --Connect--> connecting --open--> connected --close--> disconnected
//
// with any transport failure landing in StateError until the next explicit
// Connect. There is no automatic retry.
type Manager struct {
	log  *zap.Logger
	dial DialFunc

	mu      sync.Mutex
	state   State
	lastURL string
	tr      Transport
	cancel  context.CancelFunc
	gen     int

	// emitMu serializes StateChanged deliveries so the generation check
	// and the channel send are one step; see emit.
	emitMu sync.Mutex

	events chan Event
}

// Option configures a Manager.
type Option func(*Manager)

// WithDial replaces the websocket dialer, letting tests drive the manager
// with a synthetic transport.
func WithDial(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

func NewManager(log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		log:    log,
		dial:   dialWebsocket,
		state:  StateDisconnected,
		events: make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events delivers lifecycle transitions and inbound messages, one at a
// time, in the order they occurred.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens a socket to url. It is a no-op when url is empty or when
// url is the one the last Connect targeted, whatever state that session is
// in now: a failed or closed session stays suppressed until Disconnect
// clears the guard, so callers may invoke Connect every render pass without
// ever producing an automatic retry. The dial itself runs off the caller's
// goroutine; the outcome arrives as a StateChanged event.
func (m *Manager) Connect(ctx context.Context, url string) {
	if url == "" {
		return
	}

	m.mu.Lock()
	if m.lastURL == url {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	oldTr, oldCancel := m.tr, m.cancel
	m.tr = nil
	m.lastURL = url
	m.state = StateConnecting
	connCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	// One transport per session: a connect to a new target replaces any
	// socket still standing.
	if oldCancel != nil {
		oldCancel()
	}
	if oldTr != nil {
		_ = oldTr.Close()
	}

	m.log.Info("connecting", zap.String("url", url))
	m.emit(gen, StateConnecting)

	go m.run(connCtx, gen, url)
}

// emit delivers one StateChanged for generation gen. The check and the send
// happen under emitMu: once Disconnect or a newer Connect bumps the
// generation, a stale loop's event is dropped instead of landing after the
// transition that superseded it.
func (m *Manager) emit(gen int, st State) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	current := m.gen
	m.mu.Unlock()
	if gen != current {
		return
	}
	m.events <- StateChanged{State: st}
}

func (m *Manager) run(ctx context.Context, gen int, url string) {
	tr, err := m.dial(ctx, url)
	if err != nil {
		m.log.Warn("dial failed", zap.String("url", url), zap.Error(err))
		m.transition(gen, StateError)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Disconnected while dialing.
		m.mu.Unlock()
		_ = tr.Close()
		return
	}
	m.tr = tr
	m.state = StateConnected
	m.mu.Unlock()
	m.emit(gen, StateConnected)

	for {
		frame, err := tr.Read(ctx)
		if err != nil {
			if normalClose(err) {
				m.transition(gen, StateDisconnected)
			} else {
				m.log.Warn("transport failed", zap.Error(err))
				m.transition(gen, StateError)
			}
			return
		}

		msg, perr := protocol.Parse(frame)
		if perr != nil {
			// Bad frame: log, drop, keep reading.
			m.log.Warn("dropping frame", zap.Error(perr))
			continue
		}
		m.events <- Inbound{Msg: msg}
	}
}

// transition moves the machine for the read loop of generation gen. A stale
// generation means Disconnect or a newer Connect already took over, and the
// old loop must not speak.
func (m *Manager) transition(gen int, to State) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.state = to
	m.tr = nil
	m.mu.Unlock()
	m.emit(gen, to)
}

// Send serializes and writes one client event. If the session is not
// connected the message is silently dropped: there is no queue, callers
// gate on connection state themselves.
func (m *Manager) Send(ctx context.Context, ev protocol.ClientEvent) {
	m.mu.Lock()
	tr := m.tr
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || tr == nil {
		return
	}

	data, err := protocol.Encode(ev)
	if err != nil {
		m.log.Warn("encode failed", zap.Error(err))
		return
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := tr.Write(wctx, data); err != nil {
		m.log.Warn("write failed", zap.Error(err))
	}
}

// Disconnect tears the transport down and clears the last-connected URL so
// a later Connect to any url, the same one included, is honored.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	tr := m.tr
	cancel := m.cancel
	m.tr = nil
	m.cancel = nil
	m.lastURL = ""
	m.state = StateDisconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if tr != nil {
		_ = tr.Close()
	}
	m.emit(gen, StateDisconnected)
}

func normalClose(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

type wsTransport struct {
	c *websocket.Conn
}

func dialWebsocket(ctx context.Context, url string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{c: c}, nil
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.c.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.c.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.c.Close(websocket.StatusNormalClosure, "bye")
}
