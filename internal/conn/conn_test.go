package conn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/pkg/protocol"
)

var errTransportClosed = errors.New("transport closed")

type fakeTransport struct {
	frames chan []byte

	mu     sync.Mutex
	writes [][]byte
	closed bool
	done   chan struct{}
	bye    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
		bye:    make(chan struct{}),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.frames:
		return frame, nil
	case <-t.bye:
		return nil, context.Canceled
	case <-t.done:
		return nil, errTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// closeNormally ends the read loop the way a server-side clean close does.
func (t *fakeTransport) closeNormally() { close(t.bye) }

func (t *fakeTransport) Write(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, data)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return nil
}

func (t *fakeTransport) written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

type fakeDialer struct {
	mu         sync.Mutex
	attempts   int
	transports []*fakeTransport
	err        error
}

func (d *fakeDialer) dial(_ context.Context, _ string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.err != nil {
		return nil, d.err
	}
	tr := newFakeTransport()
	d.transports = append(d.transports, tr)
	return tr, nil
}

// count is the number of transports successfully opened.
func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

// dials is the number of dial attempts, failures included.
func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func awaitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	for {
		ev := nextEvent(t, m)
		if sc, ok := ev.(StateChanged); ok && sc.State == want {
			return
		}
	}
}

func TestConnectIsIdempotentPerURL(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")
	awaitState(t, m, StateConnected)

	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")
	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")

	require.Equal(t, 1, d.count(), "repeated connects must not stack sockets")
	require.Equal(t, StateConnected, m.State())
	require.Empty(t, m.Events(), "no duplicate transitions queued")
}

func TestConnectEmptyURLIsSkipped(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "")

	require.Equal(t, 0, d.count())
	require.Equal(t, StateDisconnected, m.State())
}

func TestReconnectAfterDisconnect(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))
	url := "ws://host/rooms/123456?role=player"

	m.Connect(context.Background(), url)
	awaitState(t, m, StateConnected)

	m.Disconnect()
	awaitState(t, m, StateDisconnected)

	// Same URL must be honored again: the guard was cleared.
	m.Connect(context.Background(), url)
	awaitState(t, m, StateConnected)

	require.Equal(t, 2, d.count())
}

func TestDialFailureLandsInErrorState(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "ws://host/rooms/000000?role=host")
	awaitState(t, m, StateError)

	// Recovery is always explicit: Disconnect clears the guard, then a
	// fresh Connect leaves the error state.
	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()
	m.Disconnect()
	awaitState(t, m, StateDisconnected)
	m.Connect(context.Background(), "ws://host/rooms/000000?role=host")
	awaitState(t, m, StateConnected)
}

func TestFailedDialIsNotRetriedWithoutDisconnect(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	m := NewManager(zap.NewNop(), WithDial(d.dial))
	url := "ws://host/rooms/000000?role=player"

	m.Connect(context.Background(), url)
	awaitState(t, m, StateError)

	// A view calls Connect every tick; a dead server must not be dialed
	// again until the user tears the session down.
	for i := 0; i < 5; i++ {
		m.Connect(context.Background(), url)
	}
	require.Equal(t, 1, d.dials(), "repeat connects after a failure must not re-dial")
	require.Equal(t, StateError, m.State())

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()
	m.Disconnect()
	awaitState(t, m, StateDisconnected)
	m.Connect(context.Background(), url)
	awaitState(t, m, StateConnected)
	require.Equal(t, 2, d.dials())
}

func TestCleanCloseIsNotRedialed(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))
	url := "ws://host/rooms/123456?role=player"

	m.Connect(context.Background(), url)
	awaitState(t, m, StateConnected)

	d.last().closeNormally()
	awaitState(t, m, StateDisconnected)

	for i := 0; i < 5; i++ {
		m.Connect(context.Background(), url)
	}
	require.Equal(t, 1, d.count(), "server-side close must not trigger reconnects")
}

func TestDisconnectRacingDialNeverReportsConnected(t *testing.T) {
	release := make(chan struct{})
	dialed := make(chan struct{})
	m := NewManager(zap.NewNop(), WithDial(
		func(context.Context, string) (Transport, error) {
			close(dialed)
			<-release
			return newFakeTransport(), nil
		},
	))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=player")
	awaitState(t, m, StateConnecting)

	<-dialed
	m.Disconnect()
	awaitState(t, m, StateDisconnected)
	close(release)

	// The stale dial's Connected event must be suppressed, not delivered
	// after the Disconnected above.
	select {
	case ev := <-m.Events():
		t.Fatalf("no event expected after disconnect, got %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, StateDisconnected, m.State())
}

func TestSendDroppedUnlessConnected(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	// Nothing open: drop, no panic, no queue.
	m.Send(context.Background(), protocol.NewMove(1, 0))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=player")
	awaitState(t, m, StateConnected)

	m.Send(context.Background(), protocol.NewMove(0, -1))
	writes := d.last().written()
	require.Len(t, writes, 1)
	require.JSONEq(t, `{"type":"move","dx":0,"dy":-1}`, string(writes[0]))

	m.Disconnect()
	awaitState(t, m, StateDisconnected)
	m.Send(context.Background(), protocol.NewChat("too late"))
	require.Len(t, d.last().written(), 1, "sends after disconnect are dropped, not queued")
}

func TestInboundFramesDispatchInArrivalOrder(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")
	awaitState(t, m, StateConnected)

	tr := d.last()
	tr.frames <- []byte(`{"type":"user_joined","session_id":"a","player_id":0}`)
	tr.frames <- []byte(`{"type":"game_started","started_by":"h"}`)
	tr.frames <- []byte(`{"type":"positions","players":[[1,2]]}`)

	want := []protocol.Kind{protocol.KindUserJoined, protocol.KindGameStarted, protocol.KindPositions}
	for i, kind := range want {
		ev := nextEvent(t, m)
		in, ok := ev.(Inbound)
		require.True(t, ok, "event %d: got %#v", i, ev)
		switch kind {
		case protocol.KindUserJoined:
			require.IsType(t, protocol.UserJoined{}, in.Msg)
		case protocol.KindGameStarted:
			require.IsType(t, protocol.GameStarted{}, in.Msg)
		case protocol.KindPositions:
			require.IsType(t, protocol.Positions{}, in.Msg)
		}
	}
}

func TestMalformedFrameIsDroppedAndConnectionSurvives(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")
	awaitState(t, m, StateConnected)

	tr := d.last()
	tr.frames <- []byte(`this is not json`)
	tr.frames <- []byte(`{"type":"chat","from":"a","content":"still here"}`)

	ev := nextEvent(t, m)
	in, ok := ev.(Inbound)
	require.True(t, ok, "bad frame must not surface, got %#v", ev)
	require.Equal(t, protocol.Chat{From: "a", Content: "still here"}, in.Msg)
	require.Equal(t, StateConnected, m.State())
}

func TestTransportFailureReportsError(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(zap.NewNop(), WithDial(d.dial))

	m.Connect(context.Background(), "ws://host/rooms/123456?role=host")
	awaitState(t, m, StateConnected)

	d.last().Close() // remote drop, not a clean close
	awaitState(t, m, StateError)
}
