package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records envelopes written to it. Optional failure and blocking
// modes simulate dead and slow subscriber channels.
type fakeConn struct {
	mu     sync.Mutex
	writes []Envelope
	err    error
	block  chan struct{}
	closed bool
}

func (f *fakeConn) WriteJSON(v any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, v.(Envelope))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) envelopes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestHub() *Hub {
	return New(zerolog.Nop())
}

func TestRegister_SendsSessionInit(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}

	client := h.Register(conn)
	require.NotEmpty(t, client.ID())
	assert.Equal(t, 1, h.ClientCount())

	assert.Eventually(t, func() bool {
		return len(conn.envelopes()) == 1
	}, time.Second, 10*time.Millisecond)

	env := conn.envelopes()[0]
	assert.Equal(t, EventTypeSessionInit, env.Type)
	assert.Equal(t, SessionInit{SID: client.ID()}, env.Data)
}

func TestBroadcast_DeliversInOrder(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	client := h.Register(conn)

	const n = 10
	for i := 0; i < n; i++ {
		h.Broadcast(ChatMessage{Text: fmt.Sprintf("msg-%d", i), SID: client.ID()})
	}

	assert.Eventually(t, func() bool {
		return len(conn.envelopes()) == n+1 // session init + broadcasts
	}, time.Second, 10*time.Millisecond)

	envs := conn.envelopes()
	for i := 0; i < n; i++ {
		msg, ok := envs[i+1].Data.(ChatMessage)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Text)
	}
}

func TestBroadcast_DeadSubscriberDoesNotBlockOthers(t *testing.T) {
	h := newTestHub()
	dead := &fakeConn{err: errors.New("connection reset")}
	alive := &fakeConn{}

	h.Register(dead)
	h.Register(alive)
	require.Equal(t, 2, h.ClientCount())

	h.Broadcast(ChatMessage{Text: "first", SID: "x"})

	// The dead subscriber is purged on its write error; the live one still
	// receives everything.
	assert.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// A subsequent broadcast must not error on the stale entry.
	h.Broadcast(ChatMessage{Text: "second", SID: "x"})

	assert.Eventually(t, func() bool {
		return len(alive.envelopes()) == 3 // session init + two broadcasts
	}, time.Second, 10*time.Millisecond)
	assert.True(t, dead.isClosed())
}

func TestSendTo_TargetsSingleSubscriber(t *testing.T) {
	h := newTestHub()
	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	client1 := h.Register(conn1)
	h.Register(conn2)

	h.SendTo(client1.ID(), ChatMessage{Text: "private", SID: client1.ID()})

	assert.Eventually(t, func() bool {
		return len(conn1.envelopes()) == 2
	}, time.Second, 10*time.Millisecond)

	// conn2 only ever sees its session init.
	assert.Eventually(t, func() bool {
		return len(conn2.envelopes()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSendTo_UnknownConnectionIsNoOp(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	h.Register(conn)

	h.SendTo("not-registered", ChatMessage{Text: "lost", SID: "x"})

	assert.Equal(t, 1, h.ClientCount())
}

func TestUnregister_Idempotent(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	client := h.Register(conn)

	h.Unregister(client.ID())
	h.Unregister(client.ID())
	h.Unregister("never-existed")

	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, conn.isClosed())

	// Broadcasting after removal must not panic or resurrect the client.
	h.Broadcast(ChatMessage{Text: "after", SID: "x"})
	assert.Equal(t, 0, h.ClientCount())
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := newTestHub()
	release := make(chan struct{})
	defer close(release)

	slow := &fakeConn{block: release}
	h.Register(slow)
	require.Equal(t, 1, h.ClientCount())

	// The writer is stuck on the session init; once the queue overflows the
	// subscriber counts as dead and is purged without blocking dispatch.
	for i := 0; i < sendQueueSize+2; i++ {
		h.Broadcast(ChatMessage{Text: fmt.Sprintf("m%d", i), SID: "x"})
	}

	assert.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ConcurrentBroadcasts(t *testing.T) {
	h := newTestHub()

	const clients = 10
	const messages = 20
	conns := make([]*fakeConn, clients)
	for i := range conns {
		conns[i] = &fakeConn{}
		h.Register(conns[i])
	}
	require.Equal(t, clients, h.ClientCount())

	var wg sync.WaitGroup
	for i := 0; i < messages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Broadcast(ChatMessage{Text: fmt.Sprintf("m%d", i), SID: "x"})
		}(i)
	}
	wg.Wait()

	for i, conn := range conns {
		conn := conn
		assert.Eventually(t, func() bool {
			return len(conn.envelopes()) == messages+1
		}, time.Second, 10*time.Millisecond, "client %d", i)
	}
}

func TestHub_Close(t *testing.T) {
	h := newTestHub()
	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		h.Register(c)
	}

	h.Close()

	assert.Equal(t, 0, h.ClientCount())
	for _, c := range conns {
		assert.True(t, c.isClosed())
	}
}
