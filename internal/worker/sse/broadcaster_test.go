package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header   http.Header
	body     []byte
	writeErr error
	mu       sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {}

func (m *mockResponseWriter) GetBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

type noFlushWriter struct{ http.ResponseWriter }

func (s *BroadcasterSuite) TestAddClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.NoError(err)
	s.NotEmpty(client.ID)
	s.NotNil(client.Done)
	s.Equal(1, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestAddClient_RequiresFlusher() {
	_, err := s.broadcaster.AddClient(noFlushWriter{httptest.NewRecorder()})
	s.Error(err)
	s.Zero(s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestRemoveClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)

	s.broadcaster.RemoveClient(client)
	s.broadcaster.RemoveClient(client)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-client.Done:
	default:
		s.Fail("Done channel should be closed")
	}
}

func (s *BroadcasterSuite) TestPublish_TypedEvent() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(w)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventPracticeChanged, map[string]int{"totalSessions": 2})

	s.Equal("event: practice.changed\ndata: {\"totalSessions\":2}\n\n", w.GetBody())
}

func (s *BroadcasterSuite) TestPublish_NoClients() {
	s.broadcaster.Publish(EventIdentityChanged, nil)
}

func (s *BroadcasterSuite) TestPublish_MultipleClients() {
	writers := make([]*mockResponseWriter, 3)
	for i := range writers {
		writers[i] = newMockResponseWriter()
		_, err := s.broadcaster.AddClient(writers[i])
		s.Require().NoError(err)
	}

	s.broadcaster.Publish(EventIdentityChanged, map[string]string{"uid": "alice"})

	for i, w := range writers {
		s.Contains(w.GetBody(), "event: identity.changed", "client %d", i)
		s.Contains(w.GetBody(), `"uid":"alice"`, "client %d", i)
	}
}

func (s *BroadcasterSuite) TestPublish_DropsFailingClient() {
	bad := newMockResponseWriter()
	bad.writeErr = errors.New("broken pipe")
	good := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(bad)
	s.Require().NoError(err)
	_, err = s.broadcaster.AddClient(good)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventPracticeChanged, map[string]int{"n": 1})

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(good.GetBody(), "practice.changed")
}

func (s *BroadcasterSuite) TestPublish_UnmarshalableDataIsDropped() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(w)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventPracticeChanged, map[string]any{"bad": make(chan int)})
	s.Empty(w.GetBody())
}

// TestClientUniqueIDs tests that clients get unique IDs.
func TestClientUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[string]bool)

	for i := 0; i < 100; i++ {
		client, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
		assert.False(t, ids[client.ID], "ID %s should be unique", client.ID)
		ids[client.ID] = true
	}
}

func TestHandleSSE(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.HandleSSE(rec, req, func(send func(string, any)) {
			send(EventPracticeChanged, map[string]int{"totalSessions": 0})
		})
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Publish(EventIdentityChanged, map[string]string{"uid": "alice"})
	cancel()
	<-done

	assert.Equal(t, 0, b.ClientCount())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	connected := strings.Index(body, "event: connected")
	initial := strings.Index(body, "event: practice.changed")
	published := strings.Index(body, "event: identity.changed")
	require.GreaterOrEqual(t, connected, 0)
	assert.Greater(t, initial, connected)
	assert.Greater(t, published, initial)
}

func TestHandleSSE_CloseEndsStreams(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroadcaster()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.HandleSSE(rec, req, nil)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Close()
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleSSE did not return after Close")
	}
}

// TestConcurrentPublish tests concurrent broadcasting.
func TestConcurrentPublish(t *testing.T) {
	b := NewBroadcaster()
	for i := 0; i < 10; i++ {
		_, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Publish(EventPracticeChanged, map[string]int{"index": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.ClientCount())
}

// TestBroadcasterConcurrentAddRemove tests concurrent add/remove operations.
func TestBroadcasterConcurrentAddRemove(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := b.AddClient(newMockResponseWriter())
			if err == nil && i%2 == 0 {
				b.RemoveClient(client)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, b.ClientCount())
}
