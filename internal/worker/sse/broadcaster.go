// Package sse provides Server-Sent Events broadcasting for the dilse worker.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout is the timeout for writing to SSE clients.
	// Prevents blocking on stale connections.
	WriteTimeout = 2 * time.Second

	// HeartbeatInterval keeps idle connections open through proxies.
	HeartbeatInterval = 25 * time.Second
)

// Event types.
const (
	EventConnected       = "connected"
	EventIdentityChanged = "identity.changed"
	EventPracticeChanged = "practice.changed"
)

// Client represents a connected SSE client.
type Client struct {
	Writer    http.ResponseWriter
	Flusher   http.Flusher
	Done      chan struct{}
	ID        string
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Broadcaster manages SSE client connections and event fan-out.
type Broadcaster struct {
	clients  map[string]*Client
	shutdown chan struct{}
	mu       sync.RWMutex
	nextID   int
	stopOnce sync.Once
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:  make(map[string]*Client),
		shutdown: make(chan struct{}),
	}
}

// AddClient adds a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	client, err := newClient(w)
	if err != nil {
		return nil, err
	}
	b.register(client)
	return client, nil
}

func newClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &Client{
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}, nil
}

func (b *Broadcaster) register(client *Client) {
	b.mu.Lock()
	b.nextID++
	client.ID = fmt.Sprintf("client-%d", b.nextID)
	b.clients[client.ID] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client connected")
}

// RemoveClient removes a client connection. Safe to call more than once.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.close()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client disconnected")
}

// Publish sends a typed event to all connected clients.
func (b *Broadcaster) Publish(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Failed to marshal SSE data")
		return
	}
	b.broadcast(formatEvent(eventType, payload))
}

func formatEvent(eventType string, payload []byte) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload)
}

func (b *Broadcaster) broadcast(message string) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan *Client, len(clients))
	var wg sync.WaitGroup

	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				b.writeToClient(c, message, deadClientsCh)
			}(client)
		}
	}

	wg.Wait()
	close(deadClientsCh)

	for client := range deadClientsCh {
		log.Debug().Str("clientId", client.ID).Msg("Removing dead SSE client")
		b.RemoveClient(client)
	}
}

// writeToClient writes a message to a single client with timeout.
func (b *Broadcaster) writeToClient(client *Client, message string, deadCh chan<- *Client) {
	done := make(chan error, 1)

	go func() {
		client.writeMu.Lock()
		defer client.writeMu.Unlock()
		select {
		case <-client.Done:
			done <- nil
			return
		default:
		}
		if _, err := client.Writer.Write([]byte(message)); err != nil {
			done <- err
			return
		}
		client.Flusher.Flush()
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().
				Str("clientId", client.ID).
				Err(err).
				Msg("Failed to write to SSE client, marking for removal")
			deadCh <- client
		}
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, marking client for removal")
		deadCh <- client
	case <-client.Done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close ends every open stream. Further HandleSSE calls return at once.
func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() { close(b.shutdown) })
}

// HandleSSE handles an SSE connection request. initial, if non-nil, is
// written to the new client before any broadcast reaches it.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request, initial func(send func(eventType string, data any))) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := newClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Hold the write lock across registration so broadcasts queue behind
	// the initial events.
	client.writeMu.Lock()
	b.register(client)
	defer func() {
		b.RemoveClient(client)
		// Wait out any in-flight write before the handler returns.
		client.writeMu.Lock()
		client.writeMu.Unlock()
	}()

	send := func(eventType string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			log.Error().Err(err).Str("event", eventType).Msg("Failed to marshal SSE data")
			return
		}
		_, _ = fmt.Fprint(w, formatEvent(eventType, payload))
	}
	send(EventConnected, map[string]string{"clientId": client.ID})
	if initial != nil {
		initial(send)
	}
	client.Flusher.Flush()
	client.writeMu.Unlock()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-b.shutdown:
			return
		case <-client.Done:
			return
		case <-heartbeat.C:
			client.writeMu.Lock()
			_, err := fmt.Fprint(w, ": ping\n\n")
			if err == nil {
				client.Flusher.Flush()
			}
			client.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
