package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// event is a single server-sent event.
type event struct {
	name string
	data string
}

// client represents a single SSE connection.
type client struct {
	ch       chan event
	playerID string
}

// Broadcaster manages SSE clients grouped by player. A player may have
// several tabs open.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
	}
}

// Register adds a client for a player and returns it.
func (b *Broadcaster) Register(playerID string) *client {
	c := &client{
		ch:       make(chan event, sseChannelBuffer),
		playerID: playerID,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Send delivers an event to every connection of one player.
func (b *Broadcaster) Send(playerID, name, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.playerID == playerID {
			c.offer(event{name: name, data: data})
		}
	}
}

// Broadcast delivers an event to every connected client.
func (b *Broadcaster) Broadcast(name, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		c.offer(event{name: name, data: data})
	}
}

func (c *client) offer(e event) {
	select {
	case c.ch <- e:
	default:
		// Channel full, skip slow client.
	}
}

// ClientCount returns the number of open connections for a player.
func (b *Broadcaster) ClientCount(playerID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.playerID == playerID {
			n++
		}
	}
	return n
}

// ServeSSE streams events for a player until the request ends.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, playerID string, onConnect func(c *client)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := b.Register(playerID)
	defer b.Unregister(c)

	if onConnect != nil {
		onConnect(c)
	}
	flusher.Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
