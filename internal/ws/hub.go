package ws

import (
	"context"
	"encoding/json"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ownerMessage struct {
	ownerID uuid.UUID
	payload []byte
}

// Hub routes deal lifecycle events to the affected post owner's open
// sessions only. Delivery is at-most-once and best-effort: nothing is
// queued for disconnected sessions, a reconnecting client refetches
// state over REST instead of waiting for a replay.
type Hub struct {
	logger *zap.Logger

	register   chan *Client
	unregister chan *Client
	events     chan ownerMessage

	// closed when Run exits, so attach/detach never block on a hub
	// that is no longer draining its channels
	done chan struct{}

	// ownerID -> that owner's open sessions
	sessions map[uuid.UUID]map[*Client]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan ownerMessage, 256),
		done:       make(chan struct{}),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
	}
}

// Publish fans an event out to every open session of the owner.
// Fire-and-forget: a full hub drops the event rather than blocking the
// request that produced it.
func (h *Hub) Publish(ownerID uuid.UUID, event dto.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Sugar().Errorf("failed to marshal event(%s) for post(%d): %s", event.Type, event.PostID, err.Error())
		return
	}

	select {
	case h.events <- ownerMessage{ownerID: ownerID, payload: payload}:
	default:
		h.logger.Sugar().Warnf("event bus is full, dropping event(%s) for post(%d)", event.Type, event.PostID)
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			clients, exists := h.sessions[client.userID]
			if !exists {
				clients = make(map[*Client]bool)
				h.sessions[client.userID] = clients
			}
			clients[client] = true

		case client := <-h.unregister:
			if clients, exists := h.sessions[client.userID]; exists {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.sessions, client.userID)
					}
				}
			}

		case msg := <-h.events:
			for client := range h.sessions[msg.ownerID] {
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer: drop the session, the client
					// reconciles with a full refetch on reconnect.
					delete(h.sessions[msg.ownerID], client)
					close(client.send)
				}
			}
			if len(h.sessions[msg.ownerID]) == 0 {
				delete(h.sessions, msg.ownerID)
			}

		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					close(client.send)
				}
			}
			close(h.done)
			return
		}
	}
}

func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// detach is how pumps leave the hub; it returns immediately when Run
// has already exited instead of blocking on a channel nobody reads.
func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
