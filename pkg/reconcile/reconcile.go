// Package reconcile keeps a client-side mirror of post state in sync
// with the server. Two inputs feed it: pushed events (full snapshots,
// merged last-write-wins by server timestamp) and the responses of the
// client's own optimistic mutations. Every optimistic mutation goes
// through one Speculate/Commit/Rollback cycle so a failed request can
// never leave a partially-applied guess behind.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
)

// PostView is the locally mirrored snapshot of one post.
type PostView struct {
	PostID           int64                  `json:"post_id"`
	DealToggleStatus model.DealToggleStatus `json:"deal_toggle_status"`
	DealResult       string                 `json:"deal_result"`
	PostStatus       model.PostStatus       `json:"post_status"`
	IsActive         bool                   `json:"is_active"`
	ValidityPeriod   int                    `json:"validity_period"`
	ExpiresAt        time.Time              `json:"expires_at"`

	// UpdatedAt is the server timestamp of the last authoritative
	// merge. Speculative changes never advance it.
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	mu    sync.Mutex
	views map[int64]PostView
}

func NewStore() *Store {
	return &Store{
		views: make(map[int64]PostView),
	}
}

func (s *Store) Get(postID int64) (PostView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[postID]
	return view, ok
}

// Put replaces a view with an authoritative snapshot, e.g. from a REST
// refetch after reconnecting. Missed events are never replayed; this is
// how a client catches up.
func (s *Store) Put(view PostView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.PostID] = view
}

// ApplyEvent merges a pushed snapshot. Out-of-order delivery for the
// same post resolves by the newer server timestamp winning; a stale
// event is dropped and false is returned.
func (s *Store) ApplyEvent(event dto.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.views[event.PostID]
	if !view.UpdatedAt.Before(event.Timestamp) {
		return false
	}

	view.PostID = event.PostID
	switch data := event.Data.(type) {
	case dto.DealStatusChangedEvent:
		view.DealToggleStatus = data.DealToggleStatus
		view.DealResult = data.DealResult
		view.PostStatus = data.PostStatus
		view.IsActive = data.IsActive
	case dto.ValidityUpdatedEvent:
		view.ValidityPeriod = data.ValidityPeriod
		view.ExpiresAt = data.ExpiresAt
		view.PostStatus = data.PostStatus
		view.IsActive = data.IsActive
	case dto.RevivedEvent:
		view.ValidityPeriod = data.ValidityPeriod
		view.ExpiresAt = data.ExpiresAt
		view.PostStatus = model.PostActive
		view.IsActive = true
	default:
		return false
	}

	view.UpdatedAt = event.Timestamp
	s.views[event.PostID] = view
	return true
}

// Run consumes the typed event queue until the context ends or the
// channel closes. All merges funnel through this single consumer, so
// pushed updates never race each other.
func (s *Store) Run(ctx context.Context, events <-chan dto.Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			s.ApplyEvent(event)
		case <-ctx.Done():
			return
		}
	}
}

type wireEvent struct {
	Type      dto.EventType   `json:"type"`
	PostID    int64           `json:"post_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DecodeEvent turns a raw websocket frame back into a typed event.
func DecodeEvent(payload []byte) (dto.Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return dto.Event{}, err
	}

	event := dto.Event{
		Type:      wire.Type,
		PostID:    wire.PostID,
		Timestamp: wire.Timestamp,
	}

	switch wire.Type {
	case dto.EventDealStatusChanged:
		var data dto.DealStatusChangedEvent
		if err := json.Unmarshal(wire.Data, &data); err != nil {
			return dto.Event{}, err
		}
		event.Data = data
	case dto.EventValidityUpdated:
		var data dto.ValidityUpdatedEvent
		if err := json.Unmarshal(wire.Data, &data); err != nil {
			return dto.Event{}, err
		}
		event.Data = data
	case dto.EventRevived:
		var data dto.RevivedEvent
		if err := json.Unmarshal(wire.Data, &data); err != nil {
			return dto.Event{}, err
		}
		event.Data = data
	default:
		return dto.Event{}, fmt.Errorf("unknown event type: %s", wire.Type)
	}

	return event, nil
}

// Speculation is one in-flight optimistic mutation: prior state is
// snapshotted before the guess is applied, then either the server's
// answer replaces the guess or the snapshot is restored exactly.
type Speculation struct {
	store    *Store
	postID   int64
	snapshot PostView
	existed  bool
	resolved bool
}

// Speculate snapshots the current view and applies the speculative
// change atomically.
func (s *Store) Speculate(postID int64, mutate func(*PostView)) *Speculation {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, existed := s.views[postID]

	view := snapshot
	view.PostID = postID
	mutate(&view)
	s.views[postID] = view

	return &Speculation{
		store:    s,
		postID:   postID,
		snapshot: snapshot,
		existed:  existed,
	}
}

// Commit merges the server's authoritative response. The server view
// wins wholesale over whatever the speculation guessed.
func (sp *Speculation) Commit(server PostView) {
	sp.store.mu.Lock()
	defer sp.store.mu.Unlock()

	if sp.resolved {
		return
	}
	sp.resolved = true

	server.PostID = sp.postID
	sp.store.views[sp.postID] = server
}

// Rollback restores the pre-speculation state exactly, removing the
// view entirely if it did not exist before.
func (sp *Speculation) Rollback() {
	sp.store.mu.Lock()
	defer sp.store.mu.Unlock()

	if sp.resolved {
		return
	}
	sp.resolved = true

	if !sp.existed {
		delete(sp.store.views, sp.postID)
		return
	}
	sp.store.views[sp.postID] = sp.snapshot
}
