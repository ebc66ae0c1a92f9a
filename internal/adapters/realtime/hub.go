package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"freeday/internal/domain"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// CommentCreatedEvent is the frame pushed to post subscribers when a comment is added.
type CommentCreatedEvent struct {
	Type    string          `json:"type"`
	PostID  string          `json:"post_id"`
	Comment *domain.Comment `json:"comment"`
}

const commentCreatedType = "comment.created"

// Hub fans out comment events to the clients watching a post.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

type message struct {
	postID  string
	payload []byte
}

type subscription struct {
	postID string
	client Subscriber
}

// NewHub creates a Hub and starts its loop. Call Stop on shutdown.
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, 64),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.postID]; !ok {
				h.clients[sub.postID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.postID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.postID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.postID)
				}
			}
		case msg := <-h.broadcast:
			clients, ok := h.clients[msg.postID]
			if !ok {
				continue
			}
			for c := range clients {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if len(clients) == 0 {
				delete(h.clients, msg.postID)
			}
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = nil
			return
		}
	}
}

// Register adds a client to a post stream.
func (h *Hub) Register(postID string, client Subscriber) {
	select {
	case h.register <- subscription{postID: postID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(postID string, client Subscriber) {
	select {
	case h.unreg <- subscription{postID: postID, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to every client of the post.
func (h *Hub) Broadcast(postID string, payload []byte) {
	select {
	case h.broadcast <- message{postID: postID, payload: payload}:
	case <-h.done:
	}
}

// PublishComment implements domain.CommentPublisher.
func (h *Hub) PublishComment(postID string, comment *domain.Comment) {
	payload, err := json.Marshal(CommentCreatedEvent{Type: commentCreatedType, PostID: postID, Comment: comment})
	if err != nil {
		h.logger.Error("marshal comment event", "post_id", postID, "err", err)
		return
	}
	h.Broadcast(postID, payload)
}

// Stop closes every client and ends the loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
