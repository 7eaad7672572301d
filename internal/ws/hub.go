package ws

import (
	"encoding/json"
	"sync"

	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
)

// ClaimEvent is pushed to a wallet's sockets on every status transition
type ClaimEvent struct {
	Type  string        `json:"type"`
	Claim *domain.Claim `json:"claim"`
}

// Hub fans claim status updates out to the wallet's connected sockets
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

// Register attaches a client to its wallet's feed
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.Wallet] == nil {
		h.clients[c.Wallet] = make(map[*Client]bool)
	}
	h.clients[c.Wallet][c] = true
}

// Unregister detaches a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.Wallet]; ok {
		if set[c] {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.Wallet)
		}
	}
}

// NotifyClaim pushes a claim update to every socket the wallet holds.
// A slow socket is dropped rather than allowed to block the worker.
func (h *Hub) NotifyClaim(wallet string, claim *domain.Claim) {
	payload, err := json.Marshal(ClaimEvent{Type: "claim_update", Claim: claim})
	if err != nil {
		logger.Error("failed to encode claim event", "error", err)
		return
	}

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients[wallet] {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.Unregister(c)
	}
}

// ClientCount reports how many sockets a wallet has open
func (h *Hub) ClientCount(wallet string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[wallet])
}
