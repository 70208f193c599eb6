package state

import (
	"context"
	"sync"
)

// Stage is the transient conversation stage of a single user. Verified
// users with no pending interaction have no entry at all.
const (
	StageAwaitingWallet = "awaiting_wallet"
)

// Conversation is the per-user conversation state. PendingReferrer holds a
// referral argument seen before the user passed verification, so the ledger
// row created on a later successful check still credits the referrer.
type Conversation struct {
	Stage           string `json:"stage,omitempty"`
	PendingReferrer int64  `json:"pending_referrer,omitempty"`
}

// Store keeps per-user conversation state. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, userID int64) (Conversation, error)
	Set(ctx context.Context, userID int64, conv Conversation) error
	Clear(ctx context.Context, userID int64) error
}

// memoryStore is the in-process fallback used when redis is not configured,
// and in tests. State is lost on restart.
type memoryStore struct {
	mu     sync.RWMutex
	states map[int64]Conversation
}

func NewMemory() Store {
	return &memoryStore{states: make(map[int64]Conversation)}
}

func (s *memoryStore) Get(_ context.Context, userID int64) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[userID], nil
}

func (s *memoryStore) Set(_ context.Context, userID int64, conv Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = conv
	return nil
}

func (s *memoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
