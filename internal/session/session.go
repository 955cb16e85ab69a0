// Package session tracks per-session conversation history with a fixed
// retention window. History is stored as plain text exchanges and converted
// to model messages on demand, so stored state is never shared with (or
// mutated by) the generation layer.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// DefaultMaxExchanges is how many user/assistant exchanges a session keeps.
// Older exchanges are evicted first-in first-out.
const DefaultMaxExchanges = 2

// ErrSessionNotFound indicates an operation referenced a session ID that
// does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Exchange is one completed user/assistant turn.
type Exchange struct {
	UserMessage      string
	AssistantMessage string
}

// Store holds all sessions in memory. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	maxExchanges int
	logger       *slog.Logger
	sessions     map[string][]Exchange
}

// NewStore creates a session store keeping up to maxExchanges exchanges per
// session. Non-positive values fall back to DefaultMaxExchanges.
func NewStore(maxExchanges int, logger *slog.Logger) *Store {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		maxExchanges: maxExchanges,
		logger:       logger,
		sessions:     make(map[string][]Exchange),
	}
}

// Create registers a new empty session and returns its ID.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	s.logger.Debug("session created", "session_id", id)
	return id
}

// Append records one completed exchange, creating the session implicitly if
// the ID is unknown. When the retention window is full, the oldest exchange
// is evicted.
func (s *Store) Append(id, userMessage, assistantMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := append(s.sessions[id], Exchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	})
	if len(exchanges) > s.maxExchanges {
		exchanges = exchanges[len(exchanges)-s.maxExchanges:]
	}
	s.sessions[id] = exchanges
}

// Messages returns the session history as freshly built model messages in
// chronological order. Unknown sessions yield nil.
func (s *Store) Messages(id string) []*ai.Message {
	s.mu.RLock()
	exchanges := s.sessions[id]
	msgs := make([]*ai.Message, 0, len(exchanges)*2)
	for _, e := range exchanges {
		msgs = append(msgs,
			ai.NewUserMessage(ai.NewTextPart(e.UserMessage)),
			ai.NewModelMessage(ai.NewTextPart(e.AssistantMessage)),
		)
	}
	s.mu.RUnlock()

	if len(msgs) == 0 {
		return nil
	}
	return msgs
}

// Exists reports whether the session ID is known.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Delete removes a session and its history.
// Returns ErrSessionNotFound for unknown IDs.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
