// Package chat holds the transcript of the selected node.
package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

// TopicSource tells the session which topic chat requests belong to.
type TopicSource interface {
	TopicID() string
}

// Session is bound to at most one node at a time. Load binds it, Clear
// unbinds it.
type Session struct {
	mu      sync.RWMutex
	nodeID  string
	entries []domain.TranscriptEntry
	// binding changes on every Load and Clear; replies for an older
	// binding are dropped.
	binding uint64
	loadErr error

	gateway api.Gateway
	topics  TopicSource
	bus     *events.Bus
	logger  *zap.Logger
}

// NewSession creates an unbound session.
func NewSession(gateway api.Gateway, topics TopicSource, bus *events.Bus, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		gateway: gateway,
		topics:  topics,
		bus:     bus,
		logger:  logger.Named("chat"),
	}
}

// Load binds the session to nodeID and replaces the transcript with the
// node's backend history, in backend order. Entries sent while the history
// was loading are kept after it. A failed load leaves an error entry in the
// transcript and is reported by Err until the next Load or Clear.
func (s *Session) Load(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	s.binding++
	binding := s.binding
	s.nodeID = nodeID
	s.entries = nil
	s.loadErr = nil
	s.mu.Unlock()
	s.publish(nodeID)

	history, err := s.gateway.ChatHistory(ctx, nodeID)

	s.mu.Lock()
	if binding != s.binding {
		s.mu.Unlock()
		return nil
	}
	sent := s.entries
	if err != nil {
		s.loadErr = err
		failed := domain.NewTranscriptEntry(domain.RoleError, "could not load history: "+apperrors.UserMessage(err), domain.StatusFailed)
		s.entries = append([]domain.TranscriptEntry{failed}, sent...)
	} else {
		s.entries = append(domain.TranscriptFromHistory(history), sent...)
	}
	s.mu.Unlock()
	s.publish(nodeID)

	if err != nil {
		s.logger.Warn("Chat history load failed", zap.String("nodeID", nodeID), zap.Error(err))
		return err
	}
	return nil
}

// Clear unbinds the session and empties the transcript.
func (s *Session) Clear() {
	s.mu.Lock()
	s.binding++
	changed := s.nodeID != "" || len(s.entries) > 0
	s.nodeID = ""
	s.entries = nil
	s.loadErr = nil
	s.mu.Unlock()

	if changed {
		s.publish("")
	}
}

// Send asks the backend about nodeID, which must be the node the session is
// bound to. The human entry is shown as pending right away; it becomes
// confirmed and is followed by the reply on success, or becomes failed and
// is followed by an error entry on failure.
func (s *Session) Send(ctx context.Context, nodeID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperrors.NewValidationError(apperrors.CodePromptRequired, "a message is required")
	}

	s.mu.Lock()
	if nodeID == "" || s.nodeID != nodeID {
		s.mu.Unlock()
		return "", apperrors.NewValidationError(apperrors.CodeNoSelection, "select a node before chatting")
	}
	topicID := s.topics.TopicID()
	if topicID == "" {
		s.mu.Unlock()
		return "", apperrors.NewValidationError(apperrors.CodeNoActiveTopic, "a topic must be selected")
	}
	binding := s.binding
	human := domain.NewTranscriptEntry(domain.RoleHuman, prompt, domain.StatusPending)
	s.entries = append(s.entries, human)
	s.mu.Unlock()
	s.publish(nodeID)

	reply, err := s.gateway.SendChat(ctx, topicID, nodeID, prompt)

	s.mu.Lock()
	if binding != s.binding {
		s.mu.Unlock()
		return reply, err
	}
	if err != nil {
		s.setStatus(human.ID, domain.StatusFailed)
		s.entries = append(s.entries, domain.NewTranscriptEntry(domain.RoleError, apperrors.UserMessage(err), domain.StatusFailed))
	} else {
		s.setStatus(human.ID, domain.StatusConfirmed)
		s.entries = append(s.entries, domain.NewTranscriptEntry(domain.RoleAI, reply, domain.StatusConfirmed))
	}
	s.mu.Unlock()
	s.publish(nodeID)

	if err != nil {
		s.logger.Warn("Chat send failed", zap.String("nodeID", nodeID), zap.Error(err))
	}
	return reply, err
}

// setStatus requires s.mu to be held.
func (s *Session) setStatus(entryID string, status domain.EntryStatus) {
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries[i].Status = status
			return
		}
	}
}

// NodeID returns the bound node, or "".
func (s *Session) NodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeID
}

// Err returns the error of the last history load, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Transcript returns a copy of the displayed entries.
func (s *Session) Transcript() []domain.TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TranscriptEntry(nil), s.entries...)
}

func (s *Session) publish(nodeID string) {
	s.mu.RLock()
	count := len(s.entries)
	s.mu.RUnlock()
	s.bus.Publish(events.Event{Type: events.TranscriptChanged, NodeID: nodeID, Count: count})
}
