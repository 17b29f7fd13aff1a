// Package editsession holds the working copy of a topic being edited.
//
// At most one session exists. Opening a topic while another is open
// discards the previous working copy. Nothing is sent to the backend until
// Submit, and Submit sends everything in one request.
package editsession

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

// Refresher reloads the topic list after a successful submit.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type workingCopy struct {
	topic    domain.Topic
	fields   domain.TopicFields
	docPaths []string
	pending  []domain.Attachment
}

// Session is the edit session holder.
type Session struct {
	mu      sync.RWMutex
	current *workingCopy

	gateway   api.Gateway
	refresher Refresher
	bus       *events.Bus
	logger    *zap.Logger
}

// New creates a holder with no open session.
func New(gateway api.Gateway, refresher Refresher, bus *events.Bus, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		gateway:   gateway,
		refresher: refresher,
		bus:       bus,
		logger:    logger.Named("editsession"),
	}
}

// Open starts editing topic, replacing any open session.
func (s *Session) Open(topic domain.Topic) {
	wc := &workingCopy{
		topic:    topic.Clone(),
		fields:   topic.Fields(),
		docPaths: append([]string{}, topic.DocPaths...),
	}

	s.mu.Lock()
	replaced := s.current != nil && s.current.topic.ID != topic.ID
	s.current = wc
	s.mu.Unlock()

	if replaced {
		s.logger.Debug("Discarding previous edit session", zap.String("topicID", topic.ID))
	}
	s.changed(topic.ID)
}

// RemoveDocument drops the document path at index from the working copy.
// An index out of range, or no open session, is a no-op and returns false.
func (s *Session) RemoveDocument(index int) bool {
	s.mu.Lock()
	if s.current == nil || index < 0 || index >= len(s.current.docPaths) {
		s.mu.Unlock()
		return false
	}
	paths := s.current.docPaths
	s.current.docPaths = append(paths[:index:index], paths[index+1:]...)
	topicID := s.current.topic.ID
	s.mu.Unlock()

	s.changed(topicID)
	return true
}

// AddFile adds a file to the pending upload set.
func (s *Session) AddFile(file domain.Attachment) error {
	if err := file.Validate(); err != nil {
		return apperrors.NewValidationError(apperrors.CodeInvalidAttachment, err.Error())
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return errNoSession()
	}
	s.current.pending = append(s.current.pending, file)
	topicID := s.current.topic.ID
	s.mu.Unlock()

	s.changed(topicID)
	return nil
}

// Submit sends fields, the surviving document paths and the new files as
// one update. newFiles, when not nil, replaces the pending upload set.
//
// On success the session closes and the topic list is refreshed; a refresh
// failure is reported by the registry, not here. On failure the session
// stays open with its pending files so the user can retry or cancel.
func (s *Session) Submit(ctx context.Context, fields domain.TopicFields, newFiles []domain.Attachment) (domain.Topic, error) {
	return s.submit(ctx, func(domain.TopicFields) domain.TopicFields { return fields }, newFiles)
}

// SubmitChanges is Submit with only the fields set in patch changed; the
// rest keep the values the topic had when the session opened.
func (s *Session) SubmitChanges(ctx context.Context, patch domain.TopicPatch, newFiles []domain.Attachment) (domain.Topic, error) {
	return s.submit(ctx, patch.Apply, newFiles)
}

func (s *Session) submit(ctx context.Context, edit func(domain.TopicFields) domain.TopicFields, newFiles []domain.Attachment) (domain.Topic, error) {
	for _, f := range newFiles {
		if err := f.Validate(); err != nil {
			return domain.Topic{}, apperrors.NewValidationError(apperrors.CodeInvalidAttachment, err.Error())
		}
	}

	s.mu.Lock()
	wc := s.current
	if wc == nil {
		s.mu.Unlock()
		return domain.Topic{}, errNoSession()
	}
	fields := edit(wc.fields)
	fields.Name = strings.TrimSpace(fields.Name)
	if fields.Name == "" {
		s.mu.Unlock()
		return domain.Topic{}, apperrors.NewValidationError(apperrors.CodeNameRequired, "topic name is required")
	}
	if newFiles != nil {
		wc.pending = append([]domain.Attachment(nil), newFiles...)
	}
	topicID := wc.topic.ID
	update := domain.TopicUpdate{
		TopicFields:      fields,
		ExistingDocPaths: append([]string{}, wc.docPaths...),
	}
	files := append([]domain.Attachment(nil), wc.pending...)
	s.mu.Unlock()

	topic, err := s.gateway.UpdateTopic(ctx, topicID, update, files)
	if err != nil {
		s.logger.Warn("Topic update failed", zap.String("topicID", topicID), zap.Error(err))
		return domain.Topic{}, err
	}

	s.mu.Lock()
	// A session opened while the request was in flight is not ours to close.
	closed := s.current == wc
	if closed {
		s.current = nil
	}
	s.mu.Unlock()
	if closed {
		s.changed(topicID)
	}

	s.logger.Info("Topic updated",
		zap.String("topicID", topicID),
		zap.Int("docs_kept", len(update.ExistingDocPaths)),
		zap.Int("files_added", len(files)))

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("Topic list refresh after update failed", zap.Error(err))
	}
	return topic, nil
}

// Cancel discards the session without contacting the backend.
func (s *Session) Cancel() {
	s.mu.Lock()
	wc := s.current
	s.current = nil
	s.mu.Unlock()

	if wc != nil {
		s.changed(wc.topic.ID)
	}
}

// IsOpen reports whether a session is open.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// TopicID returns the id of the topic being edited, or "".
func (s *Session) TopicID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.topic.ID
}

// Topic returns the topic as it was when the session opened.
func (s *Session) Topic() (domain.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Topic{}, false
	}
	return s.current.topic.Clone(), true
}

// Fields returns the metadata a submit starts from.
func (s *Session) Fields() (domain.TopicFields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.TopicFields{}, false
	}
	return s.current.fields, true
}

// DocPaths returns the working copy of document paths.
func (s *Session) DocPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return append([]string{}, s.current.docPaths...)
}

// PendingFiles returns the names of files waiting to be uploaded.
func (s *Session) PendingFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	names := make([]string, len(s.current.pending))
	for i, f := range s.current.pending {
		names[i] = f.Name
	}
	return names
}

func (s *Session) changed(topicID string) {
	s.bus.Publish(events.Event{Type: events.EditSessionChanged, TopicID: topicID})
}

func errNoSession() error {
	return apperrors.NewValidationError(apperrors.CodeNoEditSession, "no topic is being edited")
}
