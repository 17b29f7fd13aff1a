// Package topics owns the topic list and the active topic.
package topics

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

// GraphLoader is the part of the graph store driven by a topic switch.
type GraphLoader interface {
	Reset()
	Load(ctx context.Context, topicID string) error
}

// SelectionClearer drops the current node selection.
type SelectionClearer interface {
	Clear()
}

// Registry holds the topics in backend order and the active topic id.
type Registry struct {
	mu       sync.RWMutex
	topics   []domain.Topic
	activeID string
	err      error
	// activating is set while a default activation is in flight so a
	// concurrent refresh does not start a second one.
	activating bool

	gateway   api.Gateway
	graph     GraphLoader
	selection SelectionClearer
	bus       *events.Bus
	logger    *zap.Logger
}

// NewRegistry creates a registry with no topics and none active.
func NewRegistry(gateway api.Gateway, graph GraphLoader, selection SelectionClearer, bus *events.Bus, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		gateway:   gateway,
		graph:     graph,
		selection: selection,
		bus:       bus,
		logger:    logger.Named("topics"),
	}
}

// Refresh fetches the topic list. On failure the previous list is kept and
// the error is exposed through Err.
//
// When no topic is active and the list is not empty, the first topic is
// switched to. The switch refreshes once more; that refresh finds an active
// topic, so activation happens exactly once.
func (r *Registry) Refresh(ctx context.Context) error {
	topics, err := r.gateway.ListTopics(ctx)

	r.mu.Lock()
	if err != nil {
		r.err = err
		r.mu.Unlock()
		r.logger.Warn("Topic list refresh failed", zap.Error(err))
		r.bus.Publish(events.Event{Type: events.TopicsFailed, Err: err})
		return err
	}
	r.topics = topics
	r.err = nil
	var activate string
	if r.activeID == "" && len(topics) > 0 && !r.activating {
		activate = topics[0].ID
		r.activating = true
	}
	r.mu.Unlock()

	r.bus.Publish(events.Event{Type: events.TopicsChanged, Count: len(topics)})

	if activate == "" {
		return nil
	}
	defer func() {
		r.mu.Lock()
		r.activating = false
		r.mu.Unlock()
	}()
	r.logger.Info("Activating first topic", zap.String("topicID", activate))
	return r.Switch(ctx, activate)
}

// Switch makes id the active topic: the graph is reset, the selection
// cleared, the graph of id loaded, and the list refreshed so the active
// highlight is recomputed. A load failure is returned after the refresh.
func (r *Registry) Switch(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError(apperrors.CodeNoActiveTopic, "a topic id is required")
	}

	r.mu.Lock()
	r.activeID = id
	r.mu.Unlock()
	r.bus.Publish(events.Event{Type: events.ActiveTopicChanged, TopicID: id})

	r.graph.Reset()
	r.selection.Clear()
	loadErr := r.graph.Load(ctx, id)
	refreshErr := r.Refresh(ctx)

	if loadErr != nil {
		return loadErr
	}
	return refreshErr
}

// Create submits a new topic with its files and refreshes the list. The new
// topic is not activated.
func (r *Registry) Create(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	if fields.Name == "" {
		return domain.Topic{}, apperrors.NewValidationError(apperrors.CodeNameRequired, "topic name is required")
	}
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return domain.Topic{}, apperrors.NewValidationError(apperrors.CodeInvalidAttachment, err.Error())
		}
	}

	topic, err := r.gateway.CreateTopic(ctx, fields, files)
	if err != nil {
		return domain.Topic{}, err
	}
	r.logger.Info("Topic created", zap.String("topicID", topic.ID), zap.Int("files", len(files)))

	return topic, r.Refresh(ctx)
}

// Views returns the topics in backend order with Active computed from the
// active id.
func (r *Registry) Views() []domain.TopicView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	views := make([]domain.TopicView, len(r.topics))
	for i, t := range r.topics {
		views[i] = domain.TopicView{Topic: t.Clone(), Active: t.ID == r.activeID}
	}
	return views
}

// Topic returns a known topic by id.
func (r *Registry) Topic(id string) (domain.Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.topics {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Topic{}, false
}

// ActiveID returns the active topic id, or "".
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Err returns the error of the last refresh, or nil if it succeeded.
func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}
