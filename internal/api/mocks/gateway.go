// Package mocks provides testify mocks for the api package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// Gateway is a mock api.Gateway.
type Gateway struct {
	mock.Mock
}

func (m *Gateway) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	args := m.Called(ctx)
	topics, _ := args.Get(0).([]domain.Topic)
	return topics, args.Error(1)
}

func (m *Gateway) CreateTopic(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error) {
	args := m.Called(ctx, fields, files)
	return args.Get(0).(domain.Topic), args.Error(1)
}

func (m *Gateway) UpdateTopic(ctx context.Context, topicID string, update domain.TopicUpdate, files []domain.Attachment) (domain.Topic, error) {
	args := m.Called(ctx, topicID, update, files)
	return args.Get(0).(domain.Topic), args.Error(1)
}

func (m *Gateway) DeleteTopic(ctx context.Context, topicID string) error {
	args := m.Called(ctx, topicID)
	return args.Error(0)
}

func (m *Gateway) GetGraph(ctx context.Context, topicID string) (domain.Graph, error) {
	args := m.Called(ctx, topicID)
	return args.Get(0).(domain.Graph), args.Error(1)
}

func (m *Gateway) CreateNode(ctx context.Context, topicID, nodeType, title string) (domain.Node, error) {
	args := m.Called(ctx, topicID, nodeType, title)
	return args.Get(0).(domain.Node), args.Error(1)
}

func (m *Gateway) UpdateNode(ctx context.Context, topicID, nodeID string, fields domain.NodeFields) error {
	args := m.Called(ctx, topicID, nodeID, fields)
	return args.Error(0)
}

func (m *Gateway) DeleteNode(ctx context.Context, topicID, nodeID string) error {
	args := m.Called(ctx, topicID, nodeID)
	return args.Error(0)
}

func (m *Gateway) CreateEdge(ctx context.Context, topicID string, spec domain.EdgeSpec) (domain.Edge, error) {
	args := m.Called(ctx, topicID, spec)
	return args.Get(0).(domain.Edge), args.Error(1)
}

func (m *Gateway) DeleteEdge(ctx context.Context, topicID, sourceID, targetID string) error {
	args := m.Called(ctx, topicID, sourceID, targetID)
	return args.Error(0)
}

func (m *Gateway) ChatHistory(ctx context.Context, nodeID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, nodeID)
	history, _ := args.Get(0).([]domain.ChatMessage)
	return history, args.Error(1)
}

func (m *Gateway) SendChat(ctx context.Context, topicID, nodeID, prompt string) (string, error) {
	args := m.Called(ctx, topicID, nodeID, prompt)
	return args.String(0), args.Error(1)
}
