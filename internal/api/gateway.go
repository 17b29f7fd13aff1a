// Package api is the typed boundary between the client and the knowledge
// graph backend.
//
// Every operation either returns a decoded payload or fails with a
// REQUEST_FAILURE AppError whose message is the backend's "detail" field
// when present, else a transport description. Nothing is retried here;
// callers decide what to do with their optimistic state.
package api

import (
	"context"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// Gateway is implemented by HTTPGateway and by the metrics and tracing
// decorators that wrap it.
type Gateway interface {
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	CreateTopic(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error)
	UpdateTopic(ctx context.Context, topicID string, update domain.TopicUpdate, files []domain.Attachment) (domain.Topic, error)
	DeleteTopic(ctx context.Context, topicID string) error

	GetGraph(ctx context.Context, topicID string) (domain.Graph, error)

	CreateNode(ctx context.Context, topicID, nodeType, title string) (domain.Node, error)
	UpdateNode(ctx context.Context, topicID, nodeID string, fields domain.NodeFields) error
	DeleteNode(ctx context.Context, topicID, nodeID string) error

	CreateEdge(ctx context.Context, topicID string, spec domain.EdgeSpec) (domain.Edge, error)
	DeleteEdge(ctx context.Context, topicID, sourceID, targetID string) error

	ChatHistory(ctx context.Context, nodeID string) ([]domain.ChatMessage, error)
	SendChat(ctx context.Context, topicID, nodeID, prompt string) (string, error)
}

// Operation names, used for error context, metrics labels and span names.
const (
	OpListTopics  = "ListTopics"
	OpCreateTopic = "CreateTopic"
	OpUpdateTopic = "UpdateTopic"
	OpDeleteTopic = "DeleteTopic"
	OpGetGraph    = "GetGraph"
	OpCreateNode  = "CreateNode"
	OpUpdateNode  = "UpdateNode"
	OpDeleteNode  = "DeleteNode"
	OpCreateEdge  = "CreateEdge"
	OpDeleteEdge  = "DeleteEdge"
	OpChatHistory = "ChatHistory"
	OpSendChat    = "SendChat"
)
