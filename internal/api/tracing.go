package api

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// TracerName is the instrumentation name used for gateway spans.
const TracerName = "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"

// DefaultTracer returns the gateway tracer from the global provider. It is a
// no-op until a provider is installed.
func DefaultTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// WithTracing wraps gw so every call runs in a span named "gateway.<Op>".
func WithTracing(gw Gateway, tracer trace.Tracer) Gateway {
	return &tracedGateway{inner: gw, tracer: tracer}
}

type tracedGateway struct {
	inner  Gateway
	tracer trace.Tracer
}

func (g *tracedGateway) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (g *tracedGateway) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	ctx, span := g.start(ctx, OpListTopics)
	topics, err := g.inner.ListTopics(ctx)
	span.SetAttributes(attribute.Int("topic.count", len(topics)))
	finish(span, err)
	return topics, err
}

func (g *tracedGateway) CreateTopic(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error) {
	ctx, span := g.start(ctx, OpCreateTopic, attribute.Int("files.count", len(files)))
	topic, err := g.inner.CreateTopic(ctx, fields, files)
	finish(span, err)
	return topic, err
}

func (g *tracedGateway) UpdateTopic(ctx context.Context, topicID string, update domain.TopicUpdate, files []domain.Attachment) (domain.Topic, error) {
	ctx, span := g.start(ctx, OpUpdateTopic,
		attribute.String("topic.id", topicID),
		attribute.Int("docs.kept", len(update.ExistingDocPaths)),
		attribute.Int("files.count", len(files)))
	topic, err := g.inner.UpdateTopic(ctx, topicID, update, files)
	finish(span, err)
	return topic, err
}

func (g *tracedGateway) DeleteTopic(ctx context.Context, topicID string) error {
	ctx, span := g.start(ctx, OpDeleteTopic, attribute.String("topic.id", topicID))
	err := g.inner.DeleteTopic(ctx, topicID)
	finish(span, err)
	return err
}

func (g *tracedGateway) GetGraph(ctx context.Context, topicID string) (domain.Graph, error) {
	ctx, span := g.start(ctx, OpGetGraph, attribute.String("topic.id", topicID))
	graph, err := g.inner.GetGraph(ctx, topicID)
	span.SetAttributes(
		attribute.Int("graph.nodes", len(graph.Nodes)),
		attribute.Int("graph.edges", len(graph.Edges)))
	finish(span, err)
	return graph, err
}

func (g *tracedGateway) CreateNode(ctx context.Context, topicID, nodeType, title string) (domain.Node, error) {
	ctx, span := g.start(ctx, OpCreateNode,
		attribute.String("topic.id", topicID),
		attribute.String("node.type", nodeType))
	node, err := g.inner.CreateNode(ctx, topicID, nodeType, title)
	span.SetAttributes(attribute.String("node.id", node.ID))
	finish(span, err)
	return node, err
}

func (g *tracedGateway) UpdateNode(ctx context.Context, topicID, nodeID string, fields domain.NodeFields) error {
	ctx, span := g.start(ctx, OpUpdateNode,
		attribute.String("topic.id", topicID),
		attribute.String("node.id", nodeID))
	err := g.inner.UpdateNode(ctx, topicID, nodeID, fields)
	finish(span, err)
	return err
}

func (g *tracedGateway) DeleteNode(ctx context.Context, topicID, nodeID string) error {
	ctx, span := g.start(ctx, OpDeleteNode,
		attribute.String("topic.id", topicID),
		attribute.String("node.id", nodeID))
	err := g.inner.DeleteNode(ctx, topicID, nodeID)
	finish(span, err)
	return err
}

func (g *tracedGateway) CreateEdge(ctx context.Context, topicID string, spec domain.EdgeSpec) (domain.Edge, error) {
	ctx, span := g.start(ctx, OpCreateEdge,
		attribute.String("topic.id", topicID),
		attribute.String("edge.source", spec.SourceID),
		attribute.String("edge.target", spec.TargetID))
	edge, err := g.inner.CreateEdge(ctx, topicID, spec)
	finish(span, err)
	return edge, err
}

func (g *tracedGateway) DeleteEdge(ctx context.Context, topicID, sourceID, targetID string) error {
	ctx, span := g.start(ctx, OpDeleteEdge,
		attribute.String("topic.id", topicID),
		attribute.String("edge.source", sourceID),
		attribute.String("edge.target", targetID))
	err := g.inner.DeleteEdge(ctx, topicID, sourceID, targetID)
	finish(span, err)
	return err
}

func (g *tracedGateway) ChatHistory(ctx context.Context, nodeID string) ([]domain.ChatMessage, error) {
	ctx, span := g.start(ctx, OpChatHistory, attribute.String("node.id", nodeID))
	history, err := g.inner.ChatHistory(ctx, nodeID)
	span.SetAttributes(attribute.Int("chat.messages", len(history)))
	finish(span, err)
	return history, err
}

func (g *tracedGateway) SendChat(ctx context.Context, topicID, nodeID, prompt string) (string, error) {
	ctx, span := g.start(ctx, OpSendChat,
		attribute.String("topic.id", topicID),
		attribute.String("node.id", nodeID),
		attribute.Int("prompt.length", len(prompt)))
	reply, err := g.inner.SendChat(ctx, topicID, nodeID, prompt)
	finish(span, err)
	return reply, err
}
