package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

// RequestIDHeader carries a per-call id so client and backend logs line up.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// HTTPGateway talks to the backend's REST surface.
type HTTPGateway struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPGateway creates a gateway for cfg.APIBaseURL. A nil client uses
// http.DefaultClient.
func NewHTTPGateway(cfg *config.Config, client *http.Client, logger *zap.Logger) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		timeout: cfg.RequestTimeout,
		client:  client,
		logger:  logger,
	}
}

// ============================================================================
// TOPICS
// ============================================================================

func (g *HTTPGateway) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	var topics []domain.Topic
	if err := g.do(ctx, OpListTopics, request{method: http.MethodGet, path: "/topics"}, &topics); err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []domain.Topic{}
	}
	return topics, nil
}

func (g *HTTPGateway) CreateTopic(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error) {
	body, contentType, err := encodeTopicForm(fields, nil, false, files)
	if err != nil {
		return domain.Topic{}, apperrors.NewRequestFailure(OpCreateTopic, err.Error(), 0, err)
	}
	var topic domain.Topic
	err = g.do(ctx, OpCreateTopic, request{
		method:      http.MethodPost,
		path:        "/topics",
		body:        body,
		contentType: contentType,
	}, &topic)
	return topic, err
}

func (g *HTTPGateway) UpdateTopic(ctx context.Context, topicID string, update domain.TopicUpdate, files []domain.Attachment) (domain.Topic, error) {
	body, contentType, err := encodeTopicForm(update.TopicFields, update.ExistingDocPaths, true, files)
	if err != nil {
		return domain.Topic{}, apperrors.NewRequestFailure(OpUpdateTopic, err.Error(), 0, err)
	}
	var topic domain.Topic
	err = g.do(ctx, OpUpdateTopic, request{
		method:      http.MethodPut,
		path:        "/topics/" + url.PathEscape(topicID),
		body:        body,
		contentType: contentType,
	}, &topic)
	return topic, err
}

func (g *HTTPGateway) DeleteTopic(ctx context.Context, topicID string) error {
	return g.do(ctx, OpDeleteTopic, request{method: http.MethodDelete, path: "/topics/" + url.PathEscape(topicID)}, nil)
}

// ============================================================================
// GRAPH
// ============================================================================

func (g *HTTPGateway) GetGraph(ctx context.Context, topicID string) (domain.Graph, error) {
	var graph domain.Graph
	err := g.do(ctx, OpGetGraph, request{
		method: http.MethodGet,
		path:   "/graph",
		query:  url.Values{"topic_id": {topicID}},
	}, &graph)
	if err != nil {
		return domain.Graph{}, err
	}
	if graph.Nodes == nil {
		graph.Nodes = []domain.Node{}
	}
	if graph.Edges == nil {
		graph.Edges = []domain.Edge{}
	}
	return graph, nil
}

type createNodeRequest struct {
	NodeType string `json:"node_type"`
	Title    string `json:"title"`
}

func (g *HTTPGateway) CreateNode(ctx context.Context, topicID, nodeType, title string) (domain.Node, error) {
	var node domain.Node
	err := g.doJSON(ctx, OpCreateNode, http.MethodPost, "/nodes", url.Values{"topic_id": {topicID}},
		createNodeRequest{NodeType: nodeType, Title: title}, &node)
	return node, err
}

func (g *HTTPGateway) UpdateNode(ctx context.Context, topicID, nodeID string, fields domain.NodeFields) error {
	if fields.Tags == nil {
		fields.Tags = []string{}
	}
	return g.doJSON(ctx, OpUpdateNode, http.MethodPut, "/nodes/"+url.PathEscape(nodeID),
		url.Values{"topic_id": {topicID}}, fields, nil)
}

func (g *HTTPGateway) DeleteNode(ctx context.Context, topicID, nodeID string) error {
	return g.do(ctx, OpDeleteNode, request{
		method: http.MethodDelete,
		path:   "/nodes/" + url.PathEscape(nodeID),
		query:  url.Values{"topic_id": {topicID}},
	}, nil)
}

// CreateEdge returns the edge as echoed by the backend. Backends that only
// acknowledge the creation get an edge built from the request, without an id.
func (g *HTTPGateway) CreateEdge(ctx context.Context, topicID string, spec domain.EdgeSpec) (domain.Edge, error) {
	var edge domain.Edge
	err := g.doJSON(ctx, OpCreateEdge, http.MethodPost, "/edges", url.Values{"topic_id": {topicID}}, spec, &edge)
	if err != nil {
		return domain.Edge{}, err
	}
	if edge.Source == "" && edge.Target == "" {
		edge.Source, edge.Target = spec.SourceID, spec.TargetID
		edge.Label = spec.Label
	}
	if edge.Type == "" {
		edge.Type = spec.EdgeType
	}
	return edge, nil
}

func (g *HTTPGateway) DeleteEdge(ctx context.Context, topicID, sourceID, targetID string) error {
	return g.do(ctx, OpDeleteEdge, request{
		method: http.MethodDelete,
		path:   "/edges",
		query: url.Values{
			"source_id": {sourceID},
			"target_id": {targetID},
			"topic_id":  {topicID},
		},
	}, nil)
}

// ============================================================================
// CHAT
// ============================================================================

func (g *HTTPGateway) ChatHistory(ctx context.Context, nodeID string) ([]domain.ChatMessage, error) {
	var history []domain.ChatMessage
	if err := g.do(ctx, OpChatHistory, request{method: http.MethodGet, path: "/chats/" + url.PathEscape(nodeID)}, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.ChatMessage{}
	}
	return history, nil
}

type chatRequest struct {
	TopicID string `json:"topic_id"`
	NodeID  string `json:"node_id"`
	Prompt  string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (g *HTTPGateway) SendChat(ctx context.Context, topicID, nodeID, prompt string) (string, error) {
	var resp chatResponse
	err := g.doJSON(ctx, OpSendChat, http.MethodPost, "/chat", nil,
		chatRequest{TopicID: topicID, NodeID: nodeID, Prompt: prompt}, &resp)
	return resp.Response, err
}

// ============================================================================
// TRANSPORT
// ============================================================================

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (g *HTTPGateway) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperrors.NewRequestFailure(op, fmt.Sprintf("encode request: %v", err), 0, err)
	}
	return g.do(ctx, op, request{
		method:      method,
		path:        path,
		query:       query,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
	}, out)
}

// do sends r and decodes a JSON success body into out. A nil out, an empty
// body or a 204 is an acknowledgment.
func (g *HTTPGateway) do(ctx context.Context, op string, r request, out interface{}) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	target := g.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return apperrors.NewRequestFailure(op, err.Error(), 0, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Backend call failed",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return apperrors.NewRequestFailure(op, transportMessage(err), 0, err)
	}
	defer resp.Body.Close()

	g.logger.Debug("Backend call completed",
		zap.String("operation", op),
		zap.String("method", r.method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewRequestFailure(op, errorDetail(raw, resp.StatusCode), resp.StatusCode, nil)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewRequestFailure(op, transportMessage(err), 0, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewRequestFailure(op, fmt.Sprintf("invalid response body: %v", err), resp.StatusCode, err).
			WithCode(apperrors.CodeDecode)
	}
	return nil
}

// errorDetail pulls the human readable detail out of an error body. A
// string detail is used verbatim; any other JSON detail is passed through
// as JSON text. Without one the status text is used.
func errorDetail(raw []byte, status int) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 && string(body.Detail) != "null" {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			if s != "" {
				return s
			}
		} else {
			return string(body.Detail)
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
