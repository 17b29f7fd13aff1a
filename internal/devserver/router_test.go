package devserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

func newTestBackend(t *testing.T, responder Responder) (*api.HTTPGateway, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	srv := NewServer(NewStore(), responder, nil)
	ts := httptest.NewServer(NewRouter(srv, cfg.DevServer, NewMetrics(), nil))
	t.Cleanup(ts.Close)

	cfg.APIBaseURL = ts.URL + "/api"
	return api.NewHTTPGateway(cfg, ts.Client(), nil), ts
}

func TestRouter_TopicLifecycle(t *testing.T) {
	gw, ts := newTestBackend(t, nil)
	ctx := context.Background()

	created, err := gw.CreateTopic(ctx, domain.TopicFields{Name: "Biology", Personality: "tutor", UseRAG: true, ToolName: "bio"},
		[]domain.Attachment{{Name: "a.pdf", Data: []byte("A")}, {Name: "b.pdf", Data: []byte("B")}})
	require.NoError(t, err)
	assert.Equal(t, "Biology", created.Name)
	require.Len(t, created.DocPaths, 2)
	assert.True(t, created.UsesRetrieval())

	resp, err := ts.Client().Get(ts.URL + "/api/" + created.DocPaths[0])
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "A", string(body))

	updated, err := gw.UpdateTopic(ctx, created.ID, domain.TopicUpdate{
		TopicFields:      domain.TopicFields{Name: "Bio"},
		ExistingDocPaths: created.DocPaths[1:],
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, created.DocPaths[1:], updated.DocPaths)
	assert.False(t, updated.UsesRetrieval())
	require.NotNil(t, updated.RAGConfig)
	assert.Equal(t, "bio", updated.RAGConfig.ToolName, "omitted tool fields keep their values")

	topics, err := gw.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Bio", topics[0].Name)

	require.NoError(t, gw.DeleteTopic(ctx, created.ID))
	topics, err = gw.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestRouter_GraphOperations(t *testing.T) {
	gw, _ := newTestBackend(t, nil)
	ctx := context.Background()
	topic, err := gw.CreateTopic(ctx, domain.TopicFields{Name: "T"}, nil)
	require.NoError(t, err)

	a, err := gw.CreateNode(ctx, topic.ID, "knowledge", "Cell")
	require.NoError(t, err)
	assert.Equal(t, "Cell", a.Title)
	assert.Equal(t, []string{}, a.Tags)
	b, err := gw.CreateNode(ctx, topic.ID, "knowledge", "Nucleus")
	require.NoError(t, err)

	edge, err := gw.CreateEdge(ctx, topic.ID, domain.EdgeSpec{SourceID: a.ID, TargetID: b.ID, EdgeType: "default", Label: "contains"})
	require.NoError(t, err)
	assert.NotEmpty(t, edge.ID)
	assert.Equal(t, "contains", edge.Label)

	require.NoError(t, gw.UpdateNode(ctx, topic.ID, a.ID, domain.NodeFields{Title: "Cell", Content: "unit of life", Tags: []string{"bio"}}))

	g, err := gw.GetGraph(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "unit of life", g.Nodes[0].Content)
	assert.Equal(t, []string{"bio"}, g.Nodes[0].Tags)
	require.Len(t, g.Edges, 1)

	require.NoError(t, gw.DeleteEdge(ctx, topic.ID, a.ID, b.ID))
	require.NoError(t, gw.DeleteNode(ctx, topic.ID, b.ID))

	g, err = gw.GetGraph(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestRouter_ErrorsCarryDetail(t *testing.T) {
	gw, _ := newTestBackend(t, nil)
	ctx := context.Background()
	a, err := gw.CreateNode(ctx, "", "knowledge", "A")
	require.NoError(t, err)
	b, err := gw.CreateNode(ctx, "", "knowledge", "B")
	require.NoError(t, err)
	_, err = gw.CreateEdge(ctx, "", domain.EdgeSpec{SourceID: a.ID, TargetID: b.ID, EdgeType: "default"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		call       func() error
		wantStatus int
		wantDetail string
	}{
		{
			name: "duplicate edge",
			call: func() error {
				_, err := gw.CreateEdge(ctx, "", domain.EdgeSpec{SourceID: a.ID, TargetID: b.ID, EdgeType: "default"})
				return err
			},
			wantStatus: http.StatusConflict,
			wantDetail: "Edge already exists",
		},
		{
			name:       "missing node",
			call:       func() error { return gw.DeleteNode(ctx, "", "ghost") },
			wantStatus: http.StatusNotFound,
			wantDetail: "Node not found",
		},
		{
			name:       "missing edge",
			call:       func() error { return gw.DeleteEdge(ctx, "", b.ID, a.ID) },
			wantStatus: http.StatusNotFound,
			wantDetail: "Edge not found",
		},
		{
			name: "unknown topic",
			call: func() error {
				_, err := gw.CreateNode(ctx, "nope", "knowledge", "X")
				return err
			},
			wantStatus: http.StatusNotFound,
			wantDetail: "Topic not found",
		},
		{
			name: "missing title",
			call: func() error {
				_, err := gw.CreateNode(ctx, "", "knowledge", "")
				return err
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			require.True(t, apperrors.IsRequestFailure(err))
			appErr := apperrors.GetAppError(err)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantDetail, appErr.Message)
		})
	}
}

func TestRouter_ChatUsesPredecessorHistory(t *testing.T) {
	var seen ChatContext
	responder := ResponderFunc(func(_ context.Context, chat ChatContext) (string, error) {
		seen = chat
		return "reply to " + chat.Question, nil
	})
	gw, _ := newTestBackend(t, responder)
	ctx := context.Background()
	topic, err := gw.CreateTopic(ctx, domain.TopicFields{Name: "T"}, nil)
	require.NoError(t, err)
	parent, _ := gw.CreateNode(ctx, topic.ID, "knowledge", "Parent")
	child, _ := gw.CreateNode(ctx, topic.ID, "knowledge", "Child")
	_, err = gw.CreateEdge(ctx, topic.ID, domain.EdgeSpec{SourceID: parent.ID, TargetID: child.ID, EdgeType: "default"})
	require.NoError(t, err)

	_, err = gw.SendChat(ctx, topic.ID, parent.ID, "first")
	require.NoError(t, err)
	reply, err := gw.SendChat(ctx, topic.ID, child.ID, "second")
	require.NoError(t, err)

	assert.Equal(t, "reply to second", reply)
	assert.Equal(t, "T", seen.Topic.Name)
	require.Len(t, seen.Predecessors, 1)
	assert.Equal(t, parent.ID, seen.Predecessors[0].NodeID)
	assert.Equal(t, []domain.ChatMessage{{Human: "first", AI: "reply to first"}}, seen.Predecessors[0].Messages)

	history, err := gw.ChatHistory(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{{Human: "second", AI: "reply to second"}}, history)
}

func TestRouter_ChatFailures(t *testing.T) {
	failing := ResponderFunc(func(context.Context, ChatContext) (string, error) {
		return "", errors.New("model overloaded")
	})
	responder := WithBreaker(failing, BreakerSettings{Name: "chat", FailureThreshold: 1, OpenTimeout: time.Minute}, nil)
	gw, _ := newTestBackend(t, responder)
	ctx := context.Background()

	_, err := gw.SendChat(ctx, "", "n1", "hello")
	require.True(t, apperrors.IsRequestFailure(err))
	assert.Equal(t, "model overloaded", apperrors.UserMessage(err))

	_, err = gw.SendChat(ctx, "", "n1", "hello")
	require.True(t, apperrors.IsRequestFailure(err))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.GetAppError(err).StatusCode)

	history, err := gw.ChatHistory(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	_, ts := newTestBackend(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `kg_devserver_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
