package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.APIBaseURL = srv.URL + "/api/"
	return NewHTTPGateway(cfg, srv.Client(), nil)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPGateway_ListTopics(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/topics", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": "t2", "name": "Zoology", "doc_paths": []string{}},
			{"id": "t1", "name": "Biology", "doc_paths": []string{"a.pdf"}},
		})
	})

	topics, err := gw.ListTopics(context.Background())

	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "t2", topics[0].ID, "backend order is kept")
	assert.Equal(t, []string{"a.pdf"}, topics[1].DocPaths)
}

func TestHTTPGateway_ErrorDetail(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "string detail", status: 404, body: `{"detail":"Topic not found"}`, wantMsg: "Topic not found"},
		{name: "structured detail", status: 422, body: `{"detail":[{"loc":["title"]}]}`, wantMsg: `[{"loc":["title"]}]`},
		{name: "no body", status: 500, body: "", wantMsg: "Internal Server Error"},
		{name: "html body", status: 502, body: "<html>bad gateway</html>", wantMsg: "Bad Gateway"},
		{name: "empty detail", status: 400, body: `{"detail":""}`, wantMsg: "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := gw.GetGraph(context.Background(), "t1")

			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeRequestFailure, appErr.Type)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, OpGetGraph, appErr.Operation)
		})
	}
}

func TestHTTPGateway_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	srv.Close()
	gw := NewHTTPGateway(cfg, nil, nil)

	_, err := gw.ListTopics(context.Background())

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeTransport, appErr.Code)
	assert.Zero(t, appErr.StatusCode)
}

func TestHTTPGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	gw.timeout = 50 * time.Millisecond

	_, err := gw.ListTopics(context.Background())

	require.Error(t, err)
	assert.Equal(t, "request timed out", apperrors.UserMessage(err))
}

func TestHTTPGateway_GetGraph(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("topic_id"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"nodes": []map[string]interface{}{{"id": "A", "label": "Cell", "content": "", "tags": []string{}}},
			"edges": nil,
		})
	})

	graph, err := gw.GetGraph(context.Background(), "t1")

	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "Cell", graph.Nodes[0].Title)
	assert.NotNil(t, graph.Edges)
	assert.Empty(t, graph.Edges)
}

func TestHTTPGateway_CreateNode(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/nodes", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("topic_id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"node_type": "knowledge", "title": "Mitochondria"}, body)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": "B", "label": "Mitochondria", "type": "knowledge", "content": "", "tags": []string{}})
	})

	node, err := gw.CreateNode(context.Background(), "t1", "knowledge", "Mitochondria")

	require.NoError(t, err)
	assert.Equal(t, "B", node.ID)
	assert.Equal(t, "Mitochondria", node.Title)
}

func TestHTTPGateway_UpdateNodeSendsEmptyTags(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/nodes/A", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"Cell","content":"unit of life","tags":[]}`, string(raw))
		w.WriteHeader(http.StatusNoContent)
	})

	err := gw.UpdateNode(context.Background(), "t1", "A", domain.NodeFields{Title: "Cell", Content: "unit of life"})

	assert.NoError(t, err)
}

func TestHTTPGateway_CreateEdge(t *testing.T) {
	t.Run("echoed edge", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			var spec domain.EdgeSpec
			require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
			assert.Equal(t, domain.EdgeSpec{SourceID: "A", TargetID: "B", EdgeType: "default"}, spec)
			writeJSON(w, http.StatusCreated, map[string]string{"id": "e1", "from": "A", "to": "B", "type": "default", "label": ""})
		})

		edge, err := gw.CreateEdge(context.Background(), "t1", domain.EdgeSpec{SourceID: "A", TargetID: "B", EdgeType: "default"})

		require.NoError(t, err)
		assert.Equal(t, domain.Edge{ID: "e1", Source: "A", Target: "B", Type: "default"}, edge)
	})

	t.Run("acknowledgment only", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]string{"message": "Edge created successfully"})
		})

		edge, err := gw.CreateEdge(context.Background(), "t1", domain.EdgeSpec{SourceID: "A", TargetID: "B", EdgeType: "default", Label: "contains"})

		require.NoError(t, err)
		assert.Equal(t, domain.Edge{Source: "A", Target: "B", Type: "default", Label: "contains"}, edge)
		assert.Equal(t, "A->B", edge.Key())
	})
}

func TestHTTPGateway_DeleteEdgeQuery(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "A", q.Get("source_id"))
		assert.Equal(t, "B", q.Get("target_id"))
		assert.Equal(t, "t1", q.Get("topic_id"))
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})

	assert.NoError(t, gw.DeleteEdge(context.Background(), "t1", "A", "B"))
}

func TestHTTPGateway_Chat(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chats/n1":
			writeJSON(w, http.StatusOK, []domain.ChatMessage{{Human: "hi", AI: "hello"}})
		case "/api/chat":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{"topic_id": "t1", "node_id": "n1", "prompt": "Hello"}, body)
			writeJSON(w, http.StatusOK, map[string]string{"response": "Hi there"})
		default:
			http.NotFound(w, r)
		}
	})

	history, err := gw.ChatHistory(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{{Human: "hi", AI: "hello"}}, history)

	reply, err := gw.SendChat(context.Background(), "t1", "n1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)
}

func TestHTTPGateway_UpdateTopicMultipart(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/topics/t1", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, []string{"Biology"}, r.MultipartForm.Value["name"])
		assert.Equal(t, []string{"tutor"}, r.MultipartForm.Value["personality"])
		assert.Equal(t, []string{"true"}, r.MultipartForm.Value["use_rag"])
		assert.Equal(t, []string{"b.pdf"}, r.MultipartForm.Value["existing_doc_paths"])
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 1)
		assert.Equal(t, "c.pdf", files[0].Filename)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "t1", "name": "Biology", "doc_paths": []string{"b.pdf", "uploads/t1/c.pdf"}})
	})

	topic, err := gw.UpdateTopic(context.Background(), "t1",
		domain.TopicUpdate{
			TopicFields:      domain.TopicFields{Name: "Biology", Personality: "tutor", UseRAG: true},
			ExistingDocPaths: []string{"b.pdf"},
		},
		[]domain.Attachment{{Name: "c.pdf", Data: []byte("%PDF")}})

	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf", "uploads/t1/c.pdf"}, topic.DocPaths)
}

func TestHTTPGateway_CreateTopicOmitsExistingPaths(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, []string{"false"}, r.MultipartForm.Value["use_rag"])
		assert.Equal(t, []string{"bio-docs"}, r.MultipartForm.Value["tool_name"])
		assert.NotContains(t, r.MultipartForm.Value, "existing_doc_paths")
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": "t9", "name": "Bio", "doc_paths": []string{}})
	})

	topic, err := gw.CreateTopic(context.Background(), domain.TopicFields{Name: "Bio", ToolName: "bio-docs"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "t9", topic.ID)
}

func TestHTTPGateway_DecodeFailure(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	})

	_, err := gw.ListTopics(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDecode, apperrors.GetAppError(err).Code)
	assert.True(t, apperrors.IsRequestFailure(err))
}
