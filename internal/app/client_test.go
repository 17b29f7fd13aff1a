package app

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/commands"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/selection"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/devserver"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	backend := devserver.NewServer(devserver.NewStore(), nil, nil)
	ts := httptest.NewServer(devserver.NewRouter(backend, cfg.DevServer, nil, nil))
	t.Cleanup(ts.Close)
	cfg.APIBaseURL = ts.URL + "/api"

	client, err := NewClient(cfg, api.NewHTTPGateway(cfg, ts.Client(), nil), nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func nodeByTitle(t *testing.T, c *Client, title string) domain.Node {
	t.Helper()
	for _, n := range c.Graph.Nodes() {
		if n.Title == title {
			return n
		}
	}
	t.Fatalf("node %q not in graph", title)
	return domain.Node{}
}

func TestClient_EndToEnd(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.Empty(t, c.Topics.Views())
	assert.Empty(t, c.Topics.ActiveID())

	// First topic becomes active on its own.
	require.NoError(t, c.Dispatch(ctx, commands.CreateTopic{Name: "Biology", Personality: "tutor", UseRAG: true, ToolName: "bio-docs", Files: []domain.Attachment{{Name: "a.pdf", Data: []byte("A")}}}))
	views := c.Topics.Views()
	require.Len(t, views, 1)
	assert.True(t, views[0].Active)
	topicID := views[0].ID
	assert.Equal(t, topicID, c.Graph.TopicID())

	// Graph editing.
	require.NoError(t, c.Dispatch(ctx, commands.AddNode{Title: "  Cell "}))
	require.NoError(t, c.Dispatch(ctx, commands.AddNode{Title: "Nucleus"}))
	cell := nodeByTitle(t, c, "Cell")
	nucleus := nodeByTitle(t, c, "Nucleus")
	require.NoError(t, c.Dispatch(ctx, commands.AddEdge{SourceID: cell.ID, TargetID: nucleus.ID, Label: "contains"}))
	require.Len(t, c.Graph.Edges(), 1)
	assert.Equal(t, "default", c.Graph.Edges()[0].Type)

	require.NoError(t, c.Dispatch(ctx, commands.UpdateNode{NodeID: cell.ID, Title: "Cell", Content: "unit", Tags: []string{"bio", " bio ", ""}}))
	assert.Equal(t, []string{"bio"}, nodeByTitle(t, c, "Cell").Tags)

	// Selection and chat.
	require.NoError(t, c.Dispatch(ctx, commands.SelectNode{NodeID: nucleus.ID}))
	assert.Equal(t, selection.NodeSelected, c.Selection.State())
	require.NoError(t, c.Dispatch(ctx, commands.SendChat{Prompt: "What is inside?"}))
	transcript := c.Chat.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, domain.RoleHuman, transcript[0].Role)
	assert.Equal(t, domain.StatusConfirmed, transcript[0].Status)
	assert.Equal(t, domain.RoleAI, transcript[1].Role)

	// Re-selecting reloads the history from the backend.
	require.NoError(t, c.Dispatch(ctx, commands.SelectNode{NodeID: cell.ID}))
	require.NoError(t, c.Dispatch(ctx, commands.SelectNode{NodeID: nucleus.ID}))
	assert.Len(t, c.Chat.Transcript(), 2)

	// Deleting the selected node clears the selection and its edges.
	require.NoError(t, c.Dispatch(ctx, commands.DeleteNode{NodeID: nucleus.ID}))
	assert.Equal(t, selection.Idle, c.Selection.State())
	assert.Empty(t, c.Chat.Transcript())
	assert.Empty(t, c.Graph.Edges())

	// Topic editing.
	require.NoError(t, c.Dispatch(ctx, commands.OpenEdit{TopicID: topicID}))
	require.Len(t, c.Edit.DocPaths(), 1)
	require.NoError(t, c.Dispatch(ctx, commands.RemoveDocument{Index: 0}))
	require.NoError(t, c.Dispatch(ctx, commands.AttachFile{Name: "b.pdf", Data: []byte("B")}))
	rename := "Bio"
	require.NoError(t, c.Dispatch(ctx, commands.SubmitEdit{Name: &rename}))
	assert.False(t, c.Edit.IsOpen())
	topic, ok := c.Topics.Topic(topicID)
	require.True(t, ok)
	assert.Equal(t, "Bio", topic.Name)
	assert.Equal(t, "tutor", topic.Personality, "a rename keeps the persona")
	assert.True(t, topic.UsesRetrieval())
	assert.Equal(t, "bio-docs", topic.RAGConfig.ToolName)
	assert.Equal(t, []string{"uploads/" + topicID + "/b.pdf"}, topic.DocPaths)
}

func TestClient_SwitchTopicResetsState(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, commands.CreateTopic{Name: "One"}))
	require.NoError(t, c.Dispatch(ctx, commands.AddNode{Title: "A"}))
	require.NoError(t, c.Dispatch(ctx, commands.SelectNode{NodeID: nodeByTitle(t, c, "A").ID}))
	require.NoError(t, c.Dispatch(ctx, commands.CreateTopic{Name: "Two"}))
	second := c.Topics.Views()[1]
	assert.False(t, second.Active)

	var seen []events.Type
	c.Events.Subscribe(func(ev events.Event) { seen = append(seen, ev.Type) })
	require.NoError(t, c.Dispatch(ctx, commands.SwitchTopic{TopicID: second.ID}))

	assert.Equal(t, second.ID, c.Topics.ActiveID())
	assert.Empty(t, c.Graph.Nodes())
	assert.Equal(t, selection.Idle, c.Selection.State())
	require.NotEmpty(t, seen)
	assert.Equal(t, events.ActiveTopicChanged, seen[0])
	assert.Contains(t, seen, events.GraphReset)
	assert.Contains(t, seen, events.GraphLoaded)
}

func TestClient_ErrorsKeepClientUsable(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.Dispatch(ctx, commands.AddNode{Title: "A"})
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, c.Dispatch(ctx, commands.CreateTopic{Name: "T"}))
	require.NoError(t, c.Dispatch(ctx, commands.AddNode{Title: "A"}))
	a := nodeByTitle(t, c, "A")

	name := "x"
	tests := []struct {
		name  string
		cmd   commands.Command
		check func(error) bool
	}{
		{name: "self loop", cmd: commands.AddEdge{SourceID: a.ID, TargetID: a.ID}, check: apperrors.IsValidation},
		{name: "empty title", cmd: commands.AddNode{Title: "   "}, check: apperrors.IsValidation},
		{name: "unknown node", cmd: commands.DeleteNode{NodeID: "ghost"}, check: apperrors.IsNotFoundInLocal},
		{name: "unknown edge", cmd: commands.DeleteEdge{SourceID: a.ID, TargetID: "ghost"}, check: apperrors.IsNotFoundInLocal},
		{name: "chat without selection", cmd: commands.SendChat{Prompt: "hi"}, check: apperrors.IsValidation},
		{name: "submit without session", cmd: commands.SubmitEdit{Name: &name}, check: apperrors.IsValidation},
		{name: "edit unknown topic", cmd: commands.OpenEdit{TopicID: "ghost"}, check: apperrors.IsNotFoundInLocal},
		{name: "missing command field", cmd: commands.SelectNode{}, check: apperrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Dispatch(ctx, tt.cmd)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	require.NoError(t, c.Dispatch(ctx, commands.AddNode{Title: "B"}))
	assert.Len(t, c.Graph.Nodes(), 2)
}
