package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{}},
		{name: "trim and dedupe", in: "a, b,,a", want: []string{"a", "b"}},
		{name: "only separators", in: " , ,", want: []string{}},
		{name: "keeps first occurrence order", in: "z,y,z,x", want: []string{"z", "y", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.in))
		})
	}
}

func TestTopic_UsesRetrieval(t *testing.T) {
	off := false
	on := true
	tests := []struct {
		name  string
		topic Topic
		want  bool
	}{
		{name: "no config", topic: Topic{}, want: false},
		{name: "config without flag", topic: Topic{RAGConfig: &RAGConfig{}}, want: true},
		{name: "explicitly off", topic: Topic{RAGConfig: &RAGConfig{UseRAG: &off}}, want: false},
		{name: "explicitly on", topic: Topic{RAGConfig: &RAGConfig{UseRAG: &on}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topic.UsesRetrieval())
		})
	}
}

func TestTopic_FieldsAndPatch(t *testing.T) {
	on := true
	topic := Topic{
		Name:        "Biology",
		Personality: "tutor",
		RAGConfig:   &RAGConfig{UseRAG: &on, ToolName: "bio", ToolDescription: "papers"},
	}
	name := "Bio"
	off := false

	fields := topic.Fields()
	renamed := TopicPatch{Name: &name}.Apply(fields)
	switchedOff := TopicPatch{UseRAG: &off}.Apply(fields)

	assert.Equal(t, TopicFields{Name: "Biology", Personality: "tutor", UseRAG: true, ToolName: "bio", ToolDescription: "papers"}, fields)
	assert.Equal(t, TopicFields{Name: "Bio", Personality: "tutor", UseRAG: true, ToolName: "bio", ToolDescription: "papers"}, renamed)
	assert.False(t, switchedOff.UseRAG)
	assert.Equal(t, "Biology", switchedOff.Name)
	assert.Equal(t, TopicFields{Name: "T"}, Topic{Name: "T"}.Fields())
}

func TestTopic_CloneIsIndependent(t *testing.T) {
	on := true
	orig := Topic{ID: "t1", DocPaths: []string{"a.pdf"}, RAGConfig: &RAGConfig{UseRAG: &on}}

	c := orig.Clone()
	c.DocPaths[0] = "changed"
	*c.RAGConfig.UseRAG = false

	assert.Equal(t, "a.pdf", orig.DocPaths[0])
	assert.True(t, *orig.RAGConfig.UseRAG)
}

func TestTopic_DecodesWireFormat(t *testing.T) {
	body := `{"id":"t1","name":"Biology","doc_paths":["uploads/t1/a.pdf"],
		"personality":"tutor","rag_config":{"use_rag":true,"tool_name":"bio"},"root_node_id":null}`

	var topic Topic
	require.NoError(t, json.Unmarshal([]byte(body), &topic))

	assert.Equal(t, "Biology", topic.Name)
	assert.Equal(t, []string{"uploads/t1/a.pdf"}, topic.DocPaths)
	assert.True(t, topic.UsesRetrieval())
	assert.Equal(t, "bio", topic.RAGConfig.ToolName)
	assert.Nil(t, topic.RootNodeID)
}

func TestNode_DecodesLabelAsTitle(t *testing.T) {
	var node Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"n1","label":"Cell","type":"knowledge","content":"","tags":["bio"]}`), &node))

	assert.Equal(t, "Cell", node.Title)
	assert.Equal(t, []string{"bio"}, node.Tags)
}

func TestNode_Apply(t *testing.T) {
	node := Node{ID: "n1", Title: "old", Type: "knowledge"}
	tags := []string{"x"}

	node.Apply(NodeFields{Title: "new", Content: "body", Tags: tags})
	tags[0] = "mutated"

	assert.Equal(t, Node{ID: "n1", Title: "new", Type: "knowledge", Content: "body", Tags: []string{"x"}}, node)
}

func TestEdge_Key(t *testing.T) {
	assert.Equal(t, "e1", Edge{ID: "e1", Source: "a", Target: "b"}.Key())
	assert.Equal(t, "a->b", Edge{Source: "a", Target: "b"}.Key())
	assert.NotEqual(t, Edge{Source: "a", Target: "b"}.Key(), Edge{Source: "b", Target: "a"}.Key())
}

func TestEdge_TouchesAndMatches(t *testing.T) {
	e := Edge{Source: "a", Target: "b"}

	assert.True(t, e.Touches("a"))
	assert.True(t, e.Touches("b"))
	assert.False(t, e.Touches("c"))
	assert.True(t, e.Matches("a", "b"))
	assert.False(t, e.Matches("b", "a"))
}

func TestTranscriptFromHistory(t *testing.T) {
	history := []ChatMessage{{Human: "hi", AI: "hello"}, {Human: "why?", AI: ""}}

	entries := TranscriptFromHistory(history)

	require.Len(t, entries, 3)
	assert.Equal(t, RoleHuman, entries[0].Role)
	assert.Equal(t, "hello", entries[1].Text)
	assert.Equal(t, RoleAI, entries[1].Role)
	assert.Equal(t, "why?", entries[2].Text)
	for _, e := range entries {
		assert.Equal(t, StatusConfirmed, e.Status)
		assert.NotEmpty(t, e.ID)
	}
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestAttachment_Validate(t *testing.T) {
	assert.NoError(t, Attachment{Name: "a.pdf"}.Validate())
	assert.Error(t, Attachment{Name: " "}.Validate())
	assert.Error(t, Attachment{Name: "dir/a.pdf"}.Validate())
}

func TestDocName(t *testing.T) {
	assert.Equal(t, "a.pdf", DocName("uploads/t1/a.pdf"))
	assert.Equal(t, "b.pdf", DocName(`uploads\t1\b.pdf`))
	assert.Equal(t, "c.pdf", DocName("c.pdf"))
}
