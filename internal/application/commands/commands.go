// Package commands defines one typed command per user action and the bus
// that dispatches them to the owning component.
package commands

import (
	"strings"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// Command represents a user action that changes client state
type Command interface {
	Validate() error
}

// ============================================================================
// TOPICS
// ============================================================================

// RefreshTopics reloads the topic list.
type RefreshTopics struct{}

func (c RefreshTopics) Validate() error { return nil }

// SwitchTopic makes a topic active.
type SwitchTopic struct {
	TopicID string `validate:"required,max=128"`
}

func (c SwitchTopic) Validate() error { return validateStruct(c) }

// CreateTopic creates a topic with optional file uploads.
type CreateTopic struct {
	Name            string `validate:"max=200"`
	Personality     string `validate:"max=10000"`
	UseRAG          bool
	ToolName        string `validate:"max=200"`
	ToolDescription string `validate:"max=2000"`
	Files           []domain.Attachment
}

func (c CreateTopic) Validate() error { return validateStruct(c) }

// Fields returns the topic metadata of the command.
func (c CreateTopic) Fields() domain.TopicFields {
	return domain.TopicFields{
		Name:            c.Name,
		Personality:     c.Personality,
		UseRAG:          c.UseRAG,
		ToolName:        c.ToolName,
		ToolDescription: c.ToolDescription,
	}
}

// ============================================================================
// EDIT SESSION
// ============================================================================

// OpenEdit opens the edit session on a known topic.
type OpenEdit struct {
	TopicID string `validate:"required"`
}

func (c OpenEdit) Validate() error { return validateStruct(c) }

// RemoveDocument removes a document path from the working copy by position.
// Out of range positions are accepted and ignored by the session.
type RemoveDocument struct {
	Index int
}

func (c RemoveDocument) Validate() error { return nil }

// AttachFile adds a file to the edit session's pending uploads.
type AttachFile struct {
	Name string `validate:"required,max=255"`
	Data []byte
}

func (c AttachFile) Validate() error { return validateStruct(c) }

// SubmitEdit submits the edit session. Nil fields keep the topic's current
// values and a nil Files keeps the pending set.
type SubmitEdit struct {
	Name            *string `validate:"omitnil,max=200"`
	Personality     *string `validate:"omitnil,max=10000"`
	UseRAG          *bool
	ToolName        *string `validate:"omitnil,max=200"`
	ToolDescription *string `validate:"omitnil,max=2000"`
	Files           []domain.Attachment
}

func (c SubmitEdit) Validate() error { return validateStruct(c) }

// Patch returns the metadata changes of the command.
func (c SubmitEdit) Patch() domain.TopicPatch {
	return domain.TopicPatch{
		Name:            c.Name,
		Personality:     c.Personality,
		UseRAG:          c.UseRAG,
		ToolName:        c.ToolName,
		ToolDescription: c.ToolDescription,
	}
}

// CancelEdit discards the edit session.
type CancelEdit struct{}

func (c CancelEdit) Validate() error { return nil }

// ============================================================================
// GRAPH
// ============================================================================

// AddNode creates a node in the active topic.
type AddNode struct {
	Title string `validate:"max=200"`
}

func (c AddNode) Validate() error { return validateStruct(c) }

// UpdateNode replaces the editable fields of a node.
type UpdateNode struct {
	NodeID  string   `validate:"required"`
	Title   string   `validate:"max=200"`
	Content string   `validate:"max=20000"`
	Tags    []string `validate:"max=50,dive,max=64"`
}

func (c UpdateNode) Validate() error { return validateStruct(c) }

// Fields returns the node fields of the command.
func (c UpdateNode) Fields() domain.NodeFields {
	return domain.NodeFields{Title: c.Title, Content: c.Content, Tags: c.Tags}
}

// DeleteNode deletes a node and its edges.
type DeleteNode struct {
	NodeID string `validate:"required"`
}

func (c DeleteNode) Validate() error { return validateStruct(c) }

// AddEdge connects two nodes. Endpoint rules are checked by the graph.
type AddEdge struct {
	SourceID string
	TargetID string
	EdgeType string `validate:"max=64"`
	Label    string `validate:"max=200"`
}

func (c AddEdge) Validate() error { return validateStruct(c) }

// DeleteEdge removes the edge from SourceID to TargetID.
type DeleteEdge struct {
	SourceID string `validate:"required"`
	TargetID string `validate:"required"`
}

func (c DeleteEdge) Validate() error { return validateStruct(c) }

// ============================================================================
// SELECTION AND CHAT
// ============================================================================

// SelectNode selects a node and loads its chat.
type SelectNode struct {
	NodeID string `validate:"required"`
}

func (c SelectNode) Validate() error { return validateStruct(c) }

// ClearSelection returns to the idle state.
type ClearSelection struct{}

func (c ClearSelection) Validate() error { return nil }

// SendChat sends a prompt about the selected node.
type SendChat struct {
	NodeID string
	Prompt string `validate:"max=20000"`
}

func (c SendChat) Validate() error { return validateStruct(c) }

// Name returns the command's type name without the package, for logs.
func Name(cmd Command) string {
	name := typeName(cmd)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
