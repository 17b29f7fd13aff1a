package cli

import (
	"fmt"
	"io"
	"sync"

	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

// Renderer prints one line per change notification.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer subscribes a renderer to bus. The returned function detaches
// it.
func NewRenderer(bus *events.Bus, out io.Writer) (*Renderer, func()) {
	r := &Renderer{out: out}
	return r, bus.Subscribe(r.render)
}

func (r *Renderer) render(ev events.Event) {
	line := Describe(ev)
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "~ %s\n", line)
}

// Describe renders ev as a short human readable line.
func Describe(ev events.Event) string {
	switch ev.Type {
	case events.GraphReset:
		return "graph cleared"
	case events.GraphLoaded:
		return fmt.Sprintf("graph loaded: %d nodes", ev.Count)
	case events.GraphLoadFailed:
		return "graph load failed: " + apperrors.UserMessage(ev.Err)
	case events.NodeAdded:
		return fmt.Sprintf("node added: %s %q", ev.NodeID, nodeTitle(ev))
	case events.NodeUpdated:
		return fmt.Sprintf("node updated: %s %q", ev.NodeID, nodeTitle(ev))
	case events.NodeRemoved:
		return "node removed: " + ev.NodeID
	case events.EdgeAdded, events.EdgeRemoved:
		verb := "added"
		if ev.Type == events.EdgeRemoved {
			verb = "removed"
		}
		if ev.Edge == nil {
			return "edge " + verb
		}
		return fmt.Sprintf("edge %s: %s -> %s", verb, ev.Edge.Source, ev.Edge.Target)
	case events.TopicsChanged:
		return fmt.Sprintf("topics: %d", ev.Count)
	case events.TopicsFailed:
		return "topics failed: " + apperrors.UserMessage(ev.Err)
	case events.ActiveTopicChanged:
		return "active topic: " + ev.TopicID
	case events.SelectionChanged:
		if ev.NodeID == "" {
			return "selection cleared"
		}
		return "selected: " + ev.NodeID
	case events.TranscriptChanged:
		return fmt.Sprintf("transcript: %d entries", ev.Count)
	case events.EditSessionChanged:
		return "edit session changed: " + ev.TopicID
	}
	return ""
}

func nodeTitle(ev events.Event) string {
	if ev.Node == nil {
		return ""
	}
	return ev.Node.Title
}
