// Package selection tracks which node, if any, is selected.
//
// The controller has two states. Idle: nothing selected, node and chat
// panels hidden. NodeSelected: one node selected, both panels visible and
// filled from a snapshot of the node taken at selection time.
package selection

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

// State of the controller.
type State int

const (
	Idle State = iota
	NodeSelected
)

func (s State) String() string {
	if s == NodeSelected {
		return "NodeSelected"
	}
	return "Idle"
}

// NodeSource looks up the current fields of a node.
type NodeSource interface {
	Node(id string) (domain.Node, bool)
}

// Transcript is the chat side of a selection.
type Transcript interface {
	Load(ctx context.Context, nodeID string) error
	Clear()
}

// Controller owns the selection.
type Controller struct {
	mu       sync.RWMutex
	selected *domain.Node

	nodes  NodeSource
	chat   Transcript
	bus    *events.Bus
	logger *zap.Logger

	unsubscribe func()
}

// NewController creates an idle controller. It clears itself whenever the
// selected node is removed from the graph.
func NewController(nodes NodeSource, chat Transcript, bus *events.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		nodes:  nodes,
		chat:   chat,
		bus:    bus,
		logger: logger.Named("selection"),
	}
	c.unsubscribe = bus.Subscribe(c.onNodeRemoved, events.NodeRemoved)
	return c
}

// Close detaches the controller from the bus.
func (c *Controller) Close() {
	c.unsubscribe()
}

// Select moves to NodeSelected(id) from either state and loads the node's
// chat. The selection holds even if the chat load fails; that error is
// returned.
func (c *Controller) Select(ctx context.Context, id string) error {
	node, ok := c.nodes.Node(id)
	if !ok {
		return apperrors.NewNotFoundInLocal(apperrors.CodeNodeNotFound, "node "+id)
	}

	c.mu.Lock()
	c.selected = &node
	c.mu.Unlock()

	c.logger.Debug("Node selected", zap.String("nodeID", id))
	c.bus.Publish(events.Event{Type: events.SelectionChanged, NodeID: id, Node: &node})

	return c.chat.Load(ctx, id)
}

// Clear moves to Idle from either state.
func (c *Controller) Clear() {
	c.mu.Lock()
	wasSelected := c.selected != nil
	c.selected = nil
	c.mu.Unlock()

	c.chat.Clear()
	if wasSelected {
		c.bus.Publish(events.Event{Type: events.SelectionChanged})
	}
}

func (c *Controller) onNodeRemoved(ev events.Event) {
	c.mu.RLock()
	hit := c.selected != nil && c.selected.ID == ev.NodeID
	c.mu.RUnlock()
	if hit {
		c.logger.Debug("Selected node deleted", zap.String("nodeID", ev.NodeID))
		c.Clear()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return Idle
	}
	return NodeSelected
}

// Selected returns the snapshot taken when the node was selected.
func (c *Controller) Selected() (domain.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return domain.Node{}, false
	}
	return c.selected.Clone(), true
}

// SelectedID returns the selected node id, or "".
func (c *Controller) SelectedID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return ""
	}
	return c.selected.ID
}

// PanelsVisible reports whether the node editor and chat panels are shown.
func (c *Controller) PanelsVisible() bool {
	return c.State() == NodeSelected
}
