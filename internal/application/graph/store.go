// Package graph owns the node and edge collections of the active topic.
//
// The store keeps one invariant at all times: every edge's source and
// target are nodes in the store. Mutations go to the backend first and are
// applied locally only once acknowledged; each applied mutation is
// announced on the event bus after the store's lock is released.
package graph

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

// Store is the graph of the active topic.
type Store struct {
	mu      sync.RWMutex
	topicID string
	nodes   []domain.Node
	edges   []domain.Edge
	// generation changes on every Reset and Load. Responses started under
	// an older generation are not applied.
	generation uint64

	gateway  api.Gateway
	bus      *events.Bus
	logger   *zap.Logger
	nodeType string
	edgeType string
}

// NewStore creates an empty store.
func NewStore(gateway api.Gateway, bus *events.Bus, cfg *config.Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	nodeType, edgeType := domain.DefaultNodeType, domain.DefaultEdgeType
	if cfg != nil {
		if cfg.DefaultNodeType != "" {
			nodeType = cfg.DefaultNodeType
		}
		if cfg.DefaultEdgeType != "" {
			edgeType = cfg.DefaultEdgeType
		}
	}
	return &Store{
		gateway:  gateway,
		bus:      bus,
		logger:   logger.Named("graph"),
		nodeType: nodeType,
		edgeType: edgeType,
	}
}

// ============================================================================
// LOADING
// ============================================================================

// Reset clears every node and edge and forgets the topic.
func (s *Store) Reset() {
	s.mu.Lock()
	s.generation++
	s.topicID = ""
	s.nodes = nil
	s.edges = nil
	s.mu.Unlock()

	s.bus.Publish(events.Event{Type: events.GraphReset})
}

// Load replaces the store's content with the backend graph of topicID.
// Readers see either the empty store or the full graph, never a partial
// one. On failure the store stays empty and bound to topicID.
//
// When another Reset or Load starts before the response arrives, the
// response is discarded and Load returns nil.
func (s *Store) Load(ctx context.Context, topicID string) error {
	if topicID == "" {
		return apperrors.NewValidationError(apperrors.CodeNoActiveTopic, "a topic must be selected")
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.topicID = topicID
	s.nodes = nil
	s.edges = nil
	s.mu.Unlock()

	graph, err := s.gateway.GetGraph(ctx, topicID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded graph load", zap.String("topicID", topicID))
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Graph load failed", zap.String("topicID", topicID), zap.Error(err))
		s.bus.Publish(events.Event{Type: events.GraphLoadFailed, TopicID: topicID, Err: err})
		return err
	}
	s.nodes, s.edges = s.consistent(graph)
	count := len(s.nodes)
	s.mu.Unlock()

	s.bus.Publish(events.Event{Type: events.GraphLoaded, TopicID: topicID, Count: count})
	return nil
}

// consistent copies the graph, dropping edges whose endpoints are absent
// and repeated (source, target) pairs.
func (s *Store) consistent(g domain.Graph) ([]domain.Node, []domain.Edge) {
	nodes := make([]domain.Node, 0, len(g.Nodes))
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := ids[n.ID]; dup || n.ID == "" {
			continue
		}
		ids[n.ID] = struct{}{}
		nodes = append(nodes, n.Clone())
	}

	edges := make([]domain.Edge, 0, len(g.Edges))
	pairs := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		_, okSource := ids[e.Source]
		_, okTarget := ids[e.Target]
		pair := domain.PairKey(e.Source, e.Target)
		_, dup := pairs[pair]
		if !okSource || !okTarget || dup {
			s.logger.Warn("Dropping inconsistent edge from backend graph",
				zap.String("source", e.Source),
				zap.String("target", e.Target))
			continue
		}
		pairs[pair] = struct{}{}
		edges = append(edges, e)
	}
	return nodes, edges
}

// ============================================================================
// NODES
// ============================================================================

// AddNode creates a node titled title in the active topic and appends the
// backend's node, with its assigned id.
func (s *Store) AddNode(ctx context.Context, title string) (domain.Node, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Node{}, apperrors.NewValidationError(apperrors.CodeTitleRequired, "node title is required")
	}

	s.mu.RLock()
	topicID, gen := s.topicID, s.generation
	s.mu.RUnlock()
	if topicID == "" {
		return domain.Node{}, apperrors.NewValidationError(apperrors.CodeNoActiveTopic, "a topic must be selected")
	}

	node, err := s.gateway.CreateNode(ctx, topicID, s.nodeType, title)
	if err != nil {
		return domain.Node{}, err
	}
	if node.Title == "" {
		node.Title = title
	}
	if node.Type == "" {
		node.Type = s.nodeType
	}
	if node.Tags == nil {
		node.Tags = []string{}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Node created for a topic that is no longer loaded",
			zap.String("topicID", topicID), zap.String("nodeID", node.ID))
		return node, nil
	}
	s.nodes = append(s.nodes, node.Clone())
	s.mu.Unlock()

	s.bus.Publish(events.Event{Type: events.NodeAdded, TopicID: topicID, NodeID: node.ID, Node: &node})
	return node, nil
}

// UpdateNode submits the full field set of node id and, once acknowledged,
// writes the submitted values to the local node.
func (s *Store) UpdateNode(ctx context.Context, id string, fields domain.NodeFields) error {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Content = strings.TrimSpace(fields.Content)
	fields.Tags = domain.NormalizeTags(fields.Tags)
	if fields.Title == "" {
		return apperrors.NewValidationError(apperrors.CodeTitleRequired, "node title is required")
	}

	s.mu.RLock()
	topicID, gen := s.topicID, s.generation
	_, found := s.nodeIndex(id)
	s.mu.RUnlock()
	if !found {
		return apperrors.NewNotFoundInLocal(apperrors.CodeNodeNotFound, "node "+id)
	}

	if err := s.gateway.UpdateNode(ctx, topicID, id, fields); err != nil {
		return err
	}

	s.mu.Lock()
	i, found := s.nodeIndex(id)
	if gen != s.generation || !found {
		s.mu.Unlock()
		return nil
	}
	s.nodes[i].Apply(fields)
	updated := s.nodes[i].Clone()
	s.mu.Unlock()

	s.bus.Publish(events.Event{Type: events.NodeUpdated, TopicID: topicID, NodeID: id, Node: &updated})
	return nil
}

// DeleteNode deletes node id and, once acknowledged, removes it together
// with every local edge touching it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	s.mu.RLock()
	topicID, gen := s.topicID, s.generation
	_, found := s.nodeIndex(id)
	s.mu.RUnlock()
	if !found {
		return apperrors.NewNotFoundInLocal(apperrors.CodeNodeNotFound, "node "+id)
	}

	if err := s.gateway.DeleteNode(ctx, topicID, id); err != nil {
		return err
	}

	s.mu.Lock()
	i, found := s.nodeIndex(id)
	if gen != s.generation || !found {
		s.mu.Unlock()
		return nil
	}
	removed := s.nodes[i]
	s.nodes = append(s.nodes[:i:i], s.nodes[i+1:]...)

	var dropped []domain.Edge
	kept := s.edges[:0:0]
	for _, e := range s.edges {
		if e.Touches(id) {
			dropped = append(dropped, e)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	s.mu.Unlock()

	for i := range dropped {
		s.bus.Publish(events.Event{Type: events.EdgeRemoved, TopicID: topicID, Edge: &dropped[i]})
	}
	s.bus.Publish(events.Event{Type: events.NodeRemoved, TopicID: topicID, NodeID: id, Node: &removed})
	return nil
}

// ============================================================================
// EDGES
// ============================================================================

// AddEdge creates an edge from source to target. Self-loops, unknown
// endpoints and repeated pairs are rejected without contacting the backend.
// An empty edgeType uses the configured default.
func (s *Store) AddEdge(ctx context.Context, source, target, edgeType, label string) (domain.Edge, error) {
	if source == "" || target == "" {
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeMissingEndpoint, "edge source and target are required")
	}
	if source == target {
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeSelfLoop, "a node cannot be connected to itself")
	}
	if edgeType == "" {
		edgeType = s.edgeType
	}

	s.mu.RLock()
	topicID, gen := s.topicID, s.generation
	_, hasSource := s.nodeIndex(source)
	_, hasTarget := s.nodeIndex(target)
	_, dup := s.edgeIndex(source, target)
	s.mu.RUnlock()

	switch {
	case topicID == "":
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeNoActiveTopic, "a topic must be selected")
	case !hasSource:
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeMissingEndpoint, "source node "+source+" is not in the graph")
	case !hasTarget:
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeMissingEndpoint, "target node "+target+" is not in the graph")
	case dup:
		return domain.Edge{}, apperrors.NewValidationError(apperrors.CodeDuplicateEdge, "an edge from "+source+" to "+target+" already exists")
	}

	edge, err := s.gateway.CreateEdge(ctx, topicID, domain.EdgeSpec{
		SourceID: source,
		TargetID: target,
		EdgeType: edgeType,
		Label:    label,
	})
	if err != nil {
		return domain.Edge{}, err
	}
	// The pair is the natural key whatever the backend echoes.
	edge.Source, edge.Target = source, target

	s.mu.Lock()
	_, hasSource = s.nodeIndex(source)
	_, hasTarget = s.nodeIndex(target)
	_, dup = s.edgeIndex(source, target)
	if gen != s.generation || !hasSource || !hasTarget || dup {
		s.mu.Unlock()
		s.logger.Debug("Created edge no longer fits the local graph",
			zap.String("source", source), zap.String("target", target))
		return edge, nil
	}
	s.edges = append(s.edges, edge)
	s.mu.Unlock()

	s.bus.Publish(events.Event{Type: events.EdgeAdded, TopicID: topicID, Edge: &edge})
	return edge, nil
}

// DeleteEdge deletes the local edge from source to target. A pair absent
// from the local graph is reported as NOT_FOUND_IN_LOCAL without a request.
func (s *Store) DeleteEdge(ctx context.Context, source, target string) error {
	s.mu.RLock()
	topicID, gen := s.topicID, s.generation
	i, found := s.edgeIndex(source, target)
	var key string
	if found {
		key = s.edges[i].Key()
	}
	s.mu.RUnlock()
	if !found {
		return apperrors.NewNotFoundInLocal(apperrors.CodeEdgeNotFound, "edge "+domain.PairKey(source, target))
	}

	if err := s.gateway.DeleteEdge(ctx, topicID, source, target); err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	var removed *domain.Edge
	for i, e := range s.edges {
		if e.Key() == key {
			removed = &e
			s.edges = append(s.edges[:i:i], s.edges[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if removed != nil {
		s.bus.Publish(events.Event{Type: events.EdgeRemoved, TopicID: topicID, Edge: removed})
	}
	return nil
}

// ============================================================================
// READS
// ============================================================================

// TopicID returns the topic the store is bound to, or "".
func (s *Store) TopicID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topicID
}

// Nodes returns a copy of the nodes in insertion order.
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a copy of the edges in insertion order.
func (s *Store) Edges() []domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Edge(nil), s.edges...)
}

// Node returns a copy of node id.
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.nodeIndex(id); ok {
		return s.nodes[i].Clone(), true
	}
	return domain.Node{}, false
}

// Snapshot returns a copy of the whole graph.
func (s *Store) Snapshot() domain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := domain.Graph{
		Nodes: make([]domain.Node, len(s.nodes)),
		Edges: append([]domain.Edge{}, s.edges...),
	}
	for i, n := range s.nodes {
		g.Nodes[i] = n.Clone()
	}
	return g
}

// nodeIndex requires s.mu to be held.
func (s *Store) nodeIndex(id string) (int, bool) {
	for i, n := range s.nodes {
		if n.ID == id {
			return i, true
		}
	}
	return -1, false
}

// edgeIndex requires s.mu to be held.
func (s *Store) edgeIndex(source, target string) (int, bool) {
	for i, e := range s.edges {
		if e.Matches(source, target) {
			return i, true
		}
	}
	return -1, false
}
