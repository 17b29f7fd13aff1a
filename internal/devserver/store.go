// Package devserver is an in-memory implementation of the knowledge graph
// REST backend. It serves local development and the client's end-to-end
// tests; nothing is persisted.
package devserver

import (
	"errors"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// DefaultTopic is the graph used when a request carries no topic id.
const DefaultTopic = "default"

// Store errors. Handlers map them to status codes.
var (
	ErrTopicNotFound   = errors.New("topic not found")
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrDuplicateEdge   = errors.New("edge already exists")
	ErrUnknownEndpoint = errors.New("edge endpoint not found")
)

type topicGraph struct {
	nodes []domain.Node
	edges []domain.Edge
}

// Upload is a stored topic document.
type Upload struct {
	Name string
	Data []byte
}

// Store keeps topics, graphs and chat histories in memory. All methods are
// safe for concurrent use and return copies.
type Store struct {
	mu      sync.RWMutex
	topics  []domain.Topic
	graphs  map[string]*topicGraph
	chats   map[string][]domain.ChatMessage
	uploads map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		topics:  []domain.Topic{},
		graphs:  make(map[string]*topicGraph),
		chats:   make(map[string][]domain.ChatMessage),
		uploads: make(map[string][]byte),
	}
}

// ============================================================================
// TOPICS
// ============================================================================

// ListTopics returns every topic in creation order.
func (s *Store) ListTopics() []domain.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}

// CreateTopic stores a new topic and its uploads.
func (s *Store) CreateTopic(fields domain.TopicFields, files []Upload) domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := domain.Topic{
		ID:          uuid.New().String(),
		Name:        fields.Name,
		Personality: fields.Personality,
		DocPaths:    []string{},
		RAGConfig:   ragConfig(fields),
	}
	topic.DocPaths = s.storeUploads(topic.ID, topic.DocPaths, files)
	s.topics = append(s.topics, topic)
	s.graphs[topic.ID] = &topicGraph{}
	return topic.Clone()
}

// UpdateTopic replaces the topic metadata. Only the paths in existing that
// the topic already has survive; new uploads are appended after them.
func (s *Store) UpdateTopic(id string, fields domain.TopicFields, existing []string, files []Upload) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.topicIndex(id)
	if !ok {
		return domain.Topic{}, ErrTopicNotFound
	}
	topic := &s.topics[i]

	keep := make(map[string]bool, len(existing))
	for _, p := range existing {
		keep[p] = true
	}
	paths := make([]string, 0, len(topic.DocPaths)+len(files))
	for _, p := range topic.DocPaths {
		if keep[p] {
			paths = append(paths, p)
		} else {
			delete(s.uploads, p)
		}
	}

	topic.Name = fields.Name
	topic.Personality = fields.Personality
	topic.RAGConfig = ragConfig(fields)
	topic.DocPaths = s.storeUploads(id, paths, files)
	return topic.Clone(), nil
}

// DeleteTopic removes a topic with its graph, the chat histories of its
// nodes and its uploads.
func (s *Store) DeleteTopic(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.topicIndex(id)
	if !ok {
		return ErrTopicNotFound
	}
	for _, p := range s.topics[i].DocPaths {
		delete(s.uploads, p)
	}
	if g, ok := s.graphs[id]; ok {
		for _, n := range g.nodes {
			delete(s.chats, n.ID)
		}
	}
	delete(s.graphs, id)
	s.topics = append(s.topics[:i], s.topics[i+1:]...)
	return nil
}

// Upload returns a stored document by its doc path.
func (s *Store) Upload(docPath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.uploads[docPath]
	return data, ok
}

func (s *Store) storeUploads(topicID string, paths []string, files []Upload) []string {
	for _, f := range files {
		p := path.Join("uploads", topicID, path.Base(f.Name))
		if _, exists := s.uploads[p]; !exists {
			paths = append(paths, p)
		}
		s.uploads[p] = append([]byte(nil), f.Data...)
	}
	return paths
}

func (s *Store) topicIndex(id string) (int, bool) {
	for i, t := range s.topics {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

func ragConfig(fields domain.TopicFields) *domain.RAGConfig {
	useRAG := fields.UseRAG
	return &domain.RAGConfig{
		UseRAG:          &useRAG,
		ToolName:        fields.ToolName,
		ToolDescription: fields.ToolDescription,
	}
}

// ============================================================================
// GRAPH
// ============================================================================

// graph returns the graph of topicID. The default graph is created on
// demand; any other id must belong to a topic.
func (s *Store) graph(topicID string) (*topicGraph, error) {
	if topicID == "" {
		topicID = DefaultTopic
	}
	g, ok := s.graphs[topicID]
	if ok {
		return g, nil
	}
	if topicID != DefaultTopic {
		return nil, ErrTopicNotFound
	}
	g = &topicGraph{}
	s.graphs[topicID] = g
	return g, nil
}

// Graph returns the nodes and edges of a topic. Unknown topics have an
// empty graph.
func (s *Store) Graph(topicID string) domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}}
	g, err := s.graph(topicID)
	if err != nil {
		return out
	}
	for _, n := range g.nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	out.Edges = append(out.Edges, g.edges...)
	return out
}

// AddNode creates a node with empty content and tags.
func (s *Store) AddNode(topicID, nodeType, title string) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return domain.Node{}, err
	}
	node := domain.Node{
		ID:    uuid.New().String(),
		Title: title,
		Type:  nodeType,
		Tags:  []string{},
	}
	g.nodes = append(g.nodes, node)
	return node.Clone(), nil
}

// NodePatch lists the node fields to change; nil leaves a field as is.
type NodePatch struct {
	Title   *string
	Content *string
	Tags    []string
	SetTags bool
}

// UpdateNode applies patch to a node.
func (s *Store) UpdateNode(topicID, nodeID string, patch NodePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return err
	}
	for i := range g.nodes {
		if g.nodes[i].ID != nodeID {
			continue
		}
		if patch.Title != nil {
			g.nodes[i].Title = *patch.Title
		}
		if patch.Content != nil {
			g.nodes[i].Content = *patch.Content
		}
		if patch.SetTags {
			g.nodes[i].Tags = append([]string{}, patch.Tags...)
		}
		return nil
	}
	return ErrNodeNotFound
}

// DeleteNode removes a node, every edge touching it and its chat history.
func (s *Store) DeleteNode(topicID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return err
	}
	found := false
	nodes := g.nodes[:0]
	for _, n := range g.nodes {
		if n.ID == nodeID {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	if !found {
		return ErrNodeNotFound
	}
	g.nodes = nodes

	edges := g.edges[:0]
	for _, e := range g.edges {
		if !e.Touches(nodeID) {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	delete(s.chats, nodeID)
	return nil
}

// AddEdge creates an edge between two existing nodes. A second edge with
// the same ordered pair is rejected.
func (s *Store) AddEdge(topicID string, spec domain.EdgeSpec) (domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return domain.Edge{}, err
	}
	if !hasNode(g, spec.SourceID) || !hasNode(g, spec.TargetID) {
		return domain.Edge{}, ErrUnknownEndpoint
	}
	for _, e := range g.edges {
		if e.Matches(spec.SourceID, spec.TargetID) {
			return domain.Edge{}, ErrDuplicateEdge
		}
	}
	edge := domain.Edge{
		ID:     uuid.New().String(),
		Source: spec.SourceID,
		Target: spec.TargetID,
		Type:   spec.EdgeType,
		Label:  spec.Label,
	}
	g.edges = append(g.edges, edge)
	return edge, nil
}

// DeleteEdge removes the edge from source to target.
func (s *Store) DeleteEdge(topicID, source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return err
	}
	for i, e := range g.edges {
		if e.Matches(source, target) {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return ErrEdgeNotFound
}

// Predecessors returns the sources of every edge into nodeID, in edge order.
func (s *Store) Predecessors(topicID, nodeID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.graph(topicID)
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range g.edges {
		if e.Target == nodeID {
			ids = append(ids, e.Source)
		}
	}
	return ids
}

func hasNode(g *topicGraph, id string) bool {
	for _, n := range g.nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// ============================================================================
// CHAT
// ============================================================================

// ChatHistory returns the exchanges of a node, oldest first.
func (s *Store) ChatHistory(nodeID string) []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChatMessage{}, s.chats[nodeID]...)
}

// AppendChat records one exchange.
func (s *Store) AppendChat(nodeID string, msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[nodeID] = append(s.chats[nodeID], msg)
}

// Topic returns one topic by id.
func (s *Store) Topic(id string) (domain.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.topicIndex(id); ok {
		return s.topics[i].Clone(), true
	}
	return domain.Topic{}, false
}
