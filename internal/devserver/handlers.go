package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

const maxUploadBytes = 32 << 20

// Server holds the HTTP handlers of the backend.
type Server struct {
	store     *Store
	responder Responder
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewServer creates the handlers over store. A nil responder answers with
// EchoResponder.
func NewServer(store *Store, responder Responder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if responder == nil {
		responder = EchoResponder{}
	}
	return &Server{
		store:     store,
		responder: responder,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Request bodies

type createNodeRequest struct {
	NodeType string `json:"node_type" validate:"required"`
	Title    string `json:"title" validate:"required"`
}

type updateNodeRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type createEdgeRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
	EdgeType string `json:"edge_type"`
	Label    string `json:"label"`
}

type chatRequest struct {
	TopicID string `json:"topic_id"`
	NodeID  string `json:"node_id" validate:"required"`
	Prompt  string `json:"prompt" validate:"required"`
}

type edgeResponse struct {
	domain.Edge
	Message string `json:"message"`
}

// ============================================================================
// TOPICS
// ============================================================================

// ListTopics handles GET /api/topics
func (s *Server) ListTopics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.ListTopics())
}

// CreateTopic handles POST /api/topics
func (s *Server) CreateTopic(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseTopicForm(r)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	topic := s.store.CreateTopic(form.fields, form.files)
	s.logger.Info("Topic created", zap.String("topicID", topic.ID), zap.Int("documents", len(topic.DocPaths)))
	respondJSON(w, http.StatusCreated, topic)
}

// UpdateTopic handles PUT /api/topics/{topicID}
func (s *Server) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseTopicForm(r)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	topicID := chi.URLParam(r, "topicID")
	// Tool metadata absent from the form keeps its stored value.
	if current, ok := s.store.Topic(topicID); ok && current.RAGConfig != nil {
		if !form.has("tool_name") {
			form.fields.ToolName = current.RAGConfig.ToolName
		}
		if !form.has("tool_description") {
			form.fields.ToolDescription = current.RAGConfig.ToolDescription
		}
	}
	topic, err := s.store.UpdateTopic(topicID, form.fields, form.existing, form.files)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

// DeleteTopic handles DELETE /api/topics/{topicID}
func (s *Server) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTopic(chi.URLParam(r, "topicID")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Topic deleted successfully"})
}

// GetUpload handles GET /api/uploads/{topicID}/{name}
func (s *Server) GetUpload(w http.ResponseWriter, r *http.Request) {
	p := "uploads/" + chi.URLParam(r, "topicID") + "/" + chi.URLParam(r, "name")
	data, ok := s.store.Upload(p)
	if !ok {
		respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type topicForm struct {
	fields   domain.TopicFields
	existing []string
	files    []Upload
	values   map[string][]string
}

func (f topicForm) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (s *Server) parseTopicForm(r *http.Request) (topicForm, error) {
	var form topicForm
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return form, fmt.Errorf("invalid form: %w", err)
	}

	form.fields = domain.TopicFields{
		Name:            strings.TrimSpace(r.FormValue("name")),
		Personality:     r.FormValue("personality"),
		ToolName:        r.FormValue("tool_name"),
		ToolDescription: r.FormValue("tool_description"),
	}
	if form.fields.Name == "" {
		return form, errors.New("name is required")
	}
	if raw := r.FormValue("use_rag"); raw != "" {
		useRAG, err := strconv.ParseBool(raw)
		if err != nil {
			return form, fmt.Errorf("use_rag must be a boolean, got %q", raw)
		}
		form.fields.UseRAG = useRAG
	}

	form.values = r.MultipartForm.Value
	form.existing = r.MultipartForm.Value["existing_doc_paths"]
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			return form, fmt.Errorf("read %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return form, fmt.Errorf("read %s: %w", header.Filename, err)
		}
		form.files = append(form.files, Upload{Name: header.Filename, Data: data})
	}
	return form, nil
}

// ============================================================================
// GRAPH
// ============================================================================

// GetGraph handles GET /api/graph?topic_id=
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Graph(r.URL.Query().Get("topic_id")))
}

// CreateNode handles POST /api/nodes?topic_id=
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	node, err := s.store.AddNode(r.URL.Query().Get("topic_id"), req.NodeType, req.Title)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

// UpdateNode handles PUT /api/nodes/{nodeID}?topic_id=
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req updateNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	patch := NodePatch{Title: req.Title, Content: req.Content}
	if req.Tags != nil {
		patch.Tags, patch.SetTags = *req.Tags, true
	}
	if err := s.store.UpdateNode(r.URL.Query().Get("topic_id"), chi.URLParam(r, "nodeID"), patch); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Node updated successfully"})
}

// DeleteNode handles DELETE /api/nodes/{nodeID}?topic_id=
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNode(r.URL.Query().Get("topic_id"), chi.URLParam(r, "nodeID")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Node deleted successfully"})
}

// CreateEdge handles POST /api/edges?topic_id=
func (s *Server) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	edge, err := s.store.AddEdge(r.URL.Query().Get("topic_id"), domain.EdgeSpec{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		EdgeType: req.EdgeType,
		Label:    req.Label,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, edgeResponse{Edge: edge, Message: "Edge created successfully"})
}

// DeleteEdge handles DELETE /api/edges?source_id=&target_id=&topic_id=
func (s *Server) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, target := q.Get("source_id"), q.Get("target_id")
	if source == "" || target == "" {
		respondError(w, http.StatusUnprocessableEntity, "source_id and target_id are required")
		return
	}
	if err := s.store.DeleteEdge(q.Get("topic_id"), source, target); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Edge deleted successfully"})
}

// ============================================================================
// CHAT
// ============================================================================

// ChatHistory handles GET /api/chats/{nodeID}
func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.ChatHistory(chi.URLParam(r, "nodeID")))
}

// Chat handles POST /api/chat
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}

	chat := ChatContext{
		NodeID:   req.NodeID,
		Current:  s.store.ChatHistory(req.NodeID),
		Question: req.Prompt,
	}
	if topic, ok := s.store.Topic(req.TopicID); ok {
		chat.Topic = topic
	}
	for _, id := range s.store.Predecessors(req.TopicID, req.NodeID) {
		chat.Predecessors = append(chat.Predecessors, History{NodeID: id, Messages: s.store.ChatHistory(id)})
	}

	reply, err := s.responder.Respond(r.Context(), chat)
	if err != nil {
		s.logger.Error("Chat responder failed",
			zap.String("nodeID", req.NodeID),
			zap.Error(err))
		if errors.Is(err, ErrResponderUnavailable) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.store.AppendChat(req.NodeID, domain.ChatMessage{Human: req.Prompt, AI: reply})
	respondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", strings.ToLower(e.Field()), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTopicNotFound):
		respondError(w, http.StatusNotFound, "Topic not found")
	case errors.Is(err, ErrNodeNotFound):
		respondError(w, http.StatusNotFound, "Node not found")
	case errors.Is(err, ErrEdgeNotFound):
		respondError(w, http.StatusNotFound, "Edge not found")
	case errors.Is(err, ErrUnknownEndpoint):
		respondError(w, http.StatusNotFound, "One or both nodes not found")
	case errors.Is(err, ErrDuplicateEdge):
		respondError(w, http.StatusConflict, "Edge already exists")
	default:
		s.logger.Error("Unexpected store error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
