package api

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeBackend   = "backend_error"
	OutcomeTransport = "transport_error"
)

// Metrics holds the gateway's Prometheus metrics in a registry of its own.
type Metrics struct {
	registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates gateway metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of backend calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Backend call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	registry.MustRegister(requests, duration)

	return &Metrics{
		registry: registry,
		Requests: requests,
		Duration: duration,
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one call.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	m.Requests.WithLabelValues(op, outcome(err)).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Code == apperrors.CodeTransport {
		return OutcomeTransport
	}
	return OutcomeBackend
}

// OperationStats summarizes calls of one operation.
type OperationStats struct {
	Operation   string
	Calls       map[string]uint64 // by outcome
	MeanLatency time.Duration
}

// Snapshot gathers the current values, sorted by operation.
func (m *Metrics) Snapshot() ([]OperationStats, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	byOp := make(map[string]*OperationStats)
	get := func(op string) *OperationStats {
		s, ok := byOp[op]
		if !ok {
			s = &OperationStats{Operation: op, Calls: make(map[string]uint64)}
			byOp[op] = s
		}
		return s
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := labelMap(metric.GetLabel())
			op := labels["operation"]
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				get(op).Calls[labels["outcome"]] += uint64(metric.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				if n := h.GetSampleCount(); n > 0 {
					get(op).MeanLatency = time.Duration(h.GetSampleSum() / float64(n) * float64(time.Second))
				}
			}
		}
	}

	stats := make([]OperationStats, 0, len(byOp))
	for _, s := range byOp {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.GetName()] = p.GetValue()
	}
	return out
}

// ============================================================================
// INSTRUMENTED GATEWAY
// ============================================================================

// WithMetrics wraps gw so every call is counted and timed.
func WithMetrics(gw Gateway, m *Metrics) Gateway {
	return &instrumentedGateway{inner: gw, metrics: m}
}

type instrumentedGateway struct {
	inner   Gateway
	metrics *Metrics
}

func (g *instrumentedGateway) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	start := time.Now()
	topics, err := g.inner.ListTopics(ctx)
	g.metrics.Observe(OpListTopics, start, err)
	return topics, err
}

func (g *instrumentedGateway) CreateTopic(ctx context.Context, fields domain.TopicFields, files []domain.Attachment) (domain.Topic, error) {
	start := time.Now()
	topic, err := g.inner.CreateTopic(ctx, fields, files)
	g.metrics.Observe(OpCreateTopic, start, err)
	return topic, err
}

func (g *instrumentedGateway) UpdateTopic(ctx context.Context, topicID string, update domain.TopicUpdate, files []domain.Attachment) (domain.Topic, error) {
	start := time.Now()
	topic, err := g.inner.UpdateTopic(ctx, topicID, update, files)
	g.metrics.Observe(OpUpdateTopic, start, err)
	return topic, err
}

func (g *instrumentedGateway) DeleteTopic(ctx context.Context, topicID string) error {
	start := time.Now()
	err := g.inner.DeleteTopic(ctx, topicID)
	g.metrics.Observe(OpDeleteTopic, start, err)
	return err
}

func (g *instrumentedGateway) GetGraph(ctx context.Context, topicID string) (domain.Graph, error) {
	start := time.Now()
	graph, err := g.inner.GetGraph(ctx, topicID)
	g.metrics.Observe(OpGetGraph, start, err)
	return graph, err
}

func (g *instrumentedGateway) CreateNode(ctx context.Context, topicID, nodeType, title string) (domain.Node, error) {
	start := time.Now()
	node, err := g.inner.CreateNode(ctx, topicID, nodeType, title)
	g.metrics.Observe(OpCreateNode, start, err)
	return node, err
}

func (g *instrumentedGateway) UpdateNode(ctx context.Context, topicID, nodeID string, fields domain.NodeFields) error {
	start := time.Now()
	err := g.inner.UpdateNode(ctx, topicID, nodeID, fields)
	g.metrics.Observe(OpUpdateNode, start, err)
	return err
}

func (g *instrumentedGateway) DeleteNode(ctx context.Context, topicID, nodeID string) error {
	start := time.Now()
	err := g.inner.DeleteNode(ctx, topicID, nodeID)
	g.metrics.Observe(OpDeleteNode, start, err)
	return err
}

func (g *instrumentedGateway) CreateEdge(ctx context.Context, topicID string, spec domain.EdgeSpec) (domain.Edge, error) {
	start := time.Now()
	edge, err := g.inner.CreateEdge(ctx, topicID, spec)
	g.metrics.Observe(OpCreateEdge, start, err)
	return edge, err
}

func (g *instrumentedGateway) DeleteEdge(ctx context.Context, topicID, sourceID, targetID string) error {
	start := time.Now()
	err := g.inner.DeleteEdge(ctx, topicID, sourceID, targetID)
	g.metrics.Observe(OpDeleteEdge, start, err)
	return err
}

func (g *instrumentedGateway) ChatHistory(ctx context.Context, nodeID string) ([]domain.ChatMessage, error) {
	start := time.Now()
	history, err := g.inner.ChatHistory(ctx, nodeID)
	g.metrics.Observe(OpChatHistory, start, err)
	return history, err
}

func (g *instrumentedGateway) SendChat(ctx context.Context, topicID, nodeID, prompt string) (string, error) {
	start := time.Now()
	reply, err := g.inner.SendChat(ctx, topicID, nodeID, prompt)
	g.metrics.Observe(OpSendChat, start, err)
	return reply, err
}
