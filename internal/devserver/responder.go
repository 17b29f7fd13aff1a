package devserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// ErrResponderUnavailable is returned while the chat breaker is open.
var ErrResponderUnavailable = errors.New("chat responder temporarily unavailable")

// History is the chat history of one node.
type History struct {
	NodeID   string
	Messages []domain.ChatMessage
}

// ChatContext is everything a responder sees for one question.
type ChatContext struct {
	Topic        domain.Topic
	NodeID       string
	Predecessors []History
	Current      []domain.ChatMessage
	Question     string
}

// Prompt renders the context as one prompt: the histories of predecessor
// nodes that have any, then the node's own history, then the question.
func (c ChatContext) Prompt() string {
	var b strings.Builder
	for _, h := range c.Predecessors {
		if len(h.Messages) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[history of predecessor node %s]\n%s\n", h.NodeID, renderHistory(h.Messages))
	}
	fmt.Fprintf(&b, "[history of current node]\n%s\n\nNew question: %s", renderHistory(c.Current), c.Question)
	return b.String()
}

func renderHistory(msgs []domain.ChatMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("Human: %s\nAI: %s", m.Human, m.AI))
	}
	return strings.Join(lines, "\n")
}

// Responder produces the assistant reply for a chat context.
type Responder interface {
	Respond(ctx context.Context, chat ChatContext) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, chat ChatContext) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, chat ChatContext) (string, error) {
	return f(ctx, chat)
}

// EchoResponder answers deterministically from the context it was given.
type EchoResponder struct{}

// Respond implements Responder.
func (EchoResponder) Respond(_ context.Context, chat ChatContext) (string, error) {
	turns := len(chat.Current)
	for _, h := range chat.Predecessors {
		turns += len(h.Messages)
	}
	persona := chat.Topic.Name
	if persona == "" {
		persona = "assistant"
	}
	return fmt.Sprintf("[%s] %s (context: %d earlier exchanges)", persona, chat.Question, turns), nil
}

// BreakerSettings configures the chat circuit breaker.
type BreakerSettings struct {
	Name string
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// breakerResponder guards a Responder with a circuit breaker so an upstream
// that keeps failing is answered fast.
type breakerResponder struct {
	inner Responder
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps inner in a circuit breaker.
func WithBreaker(inner Responder, settings BreakerSettings, logger *zap.Logger) Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &breakerResponder{inner: inner, cb: cb}
}

func (r *breakerResponder) Respond(ctx context.Context, chat ChatContext) (string, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.inner.Respond(ctx, chat)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrResponderUnavailable
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
