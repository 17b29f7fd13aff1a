// Package app assembles one instance of every client component around a
// shared event bus and exposes them through the command bus.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/chat"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/commands"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/editsession"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/graph"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/selection"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/topics"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/events"
)

// Client owns the client state. Front ends send commands through Dispatch
// and render from Events; the component fields are exposed for reads.
type Client struct {
	Config    *config.Config
	Events    *events.Bus
	Gateway   api.Gateway
	Graph     *graph.Store
	Topics    *topics.Registry
	Edit      *editsession.Session
	Selection *selection.Controller
	Chat      *chat.Session
	Commands  *commands.Bus

	logger *zap.Logger
}

// NewClient builds the components over gateway and registers a handler for
// every command.
func NewClient(cfg *config.Config, gateway api.Gateway, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := events.NewBus(logger)

	store := graph.NewStore(gateway, bus, cfg, logger)
	chatSession := chat.NewSession(gateway, store, bus, logger)
	controller := selection.NewController(store, chatSession, bus, logger)
	registry := topics.NewRegistry(gateway, store, controller, bus, logger)
	edit := editsession.New(gateway, registry, bus, logger)

	c := &Client{
		Config:    cfg,
		Events:    bus,
		Gateway:   gateway,
		Graph:     store,
		Topics:    registry,
		Edit:      edit,
		Selection: controller,
		Chat:      chatSession,
		Commands: commands.NewBus(
			commands.RecoveryMiddleware(logger),
			commands.LoggingMiddleware(logger.Named("commands")),
		),
		logger: logger,
	}
	if err := c.registerHandlers(); err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}
	return c, nil
}

// Start loads the topic list, which activates the first topic.
func (c *Client) Start(ctx context.Context) error {
	return c.Topics.Refresh(ctx)
}

// Dispatch runs one command.
func (c *Client) Dispatch(ctx context.Context, cmd commands.Command) error {
	return c.Commands.Send(ctx, cmd)
}

// Close detaches the components from the event bus.
func (c *Client) Close() {
	c.Selection.Close()
}

func (c *Client) registerHandlers() error {
	b := c.Commands
	regs := []func() error{
		// Topics
		func() error {
			return commands.Handle(b, func(ctx context.Context, _ commands.RefreshTopics) error {
				return c.Topics.Refresh(ctx)
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.SwitchTopic) error {
				return c.Topics.Switch(ctx, cmd.TopicID)
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.CreateTopic) error {
				_, err := c.Topics.Create(ctx, cmd.Fields(), cmd.Files)
				return err
			})
		},

		// Edit session
		func() error {
			return commands.Handle(b, func(_ context.Context, cmd commands.OpenEdit) error {
				topic, ok := c.Topics.Topic(cmd.TopicID)
				if !ok {
					return apperrors.NewNotFoundInLocal(apperrors.CodeTopicNotFound, "topic "+cmd.TopicID)
				}
				c.Edit.Open(topic)
				return nil
			})
		},
		func() error {
			return commands.Handle(b, func(_ context.Context, cmd commands.RemoveDocument) error {
				c.Edit.RemoveDocument(cmd.Index)
				return nil
			})
		},
		func() error {
			return commands.Handle(b, func(_ context.Context, cmd commands.AttachFile) error {
				return c.Edit.AddFile(domain.Attachment{Name: cmd.Name, Data: cmd.Data})
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.SubmitEdit) error {
				_, err := c.Edit.SubmitChanges(ctx, cmd.Patch(), cmd.Files)
				return err
			})
		},
		func() error {
			return commands.Handle(b, func(_ context.Context, _ commands.CancelEdit) error {
				c.Edit.Cancel()
				return nil
			})
		},

		// Graph
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.AddNode) error {
				_, err := c.Graph.AddNode(ctx, cmd.Title)
				return err
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.UpdateNode) error {
				return c.Graph.UpdateNode(ctx, cmd.NodeID, cmd.Fields())
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.DeleteNode) error {
				return c.Graph.DeleteNode(ctx, cmd.NodeID)
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.AddEdge) error {
				_, err := c.Graph.AddEdge(ctx, cmd.SourceID, cmd.TargetID, cmd.EdgeType, cmd.Label)
				return err
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.DeleteEdge) error {
				return c.Graph.DeleteEdge(ctx, cmd.SourceID, cmd.TargetID)
			})
		},

		// Selection and chat
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.SelectNode) error {
				return c.Selection.Select(ctx, cmd.NodeID)
			})
		},
		func() error {
			return commands.Handle(b, func(_ context.Context, _ commands.ClearSelection) error {
				c.Selection.Clear()
				return nil
			})
		},
		func() error {
			return commands.Handle(b, func(ctx context.Context, cmd commands.SendChat) error {
				nodeID := cmd.NodeID
				if nodeID == "" {
					nodeID = c.Selection.SelectedID()
				}
				_, err := c.Chat.Send(ctx, nodeID, cmd.Prompt)
				return err
			})
		},
	}

	for _, register := range regs {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
