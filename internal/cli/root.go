// Package cli implements the kgclient commands: a one-shot topic listing
// and an interactive shell over the client.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/di"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/logging"
)

type rootOptions struct {
	configDir string
	apiURL    string
	logLevel  string
	watch     bool
}

// NewRootCommand builds the command tree. Shell input is read from in and
// all output goes to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "kgclient",
		Short:         "Knowledge graph client",
		Long:          "Browse and edit topic knowledge graphs and chat about their nodes against a knowledge graph backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetIn(in)

	root.PersistentFlags().StringVarP(&opts.configDir, "config-dir", "c", "", "Directory with base and per-environment config files")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Backend API base URL (default: $KG_API_URL or http://127.0.0.1:8000/api)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&opts.watch, "watch", true, "Reload the config directory when it changes")

	root.AddCommand(newShellCommand(opts, in, out), newTopicsCommand(opts, out))
	return root
}

func newShellCommand(opts *rootOptions, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, loader, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer container.Logger.Sync()
			defer container.Client.Close()

			if watcher := opts.startWatcher(loader, container); watcher != nil {
				defer watcher.Stop()
			}

			_, detach := NewRenderer(container.Client.Events, out)
			defer detach()

			ctx := cmd.Context()
			if err := container.Client.Start(ctx); err != nil {
				fmt.Fprintf(out, "warning: initial load failed: %v\n", err)
			}
			return NewShell(container.Client, container.Metrics, out).Run(ctx, in)
		},
	}
}

func newTopicsCommand(opts *rootOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, _, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer container.Logger.Sync()
			defer container.Client.Close()

			if err := container.Client.Topics.Refresh(cmd.Context()); err != nil {
				return err
			}
			printTopics(out, container.Client.Topics.Views())
			return nil
		},
	}
}

func (o *rootOptions) loadConfig() (*config.Config, *config.Loader, error) {
	var (
		cfg    *config.Config
		loader *config.Loader
		err    error
	)
	if o.configDir != "" {
		loader = config.NewLoader(o.configDir, config.Environment(os.Getenv("KG_ENVIRONMENT")))
		cfg, err = loader.Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if o.apiURL != "" {
		cfg.APIBaseURL = o.apiURL
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func (o *rootOptions) bootstrap() (*di.Container, *config.Loader, error) {
	cfg, loader, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	container, err := di.InitializeContainer(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize client: %w", err)
	}
	return container, loader, nil
}

// startWatcher enables live log level changes when a config directory is
// in use. A watcher that cannot start is logged and skipped.
func (o *rootOptions) startWatcher(loader *config.Loader, container *di.Container) *config.Watcher {
	if loader == nil || !o.watch {
		return nil
	}
	watcher, err := config.NewWatcher(loader, container.Config, container.Logger.Logger)
	if err != nil {
		container.Logger.Warn("Config watcher disabled", zap.Error(err))
		return nil
	}
	watcher.OnChange(container.Logger.OnConfigChange)
	return watcher
}
