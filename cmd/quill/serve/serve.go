// Package servecmder provides the serve command for the MCP server.
package servecmder

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quillvault/quill/api/mcp"
	"github.com/quillvault/quill/pkg/app"
	"github.com/quillvault/quill/pkg/config"
	"github.com/quillvault/quill/pkg/logger"
)

type serveCommander struct {
	listen  string
	watch   bool
	noIndex bool

	configDir string

	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the MCP server exposing the memory engine to agents.

Tools served: memory_search, memory_capture, vault_related, vault_organize.
On startup the configured vault is indexed unless --no-index is given; with
--watch, file changes keep the indices current while the server runs.

Example:
  quill serve
  quill serve --listen :9000 --watch
  quill serve --no-index`

const serveShortDesc string = "Run the MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Apply vault file changes while serving")
	cmd.Flags().BoolVar(&cmder.noIndex, "no-index", false, "Skip the startup indexing pass")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	c.logger = logger.New(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if c.listen == "" {
		c.listen = cfg.MCP.Listen
	}

	a, err := app.New(cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Vectors.EnsureCollection(ctx, cfg.Embedding.Dimensions); err != nil {
		c.logger.Warn("vector store unavailable, queries will run keyword-only",
			zap.Error(err),
		)
	}

	if !c.noIndex {
		if _, err := a.Pipeline.IndexTree(ctx, cfg.Vault.Root, "vault"); err != nil {
			return err
		}
		if cfg.Vault.Workspace != "" {
			if _, err := a.Pipeline.IndexTree(ctx, cfg.Vault.Workspace, ""); err != nil {
				return err
			}
		}
		if err := a.SaveGraph(); err != nil {
			c.logger.Warn("saving graph failed", zap.Error(err))
		}
	}

	server, err := mcp.NewServer(mcp.Config{
		Engine:  a.Engine,
		Capture: a.Capture,
		Graph:   a.Graph,
		Vectors: a.Vectors,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}

	if c.watch {
		go func() {
			if wErr := a.Pipeline.Watch(ctx, cfg.Vault.Root, "vault", nil); wErr != nil {
				c.logger.Error("watcher exited", zap.Error(wErr))
			}
		}()
	}

	// Age out capture rate-limit state while serving.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Capture.PruneLimiter()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(c.listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
