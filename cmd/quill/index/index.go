// Package indexcmder provides the index command for building the vault indices.
package indexcmder

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/app"
	"github.com/quillvault/quill/pkg/config"
	"github.com/quillvault/quill/pkg/logger"
)

type indexCommander struct {
	configDir string
	watch     bool

	debug  bool
	logger *zap.Logger
}

const indexLongDesc string = `Index the configured vault into the lexical index, the link graph, and the
external vector store.

The vault root comes from vault.root in config.toml (or QUILL_VAULT_ROOT).
If vault.workspace is also set, that tree is indexed with workspace
provenance. Re-running index on unchanged files is idempotent.

With --watch, the command keeps running after the initial pass and applies
file changes to the indices as they happen.

Example:
  quill index
  quill index --watch
  QUILL_VAULT_ROOT=~/notes quill index`

const indexShortDesc string = "Index the vault"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
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

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep watching for file changes after the initial pass")

	return cmd
}

func (c *indexCommander) run(ctx context.Context) error {
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

	a, err := app.New(cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Vectors.EnsureCollection(ctx, cfg.Embedding.Dimensions); err != nil {
		c.logger.Warn("vector store unavailable, indexing local structures only",
			zap.Error(err),
		)
	}

	total, err := a.Pipeline.IndexTree(ctx, cfg.Vault.Root, "vault")
	if err != nil {
		return err
	}

	if cfg.Vault.Workspace != "" {
		n, wErr := a.Pipeline.IndexTree(ctx, cfg.Vault.Workspace, "")
		if wErr != nil {
			return wErr
		}
		total += n
	}

	if err := a.SaveGraph(); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}

	fmt.Printf("Indexed %d passages.\n", total)

	if !c.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Pipeline.Watch(ctx, cfg.Vault.Root, "vault", func(kind, sourceID string) {
		c.logger.Info("vault change applied",
			zap.String("kind", kind),
			zap.String("source_id", sourceID),
		)
	})
}
