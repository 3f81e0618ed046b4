// Package memoriescmder provides commands for managing captured memories.
package memoriescmder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/app"
	"github.com/quillvault/quill/pkg/config"
	"github.com/quillvault/quill/pkg/logger"
	"github.com/quillvault/quill/pkg/utils"
)

var (
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const memoriesLongDesc string = `Manage memories captured from conversations.

Example:
  quill memories list
  quill memories list --category preference --limit 50
  quill memories delete 4f6b2c1a-...`

func NewMemoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Manage captured memories",
		Long:  memoriesLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

type listCommander struct {
	category string
	limit    int
	cursor   string
	asJSON   bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captured memories",
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

	cmd.Flags().StringVarP(&cmder.category, "category", "c", "", "Filter by category (preference, project, personal, other)")
	cmd.Flags().IntVar(&cmder.limit, "limit", 20, "Maximum memories to list")
	cmd.Flags().StringVar(&cmder.cursor, "cursor", "", "Continue listing from a previous next_cursor")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Output as JSON")

	return cmd
}

func (c *listCommander) run(ctx context.Context) error {
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

	page, err := a.Vectors.ListCaptured(ctx, c.category, c.limit, c.cursor)
	if err != nil {
		return err
	}

	if c.asJSON {
		out, jErr := json.MarshalIndent(page, "", "  ")
		if jErr != nil {
			return jErr
		}
		fmt.Println(string(out))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No captured memories.")
		return nil
	}

	for _, item := range page.Items {
		fmt.Printf("  %s  %s  %s\n",
			idStyle.Render(item.ID),
			categoryStyle.Render("["+item.Category+"]"),
			dimStyle.Render(item.CapturedAt.Format("2006-01-02 15:04")),
		)
		text := strings.ReplaceAll(utils.Truncate(item.Text, 120), "\n", " ")
		fmt.Printf("  %s\n\n", textStyle.Render(text))
	}

	if page.NextCursor != "" {
		fmt.Printf("%s\n", dimStyle.Render("more: --cursor "+page.NextCursor))
	}
	return nil
}

type deleteCommander struct {
	id string

	configDir string
	debug     bool
	logger    *zap.Logger
}

func newDeleteCmd() *cobra.Command {
	cmder := &deleteCommander{}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a captured memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.id = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	return cmd
}

func (c *deleteCommander) run(ctx context.Context) error {
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

	if err := a.Vectors.DeleteCaptured(ctx, c.id); err != nil {
		return err
	}

	fmt.Printf("Deleted %s.\n", c.id)
	return nil
}
