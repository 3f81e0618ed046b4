// Package organizecmder provides the organize command for vault hygiene.
package organizecmder

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/config"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/logger"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type organizeCommander struct {
	asJSON bool

	configDir string

	debug  bool
	logger *zap.Logger
}

const organizeLongDesc string = `Report vault hygiene from the persisted link graph.

Orphans are indexed notes nothing links to. Ghosts are link targets that
other notes still reference but that no longer exist as indexed notes.
Run quill index first so the graph reflects the current vault.

Example:
  quill organize
  quill organize --json`

const organizeShortDesc string = "Report orphan notes and broken link targets"

func NewOrganizeCmd() *cobra.Command {
	cmder := &organizeCommander{}

	cmd := &cobra.Command{
		Use:   "organize",
		Short: organizeShortDesc,
		Long:  organizeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Output findings as JSON")

	return cmd
}

func (c *organizeCommander) run() error {
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

	g := graph.Load(cfg.GraphPath(), c.logger)

	orphans := g.Orphans()
	ghosts := g.Ghosts()

	if c.asJSON {
		out, jErr := json.MarshalIndent(map[string]any{
			"orphans": orphans,
			"ghosts":  ghosts,
			"nodes":   g.Len(),
		}, "", "  ")
		if jErr != nil {
			return jErr
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("\n%s\n", headerStyle.Render(fmt.Sprintf("Orphan notes (%d)", len(orphans))))
	if len(orphans) == 0 {
		fmt.Printf("  %s\n", dimStyle.Render("none"))
	}
	for _, id := range orphans {
		fmt.Printf("  %s\n", noteStyle.Render(id))
	}

	fmt.Printf("\n%s\n", headerStyle.Render(fmt.Sprintf("Broken link targets (%d)", len(ghosts))))
	if len(ghosts) == 0 {
		fmt.Printf("  %s\n", dimStyle.Render("none"))
	}
	for _, id := range ghosts {
		fmt.Printf("  %s\n", noteStyle.Render(id))
	}

	fmt.Println()
	return nil
}
