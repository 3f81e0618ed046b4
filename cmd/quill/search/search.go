// Package searchcmder provides the search command for hybrid retrieval.
package searchcmder

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
	"github.com/quillvault/quill/pkg/search"
	"github.com/quillvault/quill/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	originStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query      string
	maxResults int
	minScore   float64
	asJSON     bool

	configDir string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search the vault and captured memories with hybrid retrieval.

Vector similarity from the external store and local keyword matches are
fused into one ranked list. When the vector store or embedder is
unreachable the query degrades to keyword-only mode and a warning is shown.

Example:
  quill search "how to configure logging"
  quill search "meeting notes on the cache redesign" --top 10
  quill search "postgres tuning" --json`

const searchShortDesc string = "Search the vault"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.maxResults, "top", "k", 0, "Number of results to return (default from config)")
	cmd.Flags().Float64Var(&cmder.minScore, "min-score", 0, "Minimum vector relevance score (default from config)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Output results as JSON")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
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

	opts := search.Options{
		MaxResults: c.maxResults,
		MinScore:   c.minScore,
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = cfg.Search.MaxResults
	}
	if opts.MinScore == 0 {
		opts.MinScore = cfg.Search.MinScore
	}

	resp, err := a.Engine.Search(ctx, c.query, opts)
	if err != nil {
		return err
	}

	if c.asJSON {
		out, jErr := json.MarshalIndent(resp, "", "  ")
		if jErr != nil {
			return jErr
		}
		fmt.Println(string(out))
		return nil
	}

	if resp.Degraded {
		fmt.Printf("%s\n", warnStyle.Render(resp.Warning))
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		sourceStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range resp.Results {
		printResult(i+1, result)
	}

	return nil
}

func printResult(rank int, result search.Result) {
	fmt.Printf("  %s  %s  %s %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		sourceStyle.Render(result.SourceID),
		originStyle.Render(fmt.Sprintf("[%s] L%d-%d", result.Provenance, result.StartLine, result.EndLine)),
	)

	snippet := strings.ReplaceAll(utils.Truncate(result.Snippet, 160), "\n", " ")
	fmt.Printf("  %s\n", snippetStyle.Render(snippet))

	if len(result.RelatedSources) > 0 {
		fmt.Printf("  %s\n", dimStyle.Render("related: "+strings.Join(result.RelatedSources, ", ")))
	}

	fmt.Println()
}
