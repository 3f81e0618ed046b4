// Package quillcmder
package quillcmder

import (
	"github.com/spf13/cobra"

	indexcmder "github.com/quillvault/quill/cmd/quill/index"
	memoriescmder "github.com/quillvault/quill/cmd/quill/memories"
	organizecmder "github.com/quillvault/quill/cmd/quill/organize"
	searchcmder "github.com/quillvault/quill/cmd/quill/search"
	servecmder "github.com/quillvault/quill/cmd/quill/serve"
)

const quillLongDesc string = `Quill is a local-first memory engine for your notes.

Index a vault of markdown notes, then query it with hybrid semantic +
keyword retrieval:
  quill index             Index the configured vault
  quill search <query>    Search vault and captured memories
  quill serve             Run the MCP server for agent integration
  quill organize          Report orphan notes and broken link targets
  quill memories          Manage captured memories`

const quillShortDesc string = "Quill - local-first note memory"

func NewQuillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quill",
		Short: quillShortDesc,
		Long:  quillLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml (default: the state dir)")

	// Add subcommands
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(organizecmder.NewOrganizeCmd())
	cmd.AddCommand(memoriescmder.NewMemoriesCmd())

	return cmd
}
