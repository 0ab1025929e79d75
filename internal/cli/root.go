// Package cli implements the signpdf command line: the API server and
// offline signing of PDFs from a placement plan.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signpdf",
		Short: "Place signatures, stamps and drawings on PDF pages",
		Long: `signpdf places signature images, generated name stamps and freehand
drawings on the pages of a PDF and writes the signed copy.

Run the interactive API with "signpdf serve", or sign a file in one step
from a YAML plan with "signpdf apply".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newApplyCmd())

	return cmd
}
