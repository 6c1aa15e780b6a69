package cli

import (
	"fmt"

	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [file]",
	Short: "Apply the text cleaner to a file or stdin",
	Long: `Clean lower-cases text, rewrites "x/y" as "x or y", normalizes punctuation
spacing and collapses whitespace, exactly as prepare does for selected text.

Example:
  cxrsect clean impression.txt
  echo "Heart size/mediastinum normal..No effusion" | cxrsect clean`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := readReport(cmd, args, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), extract.Clean(report.Text))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
