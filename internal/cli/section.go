package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/ppiankov/cxrsect/internal/pipeline"
	"github.com/ppiankov/cxrsect/internal/selector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	sectionID        string
	sectionOverrides string
	sectionClean     bool
)

// sectionCmd represents the section command
var sectionCmd = &cobra.Command{
	Use:   "section [file]",
	Short: "Show how a single report is sectioned",
	Long: `Section prints every section found in one report (raw header, canonical
name, offset and the naming rule that fired) followed by the selected text.
Reads stdin when no file is given.

Example:
  cxrsect section p10/p10000032/s50414267.txt
  cat report.txt | cxrsect section --id s50414267
  cxrsect section s50414267.txt --clean`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSection,
}

func init() {
	rootCmd.AddCommand(sectionCmd)

	sectionCmd.Flags().StringVar(&sectionID, "id", "", "study id used for override lookup (default: file name)")
	sectionCmd.Flags().StringVar(&sectionOverrides, "overrides", "", "override table YAML (default: config or built-in)")
	sectionCmd.Flags().BoolVar(&sectionClean, "clean", false, "clean the selected text")
}

func runSection(cmd *cobra.Command, args []string) error {
	report, err := readReport(cmd, args, sectionID)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	overridesFile := cfg.Overrides.File
	if sectionOverrides != "" {
		overridesFile = sectionOverrides
	}

	overrides, err := selector.LoadOverrides(overridesFile)
	if err != nil {
		return err
	}

	var logger *zap.Logger
	if verbose {
		if logger, err = newLogger(cfg); err != nil {
			return err
		}
	}

	canon := extract.NewDefaultCanonicalizer()
	p := pipeline.New(
		extract.NewSegmenter(canon),
		selector.New(overrides, logger),
		pipeline.Options{Clean: sectionClean, Logger: logger},
	)

	seg, sel, err := p.Section(report)
	if err != nil {
		return err
	}

	printSections(cmd.OutOrStdout(), report, seg, sel, canon)
	return nil
}

func printSections(out io.Writer, report model.Report, seg extract.Segmentation, sel *model.Selection, canon *extract.Canonicalizer) {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  Report %s\n", report.ID)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tOFFSET\tEND\tHEADER\tSECTION\tRULE")
	for i, sec := range seg.Sections {
		_, rule := canon.Explain(sec.Header)
		fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%s\t%s\n", i, sec.Offset, sec.End(), sec.Header, sec.Name, rule)
	}
	_ = tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Source:   %s\n", sel.Source)
	if sel.Section != "" {
		fmt.Fprintf(out, "  Section:  %s\n", sel.Section)
	}
	fmt.Fprintln(out)

	if sel.Empty() {
		fmt.Fprintln(out, "  (no section selected)")
		return
	}
	for _, line := range strings.Split(sel.Text, "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

// readReport reads one report from the file argument or stdin
func readReport(cmd *cobra.Command, args []string, id string) (model.Report, error) {
	var (
		data []byte
		err  error
		path string
	)

	if len(args) == 1 && args[0] != "-" {
		path = args[0]
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("read report: %w", err)
	}

	if id == "" {
		id = "stdin"
		if path != "" {
			id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
	}

	return model.Report{ID: id, Path: path, Text: string(data)}, nil
}
