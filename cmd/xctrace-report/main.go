package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xctrace-mcp/internal/analyzer"
	"xctrace-mcp/internal/report"
)

var (
	flagApp           string
	flagTop           int
	flagCollapsedOnly bool
	flagOutput        string
	flagVerbose       bool

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var rootCmd = &cobra.Command{
	Use:   "xctrace-report <export-dir>",
	Short: "Generate a profiling report from an xctrace XML export",
	Long: `xctrace-report parses the XML documents produced by
'xctrace export' and generates a Markdown profiling report, plus collapsed
stacks for flame-graph renderers.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagApp, "app", "", "app binary name to filter (e.g. 'MyApp')")
	rootCmd.Flags().IntVar(&flagTop, "top", 10, "number of hot frames in the terminal summary")
	rootCmd.Flags().BoolVar(&flagCollapsedOnly, "collapsed-only", false, "only print collapsed stacks for flame graphs")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "report output path (default: <export-dir>/report.md)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	exportDir := args[0]
	exp, err := report.LoadExport(exportDir, log)
	if err != nil {
		return err
	}

	if flagCollapsedOnly {
		if exp.Trace == nil {
			return fmt.Errorf("no time profile found in %s", exportDir)
		}
		fmt.Fprintln(cmd.OutOrStdout(), analyzer.CollapsedStacks(exp.Trace, flagApp))
		return nil
	}

	reportPath := flagOutput
	if reportPath == "" {
		reportPath = filepath.Join(exportDir, "report.md")
	}

	opts := report.Options{AppBinary: flagApp}
	if exp.Trace != nil && len(exp.Trace.Samples) > 0 {
		collapsedPath := filepath.Join(exportDir, "collapsed.txt")
		collapsed := analyzer.CollapsedStacks(exp.Trace, "")
		if err := os.WriteFile(collapsedPath, []byte(collapsed), 0o644); err != nil {
			log.WithFields(logrus.Fields{"file": collapsedPath, "error": err}).Warn("Could not write collapsed stacks")
		} else {
			opts.CollapsedPath = collapsedPath
		}
	}

	md := report.Generate(exp, opts)
	if err := os.WriteFile(reportPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	printSummary(cmd, exp, reportPath)
	return nil
}

// printSummary renders a short styled overview on the terminal; the full
// detail lives in the Markdown report.
func printSummary(cmd *cobra.Command, exp *report.Export, reportPath string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render("xctrace Profiling Summary"))
	fmt.Fprintln(out)

	if exp.Trace == nil || len(exp.Trace.Samples) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No time profile captured."))
	} else {
		stats := analyzer.ComputeStatistics(exp.Trace)
		fmt.Fprintf(out, "Samples: %d   Total time: %.2f ms   Unique frames: %d\n\n",
			stats.SampleCount, stats.TotalWeightMS, stats.UniqueFrames)

		hot := analyzer.HotFrames(exp.Trace, flagTop, "", false)
		rows := make([][]string, 0, len(hot))
		for i, st := range hot {
			binary := st.Binary
			if binary == "" {
				binary = "-"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				clip(st.Name, 56),
				fmt.Sprintf("%d", st.Count),
				fmt.Sprintf("%.2f", st.WeightMS),
				clip(binary, 20),
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(dimStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("#", "Function", "Count", "Total (ms)", "Binary").
			Rows(rows...)
		fmt.Fprintln(out, t)
		fmt.Fprintln(out)
	}

	if len(exp.Hangs) > 0 {
		fmt.Fprintf(out, "⚠️  %d potential hang(s) detected\n", len(exp.Hangs))
	}
	if len(exp.Leaks) > 0 {
		fmt.Fprintf(out, "❌ %d memory leak(s) detected\n", len(exp.Leaks))
	}

	fmt.Fprintln(out, dimStyle.Render("Report saved to: "+reportPath))
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
