package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/sitebuild/internal/build"
	"github.com/conneroisu/sitebuild/internal/mode"
	"github.com/conneroisu/sitebuild/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site for production",
	Long: `Build the site once and exit. The output directory is removed first, then
templates, styles, scripts, images and static files are built concurrently.
Any failing task makes the command exit non-zero.

Examples:
  sitebuild build                    # production build into dist/
  sitebuild build --mode development # readable output with source maps`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("mode", string(mode.Production), "build mode (development, production)")
	buildCmd.Flags().Bool("quiet", false, "do not print the build summary")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, modeFlag(cmd, mode.Production))
	if err != nil {
		return err
	}

	report, err := build.Run(commandContext(cmd), a.env)
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && report != nil {
		printSummary(cmd.OutOrStdout(), a.env.Mode, report)
	}
	return err
}

var titleCaser = cases.Title(language.English)

// printSummary writes one line per task and a total.
func printSummary(w io.Writer, m mode.Mode, report *pipeline.Report) {
	fmt.Fprintf(w, "%s build\n", titleCaser.String(m.String()))
	for _, r := range report.Results {
		line := fmt.Sprintf("  %-10s %-9s", titleCaser.String(r.Name), r.State)
		if r.State == pipeline.Succeeded || r.State == pipeline.Failed {
			line += " " + r.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped in %s\n",
		report.Count(pipeline.Succeeded),
		report.Count(pipeline.Failed),
		report.Count(pipeline.Skipped),
		report.Duration.Round(time.Millisecond),
	)
}
