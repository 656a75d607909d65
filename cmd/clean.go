package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitebuild/internal/build"
	"github.com/conneroisu/sitebuild/internal/mode"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the output directory",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, mode.Production)
	if err != nil {
		return err
	}

	task, _ := a.env.Task(build.TaskClean)
	if err := task(commandContext(cmd)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", a.env.Layout.Output)
	return nil
}
