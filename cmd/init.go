package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitebuild/internal/config"
	"github.com/conneroisu/sitebuild/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"i"},
	Short:   "Create a sample project",
	Long: `Create a sample project with a template, a page, a stylesheet, a script,
an image, a static file, package.json and .sitebuild.yml. Existing files are
left alone unless --force is given.

Examples:
  sitebuild init            # in the current directory
  sitebuild init my-site    # in ./my-site
  sitebuild init --name blog --version 0.2.0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initName    string
	initVersion string
	initLicense string
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (default is the directory name)")
	initCmd.Flags().StringVar(&initVersion, "version", "0.1.0", "initial project version")
	initCmd.Flags().StringVar(&initLicense, "license", "MIT", "project license")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve project directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	result, err := scaffold.NewGenerator().Generate(scaffold.Options{
		Dir:     dir,
		Name:    initName,
		Version: initVersion,
		License: initLicense,
		Force:   initForce,
	}, config.Default())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, rel := range result.Created {
		fmt.Fprintf(out, "  created  %s\n", rel)
	}
	for _, rel := range result.Skipped {
		fmt.Fprintf(out, "  exists   %s\n", rel)
	}
	fmt.Fprintf(out, "\nProject ready in %s. Run \"sitebuild serve\" to start.\n", dir)
	return nil
}
