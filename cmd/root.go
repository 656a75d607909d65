// Package cmd provides the sitebuild command-line interface.
//
// Configuration is read from, highest priority first:
//
//  1. command-line flags (--config, --log-level, --port, ...)
//  2. SITEBUILD_* environment variables, e.g. SITEBUILD_SERVER_PORT
//  3. the file named by --config or SITEBUILD_CONFIG_FILE
//  4. .sitebuild.yml in the working directory
//
// A .env file in the working directory is loaded into the environment
// first, so it can set any of the variables above.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/sitebuild/internal/config"
	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
)

var (
	cfgFile string

	// configReadErr holds a failure to parse an existing config file. It
	// is reported by the first command that loads configuration.
	configReadErr error
)

var rootCmd = &cobra.Command{
	Use:   "sitebuild",
	Short: "Build and serve a static site from templates, styles and scripts",
	Long: `sitebuild compiles a source tree of templates, stylesheets and scripts into
a static site, and serves it with live reload while you work.

Quick Start:
  sitebuild init      Create a sample project and .sitebuild.yml
  sitebuild serve     Build in development mode, serve and watch
  sitebuild build     Build for production
  sitebuild clean     Remove the output directory`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

// Exit codes by failure category.
const (
	exitFailure    = 1
	exitConfig     = 2
	exitServer     = 3
	exitCompile    = 4
	exitFilesystem = 5
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case siteerrors.HasErrorType(err, siteerrors.ErrorTypeConfig):
		return exitConfig
	case siteerrors.IsServerError(err):
		return exitServer
	case siteerrors.IsCompileError(err):
		return exitCompile
	case siteerrors.IsFilesystemError(err):
		return exitFilesystem
	default:
		return exitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .sitebuild.yml, can also use SITEBUILD_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
}

// normalizeFlagName accepts --log_level and --log.level for --log-level.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.NewReplacer("_", "-", ".", "-").Replace(name))
}

func initConfig() {
	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	config.SetDefaults(viper.GetViper())
	bindFlags()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)

	configReadErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configReadErr = err
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}

// bindFlags maps flags onto configuration keys. It runs on every
// execution so a reset Viper instance picks the bindings up again.
func bindFlags() {
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	for key, flag := range serveFlagKeys {
		_ = viper.BindPFlag(key, serveCmd.Flags().Lookup(flag))
	}
}

// configPath names the config file for error messages.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return config.FileName + ".yml"
}
