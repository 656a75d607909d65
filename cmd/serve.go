package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitebuild/internal/build"
	"github.com/conneroisu/sitebuild/internal/config"
	"github.com/conneroisu/sitebuild/internal/devserver"
	"github.com/conneroisu/sitebuild/internal/livereload"
	"github.com/conneroisu/sitebuild/internal/mode"
	"github.com/conneroisu/sitebuild/internal/validation"
	"github.com/conneroisu/sitebuild/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// serveFlagKeys maps configuration keys to serve flags.
var serveFlagKeys = map[string]string{
	"server.host":     "host",
	"server.port":     "port",
	"server.open":     "open",
	"server.compress": "compress",
	"watch.debounce":  "debounce",
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Build, serve and rebuild on change",
	Long: `Build the site once in development mode, then serve the output directory
and watch the source tree. Changed stylesheets are swapped in the browser
without a reload; every other change reloads the page. A failing rebuild
shows an error overlay in the browser and the server keeps running.

Examples:
  sitebuild serve                     # http://localhost:1337
  sitebuild serve --port 8080 --open  # custom port, open a browser
  SITEBUILD_SERVER_COMPRESS=true sitebuild serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	d := config.Default()
	serveCmd.Flags().String("mode", string(mode.Development), "build mode (development, production)")
	serveCmd.Flags().String("host", d.Server.Host, "host to bind to")
	serveCmd.Flags().IntP("port", "p", d.Server.Port, "port to serve on")
	serveCmd.Flags().Bool("open", d.Server.Open, "open a browser once the server is up")
	serveCmd.Flags().Bool("compress", d.Server.Compress, "brotli-compress responses")
	serveCmd.Flags().Duration("debounce", d.Watch.Debounce, "quiet period before a change batch is rebuilt")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, modeFlag(cmd, mode.Development))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := build.Run(ctx, a.env); err != nil {
		return err
	}

	hub := livereload.NewHub(a.logger, a.metrics, validation.LocalOrigins(a.cfg.Server.Host, a.cfg.Server.Port))
	go hub.Run(ctx)

	srv := devserver.New(devserver.OptionsFromConfig(a.cfg, a.env.Layout.OutDir()), hub, a.metrics, a.logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	groups, err := watcher.Groups(a.env)
	if err != nil {
		return err
	}
	dispatcher := watcher.NewDispatcher(groups, hub, a.metrics, a.logger)
	fw, err := watcher.ForProject(a.env, a.cfg.Watch.Debounce, dispatcher, a.logger)
	if err != nil {
		_ = shutdown(srv)
		return err
	}
	defer fw.Stop()
	if err := fw.Start(ctx); err != nil {
		_ = shutdown(srv)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s (press Ctrl+C to stop)\n", a.env.Layout.Output, srv.URL())

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-srv.Err():
		if ok {
			serveErr = err
		}
	}

	if err := shutdown(srv); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func shutdown(srv *devserver.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
