// Package internal contains the implementation packages of the sitebuild CLI.
//
// # Package Organization
//
//   - mode: production/development selection
//   - config: viper-backed configuration and validation
//   - layout, fileset, metadata: project paths, glob matching and package.json
//   - build: the clean, copy, templates, styles and scripts tasks
//   - pipeline: task graph and fail-fast concurrent executor
//   - devserver: static file server with live reload injection
//   - livereload: WebSocket hub, client script and error overlay
//   - watcher: fsnotify watching, debouncing and group dispatch
//   - metrics: Prometheus collectors for builds, rebuilds and reloads
//   - scaffold: project generation for the init command
//   - errors, logging, validation, version, testutils: shared support
//
// # Data Flow
//
// A build resolves the mode, loads configuration, then runs the clean task
// followed by the five output tasks concurrently. The serve command runs the
// same build, starts the dev server and hands debounced file events to the
// watcher dispatcher, which reruns the affected task and tells connected
// browsers to reload or swap stylesheets.
package internal
