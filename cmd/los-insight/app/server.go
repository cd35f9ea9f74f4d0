// Package app provides the insight server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/los-insight/cmd/los-insight/app/options"
	"github.com/kart-io/los-insight/internal/insight"
	"github.com/kart-io/los-insight/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `LOS Insight Service

Length-of-stay analytics and discharge-readiness decision support for a
hospital admissions dataset. Not a diagnostic system.

This server provides:
  - Rule-based discharge-readiness assessment, follow-up plan and lab panel
  - Cohort KPIs, department, comorbidity and monthly trend views
  - Evidence-grounded clinical question answering with rule-based fallback
  - Per-patient clinical notes (file, redis or SQL backend)`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(insight.Name),
		app.WithShortDescription("Length-of-stay insight service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
