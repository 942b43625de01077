package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"channel-digest/internal/bootstrap"
	"channel-digest/internal/config"
	"channel-digest/internal/observability/logging"
)

type pipelineKeyType struct{}

var pipelineKey pipelineKeyType

// newPipeline builds the pipeline for a command. Tests replace it.
var newPipeline = func(ctx context.Context) (*bootstrap.Pipeline, config.App, error) {
	if err := config.Bootstrap(); err != nil {
		return nil, config.App{}, err
	}
	app, err := config.Load(nil)
	if err != nil {
		return nil, config.App{}, err
	}
	p, err := bootstrap.NewPipeline(ctx, app, bootstrap.Options{})
	if err != nil {
		return nil, config.App{}, err
	}
	return p, app, nil
}

type session struct {
	pipeline *bootstrap.Pipeline
	app      config.App
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:           "digestctl",
		Short:         "Operate the channel digest pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.NewTextLogger()
			if verbose {
				logger = logging.New(cmd.ErrOrStderr(), slog.LevelDebug, true)
			}
			slog.SetDefault(logger)

			p, app, err := newPipeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize pipeline: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), pipelineKey, &session{pipeline: p, app: app}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if s, err := resolveSession(cmd.Context()); err == nil {
				_ = s.pipeline.Close()
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(
		newCycleCmd(),
		newInitCmd(),
		newStatusCmd(),
		newReprocessCmd(),
		newArticlesCmd(),
	)
	return cmd
}

func resolveSession(ctx context.Context) (*session, error) {
	s, ok := ctx.Value(pipelineKey).(*session)
	if !ok || s == nil {
		return nil, errors.New("pipeline not initialized")
	}
	return s, nil
}
