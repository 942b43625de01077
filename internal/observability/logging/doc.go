// Package logging configures log/slog and carries loggers through contexts.
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithLogger(ctx, logger.With(slog.String("cycle_id", id)))
//	logging.FromContext(ctx).Info("cycle started")
package logging
