// Package logging provides structured logging on top of log/slog.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text, and console output formats
//   - Context-aware logging with request IDs, entry names, and trace IDs
//   - Optional async buffering that drops records instead of blocking
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Shutdown()
//
//	logger.Info("Resource loaded",
//	    "entry", "stopwords",
//	    "generation", 3,
//	)
//
// Components that accept a *slog.Logger, such as the registry, are handed
// logger.Slog().
//
// # Context Fields
//
//	ctx = logging.WithEntry(ctx, "stopwords")
//	ctx = logging.WithOperation(ctx, "reload")
//	logger.InfoContext(ctx, "Reload requested")
//
// When a context carries an OpenTelemetry span, its trace and span IDs are
// added automatically.
package logging
