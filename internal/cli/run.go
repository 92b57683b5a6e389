package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/livesync/internal/config"
	"github.com/roach88/livesync/internal/database"
	"github.com/roach88/livesync/internal/store"
)

// session is an open store and database for the duration of one command.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	engine store.Engine
	db     *database.Database
	out    *OutputFormatter
}

// openSession resolves settings and opens the configured store.
// The caller must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := opts.Settings()
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

	logger.Debug("opening store", "engine", cfg.Store.Engine, "path", cfg.Store.Path)
	eng, err := cfg.Store.Open()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	db, err := database.New(eng, cfg.DatabaseOptions(logger)...)
	if err != nil {
		eng.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create database", err)
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		engine: eng,
		db:     db,
		out: &OutputFormatter{
			Format:    cfg.Output,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// Close shuts the database down, then the store.
func (s *session) Close() error {
	err := errors.Join(s.db.Close(), s.engine.Close())
	if err != nil {
		s.logger.Error("error closing store", "error", err)
	}
	return err
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
