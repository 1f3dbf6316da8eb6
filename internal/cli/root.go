// Package cli wires the mapty command line: the web server and offline
// commands that work directly against the configured store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/mapty/internal/blob"
	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/logger"
	"github.com/briangreenhill/mapty/internal/workout"
)

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// session is the config, logger and store one command runs against. The
// store starts empty: commands call Load, or Start a controller that does.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	blobs  blob.Store
	store  *workout.Store
	closer io.Closer
}

func openSession(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags) (*session, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	log, closer := logger.New(cmd.ErrOrStderr(), cfg.Log)

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}

	store := workout.NewStore(blobs, cfg.Storage.Key, log)
	return &session{cfg: cfg, logger: log, blobs: blobs, store: store, closer: closer}, nil
}

func (s *session) Close() {
	if err := s.blobs.Close(); err != nil {
		s.logger.Error("Error closing storage", slog.Any("error", err))
	}
	_ = s.closer.Close()
}

// NewRoot builds the mapty command tree.
func NewRoot() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "mapty",
		Short: "Map-based workout tracker",
		Long: `Mapty records running and cycling workouts at places on a map.

Examples:
  mapty serve                              # web map on :8222
  mapty add running --lat 51.5 --lng -0.12 --distance 5 --duration 30 --cadence 170
  mapty list
  mapty import --gpx morning.gpx --type cycling`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to config file (optional)")

	root.AddCommand(
		createServeCommand(flags),
		createAddCommand(flags),
		createListCommand(flags),
		createShowCommand(flags),
		createImportCommand(flags),
		createExportCommand(flags),
		createResetCommand(flags),
	)
	return root
}
