package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/mapty/internal/app"
	"github.com/briangreenhill/mapty/internal/metrics"
	"github.com/briangreenhill/mapty/internal/web"
	"github.com/briangreenhill/mapty/internal/workout"
)

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	Addr string
}

// AddFlags holds flags for the add command
type AddFlags struct {
	Lat       float64
	Lng       float64
	Distance  string
	Duration  string
	Cadence   string
	Elevation string
}

// ImportFlags holds flags for the import command
type ImportFlags struct {
	GPXPath string
	Type    string
	Cadence int
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web map",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := openSession(ctx, cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("registering metrics: %w", err)
			}

			hub := web.NewHub(s.logger, s.cfg.Map.TileURL, s.cfg.Map.MaxZoom)
			c := app.NewController(s.store, app.LocationFromConfig(s.cfg.Location), hub.Views(), s.cfg.Map.Zoom, s.logger)
			if err := c.Start(ctx); err != nil {
				s.logger.Warn("Serving without a map, set location.lat and location.lng", slog.Any("error", err))
			}

			loop := app.NewLoop(c)
			go func() {
				_ = loop.Run(ctx)
			}()

			addr := s.cfg.HTTP.Addr
			if serveFlags.Addr != "" {
				addr = serveFlags.Addr
			}
			return web.Serve(ctx, s.logger, addr, web.NewAPI(s.logger, loop, hub, s.cfg.UI.Dir))
		},
	}
	cmd.Flags().StringVar(&serveFlags.Addr, "addr", "", "listen address, overrides http.addr")
	return cmd
}

func createAddCommand(globalFlags *GlobalFlags) *cobra.Command {
	addFlags := &AddFlags{}
	cmd := &cobra.Command{
		Use:       "add running|cycling",
		Short:     "Record a workout at a location",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(workout.KindRunning), string(workout.KindCycling)},
		Example: `  mapty add running --lat 51.5 --lng -0.12 --distance 5 --duration 30 --cadence 170
  mapty add cycling --lat 51.5 --lng -0.12 --distance 20 --duration 60 --elevation 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			at := workout.Coords{Lat: addFlags.Lat, Lng: addFlags.Lng}
			out := &console{w: cmd.OutOrStdout(), quiet: true}
			c := app.NewController(s.store, app.StaticLocation{At: &at}, out.views(), s.cfg.Map.Zoom, s.logger)
			if err := c.Start(ctx); err != nil {
				return err
			}
			out.quiet = false

			if err := c.MapClick(at); err != nil {
				return err
			}
			_, err = c.Submit(ctx, app.FormFields{
				Type:      args[0],
				Distance:  addFlags.Distance,
				Duration:  addFlags.Duration,
				Cadence:   addFlags.Cadence,
				Elevation: addFlags.Elevation,
			})
			return err
		},
	}
	cmd.Flags().Float64Var(&addFlags.Lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&addFlags.Lng, "lng", 0, "longitude (required)")
	cmd.Flags().StringVar(&addFlags.Distance, "distance", "", "distance in km")
	cmd.Flags().StringVar(&addFlags.Duration, "duration", "", "duration in minutes")
	cmd.Flags().StringVar(&addFlags.Cadence, "cadence", "", "cadence in steps/min (running)")
	cmd.Flags().StringVar(&addFlags.Elevation, "elevation", "", "elevation gain in meters (cycling)")
	for _, name := range []string{"lat", "lng"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func createListCommand(globalFlags *GlobalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded workouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			s.store.Load(cmd.Context())

			all := s.store.All()
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			if len(all) == 0 {
				fmt.Fprintln(w, "No workouts yet")
				return nil
			}
			for _, wo := range all {
				fmt.Fprintln(w, workout.Entry(wo).String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stored records as JSON")
	return cmd
}

func createShowCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one workout as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			s.store.Load(cmd.Context())

			wo, ok := s.store.FindByID(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", workout.ErrNotFound, args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(wo)
		},
	}
}

func createImportCommand(globalFlags *GlobalFlags) *cobra.Command {
	importFlags := &ImportFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Record a workout from a GPX track",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := workout.ParseKind(importFlags.Type)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(importFlags.GPXPath)
			if err != nil {
				return fmt.Errorf("error reading gpx file: %w", err)
			}

			s, err := openSession(cmd.Context(), cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			s.store.Load(cmd.Context())

			wo, err := workout.FromGPX(data, kind, importFlags.Cadence)
			if err != nil {
				return err
			}
			s.store.Append(wo)
			if err := s.store.Save(cmd.Context()); err != nil {
				return err
			}
			s.logger.Info("Workout imported", slog.String("id", wo.ID), slog.String("file", importFlags.GPXPath))
			fmt.Fprintln(cmd.OutOrStdout(), workout.Entry(wo).String())
			return nil
		},
	}
	cmd.Flags().StringVar(&importFlags.GPXPath, "gpx", "", "path to GPX file (required)")
	cmd.Flags().StringVar(&importFlags.Type, "type", string(workout.KindRunning), "workout type: running or cycling")
	cmd.Flags().IntVar(&importFlags.Cadence, "cadence", 0, "cadence in steps/min (running)")
	if err := cmd.MarkFlagRequired("gpx"); err != nil {
		panic(err)
	}
	return cmd
}

func createExportCommand(globalFlags *GlobalFlags) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all workouts as GPX waypoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			s.store.Load(cmd.Context())

			data, err := workout.ExportGPX(s.store.All())
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(outPath, data, 0644)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file, stdout when empty")
	return cmd
}

func createResetCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored workout",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, globalFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			s.store.Load(cmd.Context())

			n := s.store.Len()
			if err := s.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d workouts\n", n)
			return nil
		},
	}
}
