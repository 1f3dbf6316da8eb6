package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/briangreenhill/mapty/internal/app"
	"github.com/briangreenhill/mapty/internal/metrics"
	"github.com/briangreenhill/mapty/internal/workout"
)

type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type listClickRequest struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func NewAPI(logger *slog.Logger, loop *app.Loop, hub *Hub, uiDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.Dir(uiDir)))
	mux.Handle("GET /healthz", handleHealth())
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /ws", handleSignals(logger, loop, hub))
	mux.Handle("POST /events/map-click", handleMapClick(logger, loop))
	mux.Handle("POST /events/submit", handleSubmit(logger, loop))
	mux.Handle("POST /events/cancel", handleCancel(logger, loop))
	mux.Handle("POST /events/type-change", handleTypeChange(logger, loop))
	mux.Handle("POST /events/list-click", handleListClick(logger, loop))
	mux.Handle("GET /workouts", handleGetWorkouts(logger, loop))
	mux.Handle("GET /workouts/{id}", handleGetWorkout(logger, loop))
	mux.Handle("GET /workouts.gpx", handleExportGPX(logger, loop))
	mux.Handle("POST /reset", handleReset(logger, loop, hub))

	return mux
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", slog.Any("error", err))
	}
}

func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleSignals streams render signals to one browser. A new connection
// first receives the current map, markers, list and form state, then
// joins broadcasts in the same loop turn so no signal is missed or doubled.
func handleSignals(logger *slog.Logger, loop *app.Loop, hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Error upgrading connection", slog.Any("error", err))
			return
		}
		defer conn.Close()

		client := NewClient()
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer client.Stop()
			for msg := range client.Send {
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					logger.Debug("Error writing signal", slog.Any("error", err))
					_ = conn.Close()
					return
				}
			}
		}()
		defer func() {
			hub.Unregister(client)
			<-done
		}()

		err = loop.Do(r.Context(), func(c *app.Controller) {
			c.Replay(hub.ClientViews(client))
			hub.Register(client)
		})
		if err != nil {
			logger.Error("Error replaying state", slog.Any("error", err))
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func handleMapClick(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req clickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == nil || req.Lng == nil {
			writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: "lat and lng are required"})
			return
		}
		at := workout.Coords{Lat: *req.Lat, Lng: *req.Lng}

		_, err := app.Call(r.Context(), loop, func(c *app.Controller) (struct{}, error) {
			return struct{}{}, c.MapClick(at)
		})
		var verr *workout.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(logger, w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field})
		case errors.Is(err, app.ErrMapNotReady):
			writeJSON(logger, w, http.StatusConflict, errorResponse{Error: err.Error()})
		case err != nil:
			logger.Error("Error handling map click", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func handleSubmit(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var fields app.FormFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: "invalid form payload"})
			return
		}

		created, err := app.Call(r.Context(), loop, func(c *app.Controller) (workout.Workout, error) {
			return c.Submit(r.Context(), fields)
		})

		var verr *workout.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(logger, w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field})
		case errors.Is(err, app.ErrFormNotOpen):
			writeJSON(logger, w, http.StatusConflict, errorResponse{Error: err.Error()})
		case err != nil:
			logger.Error("Error submitting workout", slog.Any("error", err))
			writeJSON(logger, w, http.StatusInternalServerError, errorResponse{Error: "workout recorded but not persisted"})
		default:
			writeJSON(logger, w, http.StatusCreated, created)
		}
	})
}

func handleCancel(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := loop.Do(r.Context(), func(c *app.Controller) { c.Cancel() }); err != nil {
			logger.Error("Error cancelling form", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleTypeChange(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := loop.Do(r.Context(), func(c *app.Controller) { c.TypeChanged() }); err != nil {
			logger.Error("Error toggling fields", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleListClick answers 204 whether or not the id exists.
func handleListClick(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req listClickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
			return
		}
		if err := loop.Do(r.Context(), func(c *app.Controller) { c.ListClick(req.ID) }); err != nil {
			logger.Error("Error handling list click", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleGetWorkouts(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workouts, err := app.Call(r.Context(), loop, func(c *app.Controller) ([]workout.Workout, error) {
			return c.Workouts(), nil
		})
		if err != nil {
			logger.Error("Error getting workouts", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(logger, w, http.StatusOK, workouts)
	})
}

func handleGetWorkout(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		found, err := app.Call(r.Context(), loop, func(c *app.Controller) (workout.Workout, error) {
			wo, ok := c.Find(id)
			if !ok {
				return workout.Workout{}, workout.ErrNotFound
			}
			return wo, nil
		})
		switch {
		case errors.Is(err, workout.ErrNotFound):
			writeJSON(logger, w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case err != nil:
			logger.Error("Error getting workout", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
		default:
			writeJSON(logger, w, http.StatusOK, found)
		}
	})
}

func handleExportGPX(logger *slog.Logger, loop *app.Loop) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := app.Call(r.Context(), loop, func(c *app.Controller) ([]byte, error) {
			return workout.ExportGPX(c.Workouts())
		})
		if err != nil {
			logger.Error("Error exporting gpx", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/gpx+xml")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Error("Error writing gpx", slog.Any("error", err))
		}
	})
}

func handleReset(logger *slog.Logger, loop *app.Loop, hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := app.Call(r.Context(), loop, func(c *app.Controller) (struct{}, error) {
			if err := c.Reset(r.Context()); err != nil {
				return struct{}{}, err
			}
			hub.Broadcast(Signal{Kind: SignalListCleared})
			return struct{}{}, nil
		})
		if err != nil {
			logger.Error("Error resetting workouts", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// Serve runs the API on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", slog.Any("error", err))
		}
	}()

	logger.Info("Starting server", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Error starting server", slog.Any("error", err))
		return err
	}
	return nil
}
