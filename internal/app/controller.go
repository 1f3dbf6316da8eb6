// Package app holds the controller that turns map, form and list events
// into store mutations and render calls.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/briangreenhill/mapty/internal/metrics"
	"github.com/briangreenhill/mapty/internal/workout"
)

const (
	DefaultZoom = 13

	msgLocationUnavailable = "Could not get your current location"
	msgInvalidInput        = "Inputs have to be positive numbers!"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrMapNotReady         = errors.New("map is not ready")
	ErrFormNotOpen         = errors.New("no form is open")
)

type State int

const (
	Idle State = iota
	FormOpen
)

func (s State) String() string {
	if s == FormOpen {
		return "form_open"
	}
	return "idle"
}

// Controller is not safe for concurrent use. Run it behind a Loop when
// events can arrive from more than one goroutine.
type Controller struct {
	store    *workout.Store
	location LocationProvider
	views    Views
	zoom     int
	logger   *slog.Logger

	state    State
	pending  workout.Coords
	mapReady bool
	center   workout.Coords
}

func NewController(store *workout.Store, location LocationProvider, views Views, zoom int, logger *slog.Logger) *Controller {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return &Controller{
		store:    store,
		location: location,
		views:    views,
		zoom:     zoom,
		logger:   logger,
	}
}

func (c *Controller) State() State { return c.state }

// Pending returns the location captured by the last map click while the form is open.
func (c *Controller) Pending() (workout.Coords, bool) {
	return c.pending, c.state == FormOpen
}

func (c *Controller) MapReady() bool { return c.mapReady }

// Start loads persisted workouts, lists them, then asks for the user's
// location once. Markers are drawn only after the map is initialized.
func (c *Controller) Start(ctx context.Context) error {
	c.store.Load(ctx)
	for _, w := range c.store.All() {
		c.views.List.RenderEntry(workout.Entry(w))
	}

	at, err := c.location.CurrentLocation(ctx)
	if err != nil {
		c.logger.Error("Error getting current location", slog.Any("error", err))
		c.views.Notify.Alert(msgLocationUnavailable)
		if errors.Is(err, ErrLocationUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}

	c.views.Map.Initialize(at, c.zoom)
	c.mapReady = true
	c.center = at
	for _, w := range c.store.All() {
		c.views.Map.AddMarker(w.Coords, workout.Popup(w))
	}
	c.logger.Info("Map ready", slog.String("center", at.String()), slog.Int("workouts", c.store.Len()))
	return nil
}

// MapClick opens the form for a workout at the clicked location. A second
// click while the form is open moves the pending location.
func (c *Controller) MapClick(at workout.Coords) error {
	if !c.mapReady {
		return ErrMapNotReady
	}
	if err := at.Validate(); err != nil {
		return err
	}
	c.pending = at
	if c.state == FormOpen {
		return nil
	}
	c.state = FormOpen
	c.views.Form.Show()
	return nil
}

// Submit validates the form and, on success, records the workout at the
// pending location. On a validation error the form stays open and nothing
// is stored. A save error is returned with the workout, which stays in
// memory and rendered.
func (c *Controller) Submit(ctx context.Context, fields FormFields) (workout.Workout, error) {
	if c.state != FormOpen {
		return workout.Workout{}, ErrFormNotOpen
	}

	w, err := c.build(fields)
	if err != nil {
		var verr *workout.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationFailed(verr.Field)
		}
		c.logger.Info("Rejected workout", slog.Any("error", err))
		c.views.Notify.Alert(msgInvalidInput)
		return workout.Workout{}, err
	}

	c.store.Append(w)
	saveErr := c.store.Save(ctx)
	if saveErr != nil {
		c.logger.Error("Error persisting workouts", slog.Any("error", saveErr))
	}
	metrics.WorkoutCreated(string(w.Kind()))

	c.views.Map.AddMarker(w.Coords, workout.Popup(w))
	c.views.List.RenderEntry(workout.Entry(w))
	c.closeForm()

	c.logger.Info("Workout added", slog.String("id", w.ID), slog.String("type", string(w.Kind())))
	return w, saveErr
}

// Cancel closes the form and forgets the pending location.
func (c *Controller) Cancel() {
	if c.state != FormOpen {
		return
	}
	c.closeForm()
}

func (c *Controller) closeForm() {
	c.views.Form.Hide()
	c.views.Form.ClearFields()
	c.state = Idle
	c.pending = workout.Coords{}
}

// ListClick centers the map on the referenced workout. Unknown ids are ignored.
func (c *Controller) ListClick(id string) bool {
	w, ok := c.store.FindByID(id)
	if !ok {
		c.logger.Debug("List click on unknown workout", slog.String("id", id))
		return false
	}
	if !c.mapReady {
		return false
	}
	c.views.Map.SetView(w.Coords, c.zoom, true)
	return true
}

func (c *Controller) TypeChanged() {
	c.views.Form.ToggleCadenceElevation()
}

// Reset drops every workout and persists the empty list.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("Workouts cleared")
	return nil
}

func (c *Controller) Workouts() []workout.Workout {
	return c.store.All()
}

func (c *Controller) Find(id string) (workout.Workout, bool) {
	return c.store.FindByID(id)
}

// Replay renders the current state into v, for a view that attached late.
func (c *Controller) Replay(v Views) {
	if c.mapReady {
		v.Map.Initialize(c.center, c.zoom)
	}
	for _, w := range c.store.All() {
		v.List.RenderEntry(workout.Entry(w))
		if c.mapReady {
			v.Map.AddMarker(w.Coords, workout.Popup(w))
		}
	}
	if c.state == FormOpen {
		v.Form.Show()
	}
}

func (c *Controller) build(f FormFields) (workout.Workout, error) {
	kind, err := workout.ParseKind(f.Type)
	if err != nil {
		return workout.Workout{}, err
	}
	distance, err := parseNumber("distance", f.Distance)
	if err != nil {
		return workout.Workout{}, err
	}
	duration, err := parseNumber("duration", f.Duration)
	if err != nil {
		return workout.Workout{}, err
	}

	switch kind {
	case workout.KindRunning:
		cadence, err := parseNumber("cadence", f.Cadence)
		if err != nil {
			return workout.Workout{}, err
		}
		if cadence != math.Trunc(cadence) || cadence > math.MaxInt32 {
			return workout.Workout{}, &workout.ValidationError{Field: "cadence", Value: f.Cadence}
		}
		return workout.NewRunning(c.pending, distance, duration, int(cadence))
	case workout.KindCycling:
		elevation, err := parseNumber("elevation", f.Elevation)
		if err != nil {
			return workout.Workout{}, err
		}
		return workout.NewCycling(c.pending, distance, duration, elevation)
	}
	return workout.Workout{}, &workout.ValidationError{Field: "type", Value: f.Type}
}

func parseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &workout.ValidationError{Field: field, Value: raw}
	}
	return v, nil
}
