package workout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps the form's type selector value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRunning:
		return KindRunning, nil
	case KindCycling:
		return KindCycling, nil
	}
	return "", &ValidationError{Field: "type", Value: s}
}

type Coords struct {
	Lat float64
	Lng float64
}

func (c Coords) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// Details is the variant part of a Workout. Only Running and Cycling implement it.
type Details interface {
	Kind() Kind
	isDetails()
}

type Running struct {
	CadenceSpm   int
	PaceMinPerKm float64
}

func (Running) Kind() Kind { return KindRunning }
func (Running) isDetails() {}

type Cycling struct {
	ElevationGainM float64
	SpeedKmH       float64
}

func (Cycling) Kind() Kind { return KindCycling }
func (Cycling) isDetails() {}

// Workout is one logged activity. It is never mutated after construction.
type Workout struct {
	ID          string
	CreatedAt   time.Time
	Coords      Coords
	DistanceKm  float64
	DurationMin float64
	Description string
	Details     Details
}

func (w Workout) Kind() Kind {
	if w.Details == nil {
		return ""
	}
	return w.Details.Kind()
}

var ErrNotFound = errors.New("workout not found")

// ValidationError reports a non-positive or malformed input field.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// overridden in tests
var (
	nowFn   = func() time.Time { return time.Now().UTC() }
	newIDFn = uuid.NewString
)

func NewRunning(coords Coords, distanceKm, durationMin float64, cadenceSpm int) (Workout, error) {
	if err := checkCommon(distanceKm, durationMin); err != nil {
		return Workout{}, err
	}
	if cadenceSpm <= 0 {
		return Workout{}, &ValidationError{Field: "cadence", Value: cadenceSpm}
	}
	if err := coords.Validate(); err != nil {
		return Workout{}, err
	}
	pace := durationMin / distanceKm
	if err := checkRatio(pace, "duration", durationMin, "distance", distanceKm); err != nil {
		return Workout{}, err
	}
	return build(coords, distanceKm, durationMin, Running{
		CadenceSpm:   cadenceSpm,
		PaceMinPerKm: pace,
	}), nil
}

// NewCycling accepts zero or negative elevation gain but not NaN or Inf.
func NewCycling(coords Coords, distanceKm, durationMin, elevationGainM float64) (Workout, error) {
	if err := checkCommon(distanceKm, durationMin); err != nil {
		return Workout{}, err
	}
	if !finite(elevationGainM) {
		return Workout{}, &ValidationError{Field: "elevation", Value: elevationGainM}
	}
	if err := coords.Validate(); err != nil {
		return Workout{}, err
	}
	speed := distanceKm / (durationMin / 60)
	if err := checkRatio(speed, "distance", distanceKm, "duration", durationMin); err != nil {
		return Workout{}, err
	}
	return build(coords, distanceKm, durationMin, Cycling{
		ElevationGainM: elevationGainM,
		SpeedKmH:       speed,
	}), nil
}

func build(coords Coords, distanceKm, durationMin float64, d Details) Workout {
	created := nowFn()
	return Workout{
		ID:          newIDFn(),
		CreatedAt:   created,
		Coords:      coords,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Description: describe(d.Kind(), created),
		Details:     d,
	}
}

func checkCommon(distanceKm, durationMin float64) error {
	if !finite(distanceKm) || distanceKm <= 0 {
		return &ValidationError{Field: "distance", Value: distanceKm}
	}
	if !finite(durationMin) || durationMin <= 0 {
		return &ValidationError{Field: "duration", Value: durationMin}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate rejects NaN or infinite coordinates.
func (c Coords) Validate() error {
	if !finite(c.Lat) || !finite(c.Lng) {
		return &ValidationError{Field: "coordinates", Value: c}
	}
	return nil
}

// checkRatio rejects a derived num/den that overflowed, blaming whichever
// operand is further from 1 in magnitude.
func checkRatio(ratio float64, numField string, num float64, denField string, den float64) error {
	if finite(ratio) {
		return nil
	}
	if math.Abs(math.Log(den)) > math.Abs(math.Log(num)) {
		return &ValidationError{Field: denField, Value: den}
	}
	return &ValidationError{Field: numField, Value: num}
}

// describe yields e.g. "Running on October 17".
func describe(k Kind, t time.Time) string {
	name := string(k)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s on %s %d", name, t.Month(), t.Day())
}

// Validate re-checks the construction invariants on a decoded record.
func (w Workout) Validate() error {
	if w.ID == "" {
		return &ValidationError{Field: "id", Value: w.ID}
	}
	if err := checkCommon(w.DistanceKm, w.DurationMin); err != nil {
		return err
	}
	if err := w.Coords.Validate(); err != nil {
		return err
	}
	switch d := w.Details.(type) {
	case Running:
		if d.CadenceSpm <= 0 {
			return &ValidationError{Field: "cadence", Value: d.CadenceSpm}
		}
		if !finite(d.PaceMinPerKm) {
			return &ValidationError{Field: "pace", Value: d.PaceMinPerKm}
		}
	case Cycling:
		if !finite(d.ElevationGainM) {
			return &ValidationError{Field: "elevation", Value: d.ElevationGainM}
		}
		if !finite(d.SpeedKmH) {
			return &ValidationError{Field: "speed", Value: d.SpeedKmH}
		}
	default:
		return &ValidationError{Field: "type", Value: w.Details}
	}
	return nil
}
