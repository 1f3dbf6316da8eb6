package app

import (
	"context"

	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/workout"
)

// StaticLocation always reports the same position, or fails when unset.
type StaticLocation struct {
	At *workout.Coords
}

func (s StaticLocation) CurrentLocation(ctx context.Context) (workout.Coords, error) {
	if err := ctx.Err(); err != nil {
		return workout.Coords{}, err
	}
	if s.At == nil {
		return workout.Coords{}, ErrLocationUnavailable
	}
	return *s.At, nil
}

// LocationFromConfig needs both coordinates set to report a position.
func LocationFromConfig(cfg config.LocationConfig) StaticLocation {
	if cfg.Lat == nil || cfg.Lng == nil {
		return StaticLocation{}
	}
	return StaticLocation{At: &workout.Coords{Lat: *cfg.Lat, Lng: *cfg.Lng}}
}

type LocationFunc func(ctx context.Context) (workout.Coords, error)

func (f LocationFunc) CurrentLocation(ctx context.Context) (workout.Coords, error) {
	return f(ctx)
}
