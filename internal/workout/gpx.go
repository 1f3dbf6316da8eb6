package workout

import (
	"errors"
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
)

// ExportGPX writes one waypoint per workout, in store order.
func ExportGPX(workouts []Workout) ([]byte, error) {
	g := gpx.GPX{
		Version: "1.1",
		Creator: "mapty",
		Name:    "Workouts",
	}
	for _, w := range workouts {
		p := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  w.Coords.Lat,
				Longitude: w.Coords.Lng,
			},
			Timestamp:   w.CreatedAt,
			Name:        w.Description,
			Type:        string(w.Kind()),
			Description: Entry(w).String(),
		}
		g.Waypoints = append(g.Waypoints, p)
	}
	return g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

// FromGPX builds a workout from a recorded track: moving distance and
// moving time give distance and duration, the first point gives the
// location. Cycling takes its elevation gain from the track's uphill total.
func FromGPX(data []byte, kind Kind, cadenceSpm int) (Workout, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return Workout{}, fmt.Errorf("error parsing gpx: %w", err)
	}

	start, ok := firstPoint(g)
	if !ok {
		return Workout{}, errors.New("gpx has no track points")
	}

	moving := g.MovingData()
	distanceKm := moving.MovingDistance / 1000.0
	durationMin := moving.MovingTime / 60.0
	coords := Coords{Lat: start.Latitude, Lng: start.Longitude}

	switch kind {
	case KindRunning:
		return NewRunning(coords, distanceKm, durationMin, cadenceSpm)
	case KindCycling:
		return NewCycling(coords, distanceKm, durationMin, g.UphillDownhill().Uphill)
	}
	return Workout{}, &ValidationError{Field: "type", Value: kind}
}

func firstPoint(g *gpx.GPX) (gpx.GPXPoint, bool) {
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			if len(segment.Points) > 0 {
				return segment.Points[0], true
			}
		}
	}
	return gpx.GPXPoint{}, false
}
