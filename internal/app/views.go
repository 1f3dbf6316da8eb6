package app

import (
	"context"

	"github.com/briangreenhill/mapty/internal/workout"
)

// LocationProvider makes a single attempt to find the user's position.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (workout.Coords, error)
}

type MapWidget interface {
	Initialize(center workout.Coords, zoom int)
	AddMarker(at workout.Coords, popup workout.MarkerPopup)
	SetView(center workout.Coords, zoom int, animate bool)
}

type FormUI interface {
	Show()
	Hide()
	ClearFields()
	ToggleCadenceElevation()
}

type ListUI interface {
	RenderEntry(entry workout.ListEntry)
}

// Notifier shows a blocking notice to the user.
type Notifier interface {
	Alert(message string)
}

// Views groups the render targets the controller drives.
type Views struct {
	Map    MapWidget
	Form   FormUI
	List   ListUI
	Notify Notifier
}

// FormFields is the form as typed by the user. Numbers arrive as text.
type FormFields struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence,omitempty"`
	Elevation string `json:"elevation,omitempty"`
}
