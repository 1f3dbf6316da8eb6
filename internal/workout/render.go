package workout

import (
	"fmt"
	"strconv"
	"time"
)

// Field is one labelled value in a list entry.
type Field struct {
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// ListEntry is the display form of a workout in the side list.
type ListEntry struct {
	ID          string  `json:"id"`
	Type        Kind    `json:"type"`
	Title       string  `json:"title"`
	Fields      []Field `json:"fields"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	CreatedAt   string  `json:"createdAt"`
	Description string  `json:"description"`
}

// MarkerPopup is the text and style class of a workout's map marker.
type MarkerPopup struct {
	Text      string `json:"text"`
	ClassName string `json:"className"`
	MaxWidth  int    `json:"maxWidth"`
	MinWidth  int    `json:"minWidth"`
	AutoClose bool   `json:"autoClose"`
}

func icon(k Kind) string {
	switch k {
	case KindRunning:
		return "🏃‍♂️"
	case KindCycling:
		return "🚴‍♀️"
	}
	return ""
}

func Entry(w Workout) ListEntry {
	e := ListEntry{
		ID:          w.ID,
		Type:        w.Kind(),
		Title:       w.Description,
		Lat:         w.Coords.Lat,
		Lng:         w.Coords.Lng,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
		Description: w.Description,
		Fields: []Field{
			{Icon: icon(w.Kind()), Value: strconv.FormatFloat(w.DistanceKm, 'f', -1, 64), Unit: "km"},
			{Icon: "⏱", Value: strconv.FormatFloat(w.DurationMin, 'f', -1, 64), Unit: "min"},
		},
	}
	switch d := w.Details.(type) {
	case Running:
		e.Fields = append(e.Fields,
			Field{Icon: "⚡️", Value: fmt.Sprintf("%.1f", d.PaceMinPerKm), Unit: "min/km"},
			Field{Icon: "🦶🏼", Value: strconv.Itoa(d.CadenceSpm), Unit: "spm"},
		)
	case Cycling:
		e.Fields = append(e.Fields,
			Field{Icon: "⚡️", Value: fmt.Sprintf("%.1f", d.SpeedKmH), Unit: "km/h"},
			Field{Icon: "⛰", Value: strconv.FormatFloat(d.ElevationGainM, 'f', -1, 64), Unit: "m"},
		)
	}
	return e
}

func Popup(w Workout) MarkerPopup {
	return MarkerPopup{
		Text:      icon(w.Kind()) + " " + w.Description,
		ClassName: string(w.Kind()) + "-popup",
		MaxWidth:  250,
		MinWidth:  100,
		AutoClose: false,
	}
}

// String renders a list entry on one line for the console.
func (e ListEntry) String() string {
	s := fmt.Sprintf("%s  %s", e.ID, e.Title)
	for _, f := range e.Fields {
		s += fmt.Sprintf("  %s %s %s", f.Icon, f.Value, f.Unit)
	}
	return s
}
