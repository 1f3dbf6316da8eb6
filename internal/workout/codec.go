package workout

import (
	"encoding/json"
	"fmt"
	"time"
)

// record is the flat shape of one workout inside the persisted blob.
type record struct {
	ID             string     `json:"id"`
	Type           Kind       `json:"type"`
	CreatedAt      time.Time  `json:"createdAt"`
	Coordinates    [2]float64 `json:"coordinates"`
	DistanceKm     float64    `json:"distanceKm"`
	DurationMin    float64    `json:"durationMin"`
	Description    string     `json:"description"`
	CadenceSpm     *int       `json:"cadenceSpm,omitempty"`
	PaceMinPerKm   *float64   `json:"paceMinPerKm,omitempty"`
	ElevationGainM *float64   `json:"elevationGainM,omitempty"`
	SpeedKmH       *float64   `json:"speedKmH,omitempty"`
}

func toRecord(w Workout) record {
	r := record{
		ID:          w.ID,
		Type:        w.Kind(),
		CreatedAt:   w.CreatedAt,
		Coordinates: [2]float64{w.Coords.Lat, w.Coords.Lng},
		DistanceKm:  w.DistanceKm,
		DurationMin: w.DurationMin,
		Description: w.Description,
	}
	switch d := w.Details.(type) {
	case Running:
		r.CadenceSpm = &d.CadenceSpm
		r.PaceMinPerKm = &d.PaceMinPerKm
	case Cycling:
		r.ElevationGainM = &d.ElevationGainM
		r.SpeedKmH = &d.SpeedKmH
	}
	return r
}

func fromRecord(r record) (Workout, error) {
	w := Workout{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Coords:      Coords{Lat: r.Coordinates[0], Lng: r.Coordinates[1]},
		DistanceKm:  r.DistanceKm,
		DurationMin: r.DurationMin,
		Description: r.Description,
	}
	switch r.Type {
	case KindRunning:
		if r.CadenceSpm == nil || r.PaceMinPerKm == nil {
			return Workout{}, fmt.Errorf("record %s: running fields missing", r.ID)
		}
		w.Details = Running{CadenceSpm: *r.CadenceSpm, PaceMinPerKm: *r.PaceMinPerKm}
	case KindCycling:
		if r.ElevationGainM == nil || r.SpeedKmH == nil {
			return Workout{}, fmt.Errorf("record %s: cycling fields missing", r.ID)
		}
		w.Details = Cycling{ElevationGainM: *r.ElevationGainM, SpeedKmH: *r.SpeedKmH}
	default:
		return Workout{}, fmt.Errorf("record %s: unknown type %q", r.ID, r.Type)
	}
	if err := w.Validate(); err != nil {
		return Workout{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return w, nil
}

// Encode serializes workouts, in order, as one JSON array.
func Encode(workouts []Workout) (string, error) {
	records := make([]record, 0, len(workouts))
	for _, w := range workouts {
		records = append(records, toRecord(w))
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a blob produced by Encode. Any malformed record fails the whole blob.
func Decode(blob string) ([]Workout, error) {
	var records []record
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return nil, err
	}
	workouts := make([]Workout, 0, len(records))
	for _, r := range records {
		w, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, nil
}

// MarshalJSON lets handlers encode a Workout directly in the blob's flat shape.
func (w Workout) MarshalJSON() ([]byte, error) {
	return json.Marshal(toRecord(w))
}

func (w *Workout) UnmarshalJSON(b []byte) error {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	decoded, err := fromRecord(r)
	if err != nil {
		return err
	}
	*w = decoded
	return nil
}
