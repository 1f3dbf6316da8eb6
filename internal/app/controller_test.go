package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/mapty/internal/blob"
	"github.com/briangreenhill/mapty/internal/workout"
)

type marker struct {
	At    workout.Coords
	Popup workout.MarkerPopup
}

type setView struct {
	At      workout.Coords
	Zoom    int
	Animate bool
}

// recorder captures every render call the controller makes.
type recorder struct {
	initialized []workout.Coords
	markers     []marker
	views       []setView
	entries     []workout.ListEntry
	alerts      []string
	shows       int
	hides       int
	clears      int
	toggles     int
}

func (r *recorder) Initialize(center workout.Coords, _ int) {
	r.initialized = append(r.initialized, center)
}
func (r *recorder) AddMarker(at workout.Coords, p workout.MarkerPopup) {
	r.markers = append(r.markers, marker{At: at, Popup: p})
}
func (r *recorder) SetView(at workout.Coords, zoom int, animate bool) {
	r.views = append(r.views, setView{At: at, Zoom: zoom, Animate: animate})
}
func (r *recorder) Show() { r.shows++ }
func (r *recorder) Hide() { r.hides++ }
func (r *recorder) ClearFields() { r.clears++ }
func (r *recorder) ToggleCadenceElevation() { r.toggles++ }
func (r *recorder) RenderEntry(e workout.ListEntry) { r.entries = append(r.entries, e) }
func (r *recorder) Alert(message string) { r.alerts = append(r.alerts, message) }
func (r *recorder) asViews() Views { return Views{Map: r, Form: r, List: r, Notify: r} }

type countingBlobs struct {
	*blob.Memory
	writeErr error
}

func (c *countingBlobs) WriteBlob(ctx context.Context, key, value string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	return c.Memory.WriteBlob(ctx, key, value)
}

var london = workout.Coords{Lat: 51.5, Lng: -0.12}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, blobs blob.Store, loc LocationProvider) (*Controller, *recorder, *workout.Store) {
	t.Helper()
	rec := &recorder{}
	store := workout.NewStore(blobs, "", discardLogger())
	c := NewController(store, loc, rec.asViews(), 0, discardLogger())
	return c, rec, store
}

func startedController(t *testing.T) (*Controller, *recorder, *workout.Store, *countingBlobs) {
	t.Helper()
	blobs := &countingBlobs{Memory: blob.NewMemory()}
	c, rec, store := newTestController(t, blobs, StaticLocation{At: &london})
	require.NoError(t, c.Start(context.Background()))
	return c, rec, store, blobs
}

func TestStartInitializesMap(t *testing.T) {
	c, rec, _, _ := startedController(t)

	assert.True(t, c.MapReady())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, []workout.Coords{london}, rec.initialized)
	assert.Empty(t, rec.alerts)
}

func TestStartLocationUnavailable(t *testing.T) {
	c, rec, _ := newTestController(t, blob.NewMemory(), StaticLocation{})

	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrLocationUnavailable)
	assert.False(t, c.MapReady())
	assert.Equal(t, []string{msgLocationUnavailable}, rec.alerts)
	assert.Empty(t, rec.initialized)

	require.ErrorIs(t, c.MapClick(london), ErrMapNotReady)
	assert.Equal(t, Idle, c.State())
}

func TestStartWrapsProviderError(t *testing.T) {
	denied := LocationFunc(func(context.Context) (workout.Coords, error) {
		return workout.Coords{}, errors.New("permission denied")
	})
	c, rec, _ := newTestController(t, blob.NewMemory(), denied)

	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Len(t, rec.alerts, 1)
}

func TestStartRendersPersistedWorkouts(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	first, rec1, _ := newTestController(t, blobs, StaticLocation{At: &london})
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.MapClick(london))
	_, err := first.Submit(ctx, FormFields{Type: "running", Distance: "5", Duration: "25", Cadence: "180"})
	require.NoError(t, err)
	require.NoError(t, first.MapClick(workout.Coords{Lat: 1, Lng: 2}))
	_, err = first.Submit(ctx, FormFields{Type: "cycling", Distance: "20", Duration: "60", Elevation: "400"})
	require.NoError(t, err)
	require.Len(t, rec1.entries, 2)

	second, rec2, _ := newTestController(t, blobs, StaticLocation{At: &london})
	require.NoError(t, second.Start(ctx))

	require.Len(t, rec2.entries, 2)
	assert.Equal(t, rec1.entries[0].ID, rec2.entries[0].ID)
	assert.Equal(t, rec1.entries[1].ID, rec2.entries[1].ID)
	require.Len(t, rec2.markers, 2)
	assert.Equal(t, london, rec2.markers[0].At)
	assert.Equal(t, workout.Coords{Lat: 1, Lng: 2}, rec2.markers[1].At)
}

func TestStartWithoutLocationStillListsWorkouts(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	first, _, _ := newTestController(t, blobs, StaticLocation{At: &london})
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.MapClick(london))
	_, err := first.Submit(ctx, FormFields{Type: "running", Distance: "5", Duration: "25", Cadence: "180"})
	require.NoError(t, err)

	second, rec, _ := newTestController(t, blobs, StaticLocation{})
	require.Error(t, second.Start(ctx))
	assert.Len(t, rec.entries, 1)
	assert.Empty(t, rec.markers)
}

func TestMapClickOpensForm(t *testing.T) {
	c, rec, _, _ := startedController(t)

	require.NoError(t, c.MapClick(london))
	assert.Equal(t, FormOpen, c.State())
	pending, open := c.Pending()
	assert.True(t, open)
	assert.Equal(t, london, pending)
	assert.Equal(t, 1, rec.shows)

	other := workout.Coords{Lat: 10, Lng: 10}
	require.NoError(t, c.MapClick(other))
	pending, _ = c.Pending()
	assert.Equal(t, other, pending)
	assert.Equal(t, 1, rec.shows)
}

func TestSubmitRunningScenario(t *testing.T) {
	ctx := context.Background()
	c, rec, store, blobs := startedController(t)
	require.NoError(t, c.MapClick(london))

	w, err := c.Submit(ctx, FormFields{Type: "running", Distance: "5.2", Duration: "30", Cadence: "170"})
	require.NoError(t, err)

	r, ok := w.Details.(workout.Running)
	require.True(t, ok)
	assert.InDelta(t, 5.769, r.PaceMinPerKm, 0.001)
	assert.True(t, strings.HasPrefix(w.Description, "Running on"))
	assert.Equal(t, london, w.Coords)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, blobs.Writes())

	require.Len(t, rec.markers, 1)
	assert.Equal(t, london, rec.markers[0].At)
	assert.Equal(t, "running-popup", rec.markers[0].Popup.ClassName)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, w.ID, rec.entries[0].ID)
	assert.Equal(t, 1, rec.hides)
	assert.Equal(t, 1, rec.clears)
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, rec.alerts)
}

func TestSubmitCyclingScenario(t *testing.T) {
	c, _, _, _ := startedController(t)
	require.NoError(t, c.MapClick(london))

	w, err := c.Submit(context.Background(), FormFields{Type: "cycling", Distance: "20", Duration: "60", Elevation: "400"})
	require.NoError(t, err)

	cyc, ok := w.Details.(workout.Cycling)
	require.True(t, ok)
	assert.Equal(t, 20.0, cyc.SpeedKmH)
	assert.Equal(t, 400.0, cyc.ElevationGainM)
}

func TestSubmitInvalidKeepsFormOpen(t *testing.T) {
	tests := []struct {
		name   string
		fields FormFields
		field  string
	}{
		{"zero distance", FormFields{Type: "running", Distance: "0", Duration: "30", Cadence: "170"}, "distance"},
		{"negative distance", FormFields{Type: "cycling", Distance: "-4", Duration: "30", Elevation: "10"}, "distance"},
		{"empty duration", FormFields{Type: "running", Distance: "5", Duration: "", Cadence: "170"}, "duration"},
		{"text cadence", FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "fast"}, "cadence"},
		{"fractional cadence", FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170.5"}, "cadence"},
		{"zero cadence", FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "0"}, "cadence"},
		{"missing elevation", FormFields{Type: "cycling", Distance: "5", Duration: "30"}, "elevation"},
		{"unknown type", FormFields{Type: "rowing", Distance: "5", Duration: "30"}, "type"},
		{"pace overflow", FormFields{Type: "running", Distance: "1e-310", Duration: "30", Cadence: "170"}, "distance"},
		{"speed overflow", FormFields{Type: "cycling", Distance: "1e308", Duration: "1", Elevation: "0"}, "distance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, store, blobs := startedController(t)
			require.NoError(t, c.MapClick(london))

			_, err := c.Submit(context.Background(), tt.fields)
			var verr *workout.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			assert.Equal(t, FormOpen, c.State())
			pending, open := c.Pending()
			assert.True(t, open)
			assert.Equal(t, london, pending)
			assert.Equal(t, 0, store.Len())
			assert.Equal(t, 0, blobs.Writes())
			assert.Empty(t, rec.markers)
			assert.Empty(t, rec.entries)
			assert.Equal(t, []string{msgInvalidInput}, rec.alerts)
			assert.Equal(t, 0, rec.hides)
		})
	}
}

func TestOverflowingSubmitDoesNotBlockLaterSaves(t *testing.T) {
	ctx := context.Background()
	c, _, store, blobs := startedController(t)
	require.NoError(t, c.MapClick(london))

	_, err := c.Submit(ctx, FormFields{Type: "running", Distance: "1e-310", Duration: "30", Cadence: "170"})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, blobs.Writes())

	w, err := c.Submit(ctx, FormFields{Type: "cycling", Distance: "20", Duration: "60", Elevation: "100"})
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.Writes())

	reloaded := workout.NewStore(blobs, "", discardLogger())
	reloaded.Load(ctx)
	_, ok := reloaded.FindByID(w.ID)
	assert.True(t, ok)
}

func TestMapClickRejectsNonFiniteCoordinates(t *testing.T) {
	c, rec, _, _ := startedController(t)

	err := c.MapClick(workout.Coords{Lat: math.NaN(), Lng: 0})
	var verr *workout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "coordinates", verr.Field)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 0, rec.shows)
}

func TestSubmitCyclingAllowsNegativeElevation(t *testing.T) {
	c, _, store, _ := startedController(t)
	require.NoError(t, c.MapClick(london))

	_, err := c.Submit(context.Background(), FormFields{Type: "cycling", Distance: "12", Duration: "40", Elevation: "-30"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestSubmitWithoutOpenForm(t *testing.T) {
	c, _, store, _ := startedController(t)

	_, err := c.Submit(context.Background(), FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170"})
	require.ErrorIs(t, err, ErrFormNotOpen)
	assert.Equal(t, 0, store.Len())
}

func TestSubmitSaveErrorKeepsWorkout(t *testing.T) {
	c, rec, store, blobs := startedController(t)
	blobs.writeErr = errors.New("quota exceeded")
	require.NoError(t, c.MapClick(london))

	w, err := c.Submit(context.Background(), FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170"})
	require.Error(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, 1, store.Len())
	assert.Len(t, rec.markers, 1)
	assert.Equal(t, Idle, c.State())
}

func TestCancel(t *testing.T) {
	c, rec, _, _ := startedController(t)

	c.Cancel()
	assert.Equal(t, 0, rec.hides)

	require.NoError(t, c.MapClick(london))
	c.Cancel()
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, rec.hides)
	assert.Equal(t, 1, rec.clears)
	_, open := c.Pending()
	assert.False(t, open)
}

func TestListClick(t *testing.T) {
	ctx := context.Background()
	c, rec, _, _ := startedController(t)
	spot := workout.Coords{Lat: 48.85, Lng: 2.35}
	require.NoError(t, c.MapClick(spot))
	w, err := c.Submit(ctx, FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170"})
	require.NoError(t, err)

	assert.True(t, c.ListClick(w.ID))
	require.Len(t, rec.views, 1)
	assert.Equal(t, setView{At: spot, Zoom: DefaultZoom, Animate: true}, rec.views[0])
}

func TestListClickUnknownID(t *testing.T) {
	c, rec, _, _ := startedController(t)

	assert.False(t, c.ListClick("never-issued"))
	assert.Empty(t, rec.views)
	assert.Equal(t, Idle, c.State())
}

func TestTypeChanged(t *testing.T) {
	c, rec, _, _ := startedController(t)

	c.TypeChanged()
	require.NoError(t, c.MapClick(london))
	c.TypeChanged()
	assert.Equal(t, 2, rec.toggles)
	assert.Equal(t, FormOpen, c.State())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	c, _, store, blobs := startedController(t)
	require.NoError(t, c.MapClick(london))
	_, err := c.Submit(ctx, FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170"})
	require.NoError(t, err)

	require.NoError(t, c.Reset(ctx))
	assert.Equal(t, 0, store.Len())
	raw, err := blobs.ReadBlob(ctx, workout.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := startedController(t)
	require.NoError(t, c.MapClick(london))
	_, err := c.Submit(ctx, FormFields{Type: "running", Distance: "5", Duration: "30", Cadence: "170"})
	require.NoError(t, err)
	require.NoError(t, c.MapClick(london))

	late := &recorder{}
	c.Replay(late.asViews())

	assert.Equal(t, []workout.Coords{london}, late.initialized)
	assert.Len(t, late.entries, 1)
	assert.Len(t, late.markers, 1)
	assert.Equal(t, 1, late.shows)
}
