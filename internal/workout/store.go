package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/briangreenhill/mapty/internal/blob"
	"github.com/briangreenhill/mapty/internal/metrics"
)

const DefaultKey = "workouts"

// Store is the ordered, in-memory list of workouts plus its persisted mirror.
// It is not safe for concurrent use; the controller's event loop owns it.
type Store struct {
	blobs    blob.Store
	key      string
	logger   *slog.Logger
	workouts []Workout
}

func NewStore(blobs blob.Store, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		blobs:  blobs,
		key:    key,
		logger: logger,
	}
}

// Load replaces the in-memory list with the persisted one. An absent or
// unreadable blob leaves the store empty; Load never fails.
func (s *Store) Load(ctx context.Context) {
	s.workouts = nil
	defer func() { metrics.SetStoredWorkouts(len(s.workouts)) }()

	raw, err := s.blobs.ReadBlob(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		s.logger.Debug("No persisted workouts", slog.String("key", s.key))
		return
	}
	if err != nil {
		s.logger.Warn("Error reading persisted workouts", slog.String("key", s.key), slog.Any("error", err))
		metrics.StoreLoadFailed()
		return
	}

	workouts, err := Decode(raw)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted workouts", slog.String("key", s.key), slog.Any("error", err))
		metrics.StoreLoadFailed()
		return
	}
	s.workouts = workouts
	s.logger.Info("Loaded workouts", slog.Int("count", len(workouts)))
}

func (s *Store) Append(w Workout) {
	s.workouts = append(s.workouts, w)
	metrics.SetStoredWorkouts(len(s.workouts))
}

// Save overwrites the blob with the full ordered list.
func (s *Store) Save(ctx context.Context) error {
	raw, err := Encode(s.workouts)
	if err == nil {
		err = s.blobs.WriteBlob(ctx, s.key, raw)
	}
	metrics.StoreSaved(err)
	if err != nil {
		return fmt.Errorf("error saving workouts: %w", err)
	}
	return nil
}

func (s *Store) FindByID(id string) (Workout, bool) {
	for _, w := range s.workouts {
		if w.ID == id {
			return w, true
		}
	}
	return Workout{}, false
}

// All returns a copy of the workouts in insertion order.
func (s *Store) All() []Workout {
	out := make([]Workout, len(s.workouts))
	copy(out, s.workouts)
	return out
}

func (s *Store) Len() int {
	return len(s.workouts)
}

// Clear drops every workout and persists the empty list.
func (s *Store) Clear(ctx context.Context) error {
	s.workouts = nil
	metrics.SetStoredWorkouts(0)
	return s.Save(ctx)
}
