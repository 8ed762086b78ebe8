package habit

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mmynk/planner/internal/metrics"
	"github.com/mmynk/planner/internal/models"
	"github.com/mmynk/planner/internal/storage"
	"github.com/mmynk/planner/internal/store"
)

// Key is the storage key of the habit list.
const Key = "planner-habits"

var identity = store.Identity[models.Habit]{
	ID: func(h *models.Habit) *string { return &h.ID },
	Created: func(h *models.Habit, now time.Time) {
		h.CreatedAtISO = now.UTC().Format(time.RFC3339)
	},
	Immutable: func(dst, src *models.Habit) { dst.CreatedAtISO = src.CreatedAtISO },
}

// Tracker owns the persisted habit list.
type Tracker struct {
	habits *store.Collection[models.Habit]
	now    func() time.Time
	loc    *time.Location
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLocation sets the calendar check-ins are recorded in.
// Defaults to time.Local.
func WithLocation(loc *time.Location) TrackerOption {
	return func(t *Tracker) { t.loc = loc }
}

// NewTracker loads the habit list from kv.
func NewTracker(ctx context.Context, kv storage.KV, opts store.Options, trackerOpts ...TrackerOption) *Tracker {
	t := &Tracker{
		habits: store.NewCollection(store.NewPersister(kv, opts), Key, identity),
		now:    opts.Now,
		loc:    time.Local,
	}
	if t.now == nil {
		t.now = time.Now
	}
	for _, opt := range trackerOpts {
		opt(t)
	}
	t.habits.Load(ctx)
	return t
}

// List returns the habits in creation order.
func (t *Tracker) List() []models.Habit { return t.habits.List() }

// Get returns a single habit.
func (t *Tracker) Get(id string) (models.Habit, bool) { return t.habits.Get(id) }

// Add normalizes h and stores it with a fresh id.
func (t *Tracker) Add(ctx context.Context, h models.Habit) models.Habit {
	if h.Frequency != models.FrequencyWeekly {
		h.Frequency = models.FrequencyDaily
	}
	h.TargetPerWeek = clampInt(h.TargetPerWeek, 1, 7)
	h.Mastery = clampInt(h.Mastery, 0, 100)
	h.CheckinsISO = normalizeDates(h.CheckinsISO)
	return t.habits.Add(ctx, h)
}

// Rename changes the display name of a habit.
func (t *Tracker) Rename(ctx context.Context, id, name string) bool {
	return t.habits.Update(ctx, id, func(h *models.Habit) { h.Name = name })
}

// ToggleCheckin flips today's check-in of a habit.
func (t *Tracker) ToggleCheckin(ctx context.Context, id string) bool {
	return t.toggle(ctx, id, Today(t.now().In(t.loc)))
}

// ToggleCheckinOn flips the check-in of a given calendar date.
func (t *Tracker) ToggleCheckinOn(ctx context.Context, id, date string) (bool, error) {
	d, err := time.Parse(DateFormat, date)
	if err != nil {
		return false, fmt.Errorf("invalid check-in date %q: %w", date, err)
	}
	return t.toggle(ctx, id, d.Format(DateFormat)), nil
}

func (t *Tracker) toggle(ctx context.Context, id, date string) bool {
	return t.habits.Update(ctx, id, func(h *models.Habit) {
		dates := slices.Clone(h.CheckinsISO)
		if i := slices.Index(dates, date); i >= 0 {
			dates = slices.Delete(dates, i, i+1)
		} else {
			dates = append(dates, date)
		}
		h.CheckinsISO = normalizeDates(dates)
	})
}

// SetMastery stores a self-reported mastery, clamped to [0, 100].
func (t *Tracker) SetMastery(ctx context.Context, id string, value int) bool {
	return t.habits.Update(ctx, id, func(h *models.Habit) { h.Mastery = clampInt(value, 0, 100) })
}

// Remove deletes a habit.
func (t *Tracker) Remove(ctx context.Context, id string) bool {
	return t.habits.Delete(ctx, id)
}

// Overview scores every habit as of now.
func (t *Tracker) Overview() Overview {
	o := Summarize(t.List(), t.now().In(t.loc))
	metrics.SetHabitStrength(o.OverallStrength)
	return o
}

// normalizeDates sorts dates and drops duplicates and empty entries.
func normalizeDates(dates []string) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if d != "" {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
