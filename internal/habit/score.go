// Package habit derives momentum metrics from habit check-in histories and
// manages the persisted habit list.
package habit

import (
	"math"
	"time"

	"github.com/mmynk/planner/internal/models"
)

// DateFormat is the layout of check-in dates.
const DateFormat = "2006-01-02"

// Tuning constants. They are product choices, kept as-is for compatibility
// with previously displayed scores.
const (
	window        = 28   // days of history fed into the moving average
	alpha         = 0.22 // EMA smoothing factor
	streakCap     = 365  // upper bound on the backward streak walk
	streakDecay   = 6.0  // streak bonus reaches ~63% at 6 days
	weightEMA     = 0.45
	weightMastery = 0.35
	weightRecent  = 0.20
	recentRate    = 0.6 // share of last7Rate within the recent blend
	recentStreak  = 0.4 // share of the streak bonus within the recent blend

	// MasteredThreshold is the mastery at which a habit counts as mastered.
	MasteredThreshold = 80
)

// Score is the momentum summary of one habit.
type Score struct {
	Strength  int `json:"strength"`  // composite score, 0-100
	Streak    int `json:"streak"`    // consecutive days ending at asOf
	Last7Done int `json:"last7Done"` // check-ins in the last 7 days
	Last7Rate int `json:"last7Rate"` // Last7Done as a percentage
}

// Calculate computes the momentum of h as of the calendar day of asOf,
// interpreted in asOf's location. It does not modify h.
//
// Algorithm:
//   - 28-day presence series, oldest first, smoothed with an EMA seeded at 0
//   - streak: consecutive checked-in days walking back from asOf
//   - last 7 days: count and rate
//   - strength = 100 × clamp(0.45·ema + 0.35·mastery + 0.20·(0.6·rate7 + 0.4·(1 − e^(−streak/6))))
func Calculate(h models.Habit, asOf time.Time) Score {
	done := make(map[string]bool, len(h.CheckinsISO))
	for _, d := range h.CheckinsISO {
		done[d] = true
	}

	ema := 0.0
	for i := window - 1; i >= 0; i-- {
		x := 0.0
		if done[day(asOf, -i)] {
			x = 1
		}
		ema = alpha*x + (1-alpha)*ema
	}

	streak := 0
	for streak < streakCap && done[day(asOf, -streak)] {
		streak++
	}

	last7 := 0
	for i := 0; i < 7; i++ {
		if done[day(asOf, -i)] {
			last7++
		}
	}
	rate7 := float64(last7) / 7

	bonus := 1 - math.Exp(-float64(streak)/streakDecay)
	mastery := float64(h.Mastery) / 100

	composite := weightEMA*ema + weightMastery*mastery + weightRecent*(recentRate*rate7+recentStreak*bonus)

	return Score{
		Strength:  int(math.Round(100 * clamp(composite, 0, 1))),
		Streak:    streak,
		Last7Done: last7,
		Last7Rate: int(math.Round(100 * rate7)),
	}
}

// day returns the calendar date offset days from t, in t's location.
func day(t time.Time, offset int) string {
	y, m, d := t.Date()
	return time.Date(y, m, d+offset, 12, 0, 0, 0, t.Location()).Format(DateFormat)
}

// Today formats the calendar day of t.
func Today(t time.Time) string { return day(t, 0) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Scored is a habit together with its score.
type Scored struct {
	models.Habit
	Score
}

// Overview is the view-model of a habit list.
type Overview struct {
	Computed        []Scored `json:"computed"`
	OverallStrength int      `json:"overallStrength"`
	MasteredCount   int      `json:"masteredCount"`
}

// Summarize scores every habit and aggregates the list. An empty list has
// an overall strength of 0.
func Summarize(habits []models.Habit, asOf time.Time) Overview {
	o := Overview{Computed: make([]Scored, 0, len(habits))}
	total := 0
	for _, h := range habits {
		s := Calculate(h, asOf)
		o.Computed = append(o.Computed, Scored{Habit: h, Score: s})
		total += s.Strength
		if h.Mastery >= MasteredThreshold {
			o.MasteredCount++
		}
	}
	if len(habits) > 0 {
		o.OverallStrength = int(math.Round(float64(total) / float64(len(habits))))
	}
	return o
}
