package habit

import (
	"testing"
	"time"

	"github.com/mmynk/planner/internal/models"
)

var asOf = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// lastDays returns the n calendar days ending skip days before asOf.
func lastDays(n, skip int) []string {
	days := make([]string, 0, n)
	for i := skip; i < skip+n; i++ {
		days = append(days, day(asOf, -i))
	}
	return days
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		habit models.Habit
		want  Score
	}{
		{
			name:  "no check-ins and no mastery",
			habit: models.Habit{},
			want:  Score{Strength: 0, Streak: 0, Last7Done: 0, Last7Rate: 0},
		},
		{
			name:  "every day for 28 days with full mastery",
			habit: models.Habit{Mastery: 100, CheckinsISO: lastDays(28, 0)},
			want:  Score{Strength: 100, Streak: 28, Last7Done: 7, Last7Rate: 100},
		},
		{
			// ema = 0.525448, bonus = 1 - e^-0.5, composite = 0.3194
			name:  "last three consecutive days",
			habit: models.Habit{CheckinsISO: lastDays(3, 0)},
			want:  Score{Strength: 32, Streak: 3, Last7Done: 3, Last7Rate: 43},
		},
		{
			name:  "mastery only",
			habit: models.Habit{Mastery: 100},
			want:  Score{Strength: 35, Streak: 0, Last7Done: 0, Last7Rate: 0},
		},
		{
			name:  "today missed resets streak",
			habit: models.Habit{CheckinsISO: lastDays(5, 1)},
			want:  Score{Strength: 34, Streak: 0, Last7Done: 5, Last7Rate: 71},
		},
		{
			// The streak walk is capped; the EMA only sees 28 days.
			name:  "long history is capped",
			habit: models.Habit{CheckinsISO: lastDays(400, 0)},
			want:  Score{Strength: 65, Streak: 365, Last7Done: 7, Last7Rate: 100},
		},
		{
			name:  "duplicate dates count once",
			habit: models.Habit{CheckinsISO: append(lastDays(3, 0), lastDays(3, 0)...)},
			want:  Score{Strength: 32, Streak: 3, Last7Done: 3, Last7Rate: 43},
		},
		{
			name:  "check-ins after asOf are ignored",
			habit: models.Habit{CheckinsISO: []string{day(asOf, 1), day(asOf, 2)}},
			want:  Score{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.habit, asOf)
			if got != tt.want {
				t.Errorf("Calculate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateUsesLocalCalendar(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	// 00:30 local on the 14th is still the 13th in UTC.
	local := time.Date(2026, 3, 14, 0, 30, 0, 0, cet)
	h := models.Habit{CheckinsISO: []string{"2026-03-14"}}

	if got := Calculate(h, local).Streak; got != 1 {
		t.Errorf("local streak = %d, want 1", got)
	}
	if got := Calculate(h, local.UTC()).Streak; got != 0 {
		t.Errorf("UTC streak = %d, want 0", got)
	}
}

func TestCalculateIsPure(t *testing.T) {
	h := models.Habit{Mastery: 40, CheckinsISO: []string{day(asOf, -2), day(asOf, 0), day(asOf, -1)}}
	before := append([]string(nil), h.CheckinsISO...)

	first := Calculate(h, asOf)
	second := Calculate(h, asOf)

	if first != second {
		t.Errorf("repeated calls differ: %+v vs %+v", first, second)
	}
	for i := range before {
		if h.CheckinsISO[i] != before[i] {
			t.Fatalf("Calculate mutated check-ins: %v", h.CheckinsISO)
		}
	}
}

func TestSummarize(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		o := Summarize(nil, asOf)
		if o.OverallStrength != 0 || o.MasteredCount != 0 || len(o.Computed) != 0 {
			t.Errorf("Summarize(nil) = %+v, want zero values", o)
		}
	})

	t.Run("mean and mastered", func(t *testing.T) {
		habits := []models.Habit{
			{ID: "a", CheckinsISO: lastDays(3, 0)}, // 32
			{ID: "b", Mastery: 80},                 // 28
			{ID: "c", Mastery: 79},                 // 28 (27.65 rounded)
		}
		o := Summarize(habits, asOf)

		if len(o.Computed) != 3 {
			t.Fatalf("computed = %d, want 3", len(o.Computed))
		}
		if o.Computed[0].ID != "a" || o.Computed[0].Strength != 32 {
			t.Errorf("computed[0] = %+v", o.Computed[0])
		}
		if o.MasteredCount != 1 {
			t.Errorf("mastered = %d, want 1", o.MasteredCount)
		}
		if o.OverallStrength != 29 {
			t.Errorf("overall = %d, want 29", o.OverallStrength)
		}
	})
}
