package models

// Frequency is how often a habit is meant to be done.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Habit is a tracked routine with its check-in history.
//
// Dates are calendar days ("2006-01-02") in the viewer's local calendar,
// not UTC instants.
type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Frequency Frequency `json:"frequency"`

	// TargetPerWeek is in [1, 7].
	TargetPerWeek int `json:"targetPerWeek"`

	// Mastery is a self-reported level in [0, 100].
	Mastery int `json:"mastery"`

	CreatedAtISO string `json:"createdAtISO"`

	// CheckinsISO holds unique calendar dates, sorted ascending.
	CheckinsISO []string `json:"checkinsISO"`
}
