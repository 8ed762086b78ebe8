package models

import "time"

// Goal is a target with a deadline.
type Goal struct {
	// ID is the unique identifier for the goal (UUID format).
	ID string `json:"id"`

	// Title is the human-readable name of the goal.
	Title string `json:"title"`

	// Description is optional long-form text.
	Description string `json:"description,omitempty"`

	// Category groups goals in the UI (e.g., "health", "career").
	Category string `json:"category,omitempty"`

	// Progress is a self-reported percentage in [0, 100].
	Progress int `json:"progress"`

	// Completed marks the goal as done.
	Completed bool `json:"completed"`

	// TargetDate is the deadline.
	TargetDate time.Time `json:"targetDate"`

	// CreatedAt is set once when the goal is created.
	CreatedAt time.Time `json:"createdAt"`
}
