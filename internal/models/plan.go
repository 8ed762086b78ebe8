package models

import "time"

// Priority ranks plan items.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PlanItem is a scheduled entry in the daily planner.
type PlanItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	// Date is the day the item is planned for.
	Date time.Time `json:"date"`

	// StartTime and EndTime are optional "HH:MM" wall-clock times.
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`

	Priority  Priority `json:"priority"`
	Completed bool     `json:"completed"`

	// LinkedNotes holds Note IDs. They are weak references: a deleted note
	// leaves a dangling ID that readers skip.
	LinkedNotes []string `json:"linkedNotes"`
}
