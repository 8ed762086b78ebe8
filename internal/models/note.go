package models

import "time"

// Note is a free-form text note.
// Notes can be linked from plan items by ID.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is refreshed by the store on every update.
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Drawing is a sketch saved from the canvas.
type Drawing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Payload is the serialized canvas. The store treats it as opaque.
	Payload string `json:"payload"`
}
