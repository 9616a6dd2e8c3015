package models

import "time"

// Event is a calendar entry
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      Date      `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
