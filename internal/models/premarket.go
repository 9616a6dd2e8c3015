package models

import "time"

// Premarket is a planning note written before the session opens.
// Date is kept verbatim as entered.
type Premarket struct {
	ID               string    `json:"id"`
	Day              string    `json:"day"`
	Date             string    `json:"date"`
	ExpectedMovement string    `json:"expected_movement"`
	Note             string    `json:"note"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
