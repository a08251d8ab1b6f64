// Package domain contains core domain types for the booth simulator.
package domain

import (
	"time"
)

// Trainee represents a person practising discovery conversations.
type Trainee struct {
	TraineeID   string    `json:"trainee_id"`
	DisplayName string    `json:"display_name"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
