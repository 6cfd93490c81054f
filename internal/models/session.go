package models

import "time"

const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

const (
	SessionTypeTeam       = "team"
	SessionTypeIndividual = "individual"
)

type Session struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	StudentIDs      []string        `json:"student_ids"`
	Goals           []string        `json:"goals"`
	SessionType     string          `json:"session_type"`
	PricePerStudent int             `json:"price_per_student"`
	Status          string          `json:"status"`
	BalanceEntries  map[string]*int `json:"balance_entries,omitempty"`
	Notes           *string         `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Task is a derived view of a scheduled session whose end time has passed.
// It is recomputed on demand and never stored.
type Task struct {
	SessionID     string    `json:"session_id"`
	DisplayName   string    `json:"display_name"`
	Date          time.Time `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	AttendeeNames []string  `json:"attendee_names"`
	Summary       string    `json:"summary"`
}
