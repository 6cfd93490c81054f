package models

import "time"

const (
	TransactionAdded    = "added"
	TransactionDeducted = "deducted"
)

type Student struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Phone               *string              `json:"phone"`
	Balance             int                  `json:"balance"`
	Goals               []string             `json:"goals"`
	WeightKG            *float64             `json:"weight_kg"`
	HeightCM            *float64             `json:"height_cm"`
	Birthday            *time.Time           `json:"birthday"`
	MemberSince         *time.Time           `json:"member_since"`
	Description         *string              `json:"description"`
	Age                 *int                 `json:"age"`
	Notes               []StudentNote        `json:"notes"`
	BalanceTransactions []BalanceTransaction `json:"balance_transactions"`
	CreatedAt           time.Time            `json:"created_at"`
}

type StudentNote struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type BalanceTransaction struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	Date            time.Time `json:"date"`
	TransactionType string    `json:"transaction_type"`
	ChangeAmount    int       `json:"change_amount"`
	Reason          string    `json:"reason"`
	ReasonEn        *string   `json:"reason_en,omitempty"`
	ReasonRu        *string   `json:"reason_ru,omitempty"`
	BalanceAfter    int       `json:"balance_after"`
}

// TransactionTypeForAmount classifies a balance change by its sign. Zero is
// permitted and counts as a deduction.
func TransactionTypeForAmount(changeAmount int) string {
	if changeAmount > 0 {
		return TransactionAdded
	}
	return TransactionDeducted
}

// AgeAt derives the age field from a birthday. The stored value is never
// authoritative; callers recompute on every read.
func AgeAt(birthday *time.Time, now time.Time) *int {
	if birthday == nil || birthday.After(now) {
		return nil
	}
	age := now.Year() - birthday.Year()
	anniversary := time.Date(now.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		age--
	}
	return &age
}
