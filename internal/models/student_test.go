package models

import (
	"testing"
	"time"
)

func TestTransactionTypeForAmount(t *testing.T) {
	if got := TransactionTypeForAmount(3); got != TransactionAdded {
		t.Errorf("expected positive amount to be %q, got %q", TransactionAdded, got)
	}
	if got := TransactionTypeForAmount(-1); got != TransactionDeducted {
		t.Errorf("expected negative amount to be %q, got %q", TransactionDeducted, got)
	}
	// zero is a degenerate but permitted entry and counts as a deduction
	if got := TransactionTypeForAmount(0); got != TransactionDeducted {
		t.Errorf("expected zero amount to be %q, got %q", TransactionDeducted, got)
	}
}

func TestAgeAt(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	birthday := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	if age := AgeAt(&birthday, now); age == nil || *age != 36 {
		t.Fatalf("expected age 36 on the birthday itself, got %v", age)
	}

	dayBefore := time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC)
	if age := AgeAt(&dayBefore, now); age == nil || *age != 35 {
		t.Fatalf("expected age 35 the day before the birthday, got %v", age)
	}

	if age := AgeAt(nil, now); age != nil {
		t.Fatalf("expected nil age without a birthday, got %v", age)
	}

	future := now.AddDate(1, 0, 0)
	if age := AgeAt(&future, now); age != nil {
		t.Fatalf("expected nil age for a future birthday, got %v", age)
	}
}

func TestDefaultSettingsCharges(t *testing.T) {
	settings := DefaultSettings()
	if settings.DefaultTeamSessionCharge != 1 {
		t.Errorf("expected team charge 1, got %d", settings.DefaultTeamSessionCharge)
	}
	if settings.DefaultIndividualSessionCharge != 2 {
		t.Errorf("expected individual charge 2, got %d", settings.DefaultIndividualSessionCharge)
	}
	if len(settings.AvailableGoals) == 0 {
		t.Error("expected a starter goal list")
	}

	if got := settings.ChargeFor(SessionTypeIndividual); got != 2 {
		t.Errorf("expected individual rate 2, got %d", got)
	}
	if got := settings.ChargeFor(SessionTypeTeam); got != 1 {
		t.Errorf("expected team rate 1, got %d", got)
	}
}
