package repository

import (
	"testing"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
)

func TestNormalizeSessionFillsLegacyFields(t *testing.T) {
	session := models.Session{ID: "legacy", Status: models.SessionScheduled}

	NormalizeSession(&session)

	if session.Goals == nil || len(session.Goals) != 0 {
		t.Fatalf("expected empty goal list, got %v", session.Goals)
	}
	if session.SessionType != models.SessionTypeTeam {
		t.Fatalf("expected session type %q, got %q", models.SessionTypeTeam, session.SessionType)
	}
	if session.StudentIDs == nil {
		t.Fatal("expected empty attendee list, got nil")
	}
}

func TestNormalizeSessionKeepsExistingValues(t *testing.T) {
	session := models.Session{
		ID:          "current",
		Goals:       []string{"Balance"},
		SessionType: models.SessionTypeIndividual,
		StudentIDs:  []string{"s1"},
	}

	NormalizeSession(&session)

	if len(session.Goals) != 1 || session.Goals[0] != "Balance" {
		t.Fatalf("goals were rewritten: %v", session.Goals)
	}
	if session.SessionType != models.SessionTypeIndividual {
		t.Fatalf("session type was rewritten: %q", session.SessionType)
	}
}
