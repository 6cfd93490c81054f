package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
)

type stubSessionLister struct {
	sessions []models.Session
	err      error
}

func (s *stubSessionLister) List(ctx context.Context) ([]models.Session, error) {
	return s.sessions, s.err
}

type stubStudentLister struct {
	students []models.Student
	err      error
}

func (s *stubStudentLister) List(ctx context.Context) ([]models.Student, error) {
	return s.students, s.err
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestIsSessionOverdue(t *testing.T) {
	session := models.Session{
		Status:    models.SessionScheduled,
		Date:      day(2026, 3, 10),
		StartTime: "13:00",
		EndTime:   "14:00",
	}

	tests := []struct {
		name    string
		now     time.Time
		session models.Session
		want    bool
	}{
		{
			name:    "one second past the end",
			now:     time.Date(2026, 3, 10, 14, 0, 1, 0, time.UTC),
			session: session,
			want:    true,
		},
		{
			name:    "one second before the end",
			now:     time.Date(2026, 3, 10, 13, 59, 59, 0, time.UTC),
			session: session,
			want:    false,
		},
		{
			name:    "exactly at the end",
			now:     time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
			session: session,
			want:    false,
		},
		{
			name: "completed sessions never surface",
			now:  time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			session: models.Session{
				Status:  models.SessionCompleted,
				Date:    day(2026, 3, 10),
				EndTime: "14:00",
			},
			want: false,
		},
		{
			name: "cancelled sessions never surface",
			now:  time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			session: models.Session{
				Status:  models.SessionCancelled,
				Date:    day(2026, 3, 10),
				EndTime: "14:00",
			},
			want: false,
		},
		{
			name: "malformed end time is skipped, not an error",
			now:  time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			session: models.Session{
				Status:  models.SessionScheduled,
				Date:    day(2026, 3, 10),
				EndTime: "not-a-time",
			},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSessionOverdue(tc.session, tc.now); got != tc.want {
				t.Errorf("IsSessionOverdue() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListPendingTasksOrdersAndResolvesNames(t *testing.T) {
	sessions := &stubSessionLister{sessions: []models.Session{
		{
			ID:          "later",
			Status:      models.SessionScheduled,
			Date:        day(2026, 3, 10),
			StartTime:   "18:00",
			EndTime:     "19:00",
			SessionType: models.SessionTypeTeam,
			StudentIDs:  []string{"s1", "ghost", "s2"},
		},
		{
			ID:          "earlier",
			Status:      models.SessionScheduled,
			Date:        day(2026, 3, 10),
			StartTime:   "08:00",
			EndTime:     "09:00",
			SessionType: models.SessionTypeIndividual,
			StudentIDs:  []string{"s1"},
		},
		{
			ID:        "upcoming",
			Status:    models.SessionScheduled,
			Date:      day(2026, 3, 12),
			StartTime: "08:00",
			EndTime:   "09:00",
		},
		{
			ID:      "done",
			Status:  models.SessionCompleted,
			Date:    day(2026, 3, 9),
			EndTime: "09:00",
		},
	}}
	students := &stubStudentLister{students: []models.Student{
		{ID: "s1", Name: "Anna"},
		{ID: "s2", Name: "Boris"},
	}}

	service := NewTaskService(sessions, students)
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	tasks, err := service.ListPendingTasks(context.Background(), now)
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", len(tasks))
	}
	if tasks[0].SessionID != "earlier" || tasks[1].SessionID != "later" {
		t.Fatalf("tasks out of order: %s, %s", tasks[0].SessionID, tasks[1].SessionID)
	}

	if tasks[0].DisplayName != "Individual session" {
		t.Errorf("unexpected display name %q", tasks[0].DisplayName)
	}
	if tasks[1].DisplayName != "Team session (3 students)" {
		t.Errorf("unexpected display name %q", tasks[1].DisplayName)
	}

	// unknown attendee ids are dropped rather than rendered as blanks
	names := tasks[1].AttendeeNames
	if len(names) != 2 || names[0] != "Anna" || names[1] != "Boris" {
		t.Errorf("unexpected attendee names %v", names)
	}

	if tasks[0].Summary == "" {
		t.Error("expected a non-empty task summary")
	}
}

func TestCountPendingTasks(t *testing.T) {
	sessions := &stubSessionLister{sessions: []models.Session{
		{ID: "a", Status: models.SessionScheduled, Date: day(2026, 3, 10), EndTime: "09:00"},
		{ID: "b", Status: models.SessionScheduled, Date: day(2026, 3, 10), EndTime: "20:00"},
		{ID: "c", Status: models.SessionCancelled, Date: day(2026, 3, 10), EndTime: "09:00"},
	}}
	service := NewTaskService(sessions, &stubStudentLister{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	count, err := service.CountPendingTasks(context.Background(), now)
	if err != nil {
		t.Fatalf("CountPendingTasks() error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 pending task, got %d", count)
	}
}

func TestListPendingTasksPropagatesListError(t *testing.T) {
	wantErr := errors.New("db down")
	service := NewTaskService(&stubSessionLister{err: wantErr}, &stubStudentLister{})

	if _, err := service.ListPendingTasks(context.Background(), time.Now()); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if _, err := service.CountPendingTasks(context.Background(), time.Now()); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
