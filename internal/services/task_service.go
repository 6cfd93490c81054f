package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/pkg/utils"
)

const taskSummary = "This session has ended. Complete it to record attendance " +
	"and update balances, or cancel it if it did not take place."

type sessionLister interface {
	List(ctx context.Context) ([]models.Session, error)
}

type studentLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

// TaskService answers "which sessions are pending completion". The view is
// derived from the session list and the supplied clock on every call; nothing
// is stored or cached.
type TaskService struct {
	sessions sessionLister
	students studentLister
}

func NewTaskService(sessions sessionLister, students studentLister) *TaskService {
	return &TaskService{sessions: sessions, students: students}
}

// IsSessionOverdue reports whether a scheduled session's end time lies
// strictly before now. Malformed time fields make the session not overdue
// rather than erroring.
func IsSessionOverdue(session models.Session, now time.Time) bool {
	if session.Status != models.SessionScheduled {
		return false
	}
	endsAt, err := utils.CombineDateClock(session.Date, session.EndTime)
	if err != nil {
		return false
	}
	return now.After(endsAt)
}

func (s *TaskService) ListPendingTasks(ctx context.Context, now time.Time) ([]models.Task, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	overdue := make([]models.Session, 0)
	for _, session := range sessions {
		if IsSessionOverdue(session, now) {
			overdue = append(overdue, session)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		if !overdue[i].Date.Equal(overdue[j].Date) {
			return overdue[i].Date.Before(overdue[j].Date)
		}
		return overdue[i].StartTime < overdue[j].StartTime
	})

	namesByID, err := s.studentNames(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(overdue))
	for _, session := range overdue {
		attendeeNames := make([]string, 0, len(session.StudentIDs))
		for _, studentID := range session.StudentIDs {
			if name, ok := namesByID[studentID]; ok {
				attendeeNames = append(attendeeNames, name)
			}
		}
		tasks = append(tasks, models.Task{
			SessionID:     session.ID,
			DisplayName:   taskDisplayName(session),
			Date:          session.Date,
			StartTime:     session.StartTime,
			EndTime:       session.EndTime,
			AttendeeNames: attendeeNames,
			Summary:       taskSummary,
		})
	}
	return tasks, nil
}

// CountPendingTasks drives the notification badge. Recomputed on every call.
func (s *TaskService) CountPendingTasks(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, session := range sessions {
		if IsSessionOverdue(session, now) {
			count++
		}
	}
	return count, nil
}

func (s *TaskService) studentNames(ctx context.Context) (map[string]string, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(students))
	for _, student := range students {
		names[student.ID] = student.Name
	}
	return names, nil
}

func taskDisplayName(session models.Session) string {
	if session.SessionType == models.SessionTypeIndividual {
		return "Individual session"
	}
	attendees := len(session.StudentIDs)
	if attendees == 1 {
		return "Team session (1 student)"
	}
	return fmt.Sprintf("Team session (%d students)", attendees)
}
