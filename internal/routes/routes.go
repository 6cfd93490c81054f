package routes

import (
	"context"
	"log"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibas1989/Yoga-v1-sub000/internal/config"
	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/handlers"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
	eventws "github.com/ibas1989/Yoga-v1-sub000/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	bus := events.NewBus()

	studentService := services.NewStudentService(db, studentRepo, sessionRepo, bus)
	ledgerService := services.NewLedgerService(db, studentRepo, bus)
	sessionService := services.NewSessionService(db, sessionRepo, studentRepo, settingsRepo, bus)
	settingsService := services.NewSettingsService(settingsRepo)
	taskService := services.NewTaskService(sessionRepo, studentRepo)
	backupService := services.NewBackupService(db, studentService, sessionService, settingsService, bus)

	studentHandler := handlers.NewStudentHandler(studentService, sessionService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	taskHandler := handlers.NewTaskHandler(taskService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	backupHandler := handlers.NewBackupHandler(backupService)

	hub := eventws.NewHub()
	go hub.Run()
	bridgeBusToHub(bus, hub)
	wireTaskBadge(bus, taskService)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	students := v1.Group("/students")
	students.Get("", studentHandler.ListStudents)
	students.Post("", studentHandler.CreateStudent)
	students.Get("/:id", studentHandler.GetStudent)
	students.Put("/:id", studentHandler.UpdateStudent)
	students.Delete("/:id", studentHandler.DeleteStudent)
	students.Get("/:id/sessions", studentHandler.GetStudentSessions)
	students.Post("/:id/notes", studentHandler.AddNote)
	students.Put("/:id/notes/:noteId", studentHandler.UpdateNote)
	students.Delete("/:id/notes/:noteId", studentHandler.DeleteNote)
	students.Get("/:id/transactions", ledgerHandler.ListTransactions)
	students.Post("/:id/transactions", ledgerHandler.AddTransaction)

	sessions := v1.Group("/sessions")
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Post("", sessionHandler.ScheduleSession)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Delete("/:id", sessionHandler.DeleteSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/complete", sessionHandler.CompleteSession)

	tasks := v1.Group("/tasks")
	tasks.Get("", taskHandler.ListPendingTasks)
	tasks.Get("/count", taskHandler.CountPendingTasks)

	settings := v1.Group("/settings")
	settings.Get("", settingsHandler.GetSettings)
	settings.Put("", settingsHandler.SaveSettings)

	backup := v1.Group("/backup")
	backup.Get("", backupHandler.Snapshot)
	backup.Post("/restore", backupHandler.Restore)

	v1.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		client := eventws.NewClient(hub, conn)
		hub.Register(client)
		go client.WritePump()
		client.ReadPump()
	}))
}

// bridgeBusToHub forwards every bus event to connected websocket clients.
func bridgeBusToHub(bus *events.Bus, hub *eventws.Hub) {
	forwarded := []string{
		events.SessionCreated,
		events.SessionUpdated,
		events.SessionCompleted,
		events.SessionCancelled,
		events.SessionDeleted,
		events.SessionChanged,
		events.TaskListUpdate,
		events.StudentUpdated,
		events.NoteAdded,
		events.NoteUpdated,
		events.NoteDeleted,
		events.BalanceTransactionAdded,
	}
	for _, event := range forwarded {
		bus.Subscribe(event, hub.BroadcastEvent)
	}
}

// wireTaskBadge recomputes the pending-completion count whenever anything
// about sessions changes, and republishes it as taskListUpdate for the badge.
func wireTaskBadge(bus *events.Bus, tasks *services.TaskService) {
	bus.Subscribe(events.SessionChanged, func(string, any) {
		count, err := tasks.CountPendingTasks(context.Background(), time.Now())
		if err != nil {
			log.Printf("task badge recompute: %v", err)
			return
		}
		bus.Publish(events.TaskListUpdate, map[string]any{"count": count})
	})
}
