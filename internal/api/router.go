package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/api/handlers"
	"github.com/St1cky1/task-tracker/internal/api/middleware"
	"github.com/St1cky1/task-tracker/internal/hub"
)

type RouterDeps struct {
	Tasks    handlers.TaskUsecase
	Comments handlers.CommentUsecase
	Files    handlers.FileUsecase
	Hub      *hub.Hub
	Tokens   middleware.TokenValidator
	Health   handlers.Pinger
	Logger   zerolog.Logger
}

func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)

	taskHandler := handlers.NewTaskHandler(d.Tasks, d.Logger)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Logger)
	fileHandler := handlers.NewFileHandler(d.Files, d.Logger)

	r.Get("/healthz", handlers.Health(d.Health))

	wsHandler := hub.ServeWS(d.Hub, d.Logger)
	r.Get("/ws", wsHandler)
	r.Get("/ws/{clientID}", wsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Tokens))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Post("/bulk", taskHandler.BulkCreateTasks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Patch("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)

				r.Get("/comments", commentHandler.ListComments)
				r.Post("/comments", commentHandler.CreateComment)

				r.Get("/files", fileHandler.ListFiles)
				r.Post("/files", fileHandler.UploadFile)
			})
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Patch("/", commentHandler.UpdateComment)
			r.Delete("/", commentHandler.DeleteComment)
		})

		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", fileHandler.DownloadFile)
			r.Delete("/", fileHandler.DeleteFile)
		})
	})

	return r
}
