package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/chunkr/internal/api"
	apiMiddleware "github.com/phrazzld/chunkr/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(
		app.engine,
		app.config.Task.WorkDir,
		app.config.Task.MaxUploadBytes(),
		app.logger,
	)
	healthHandler := api.NewHealthHandler(appName, version)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks/chunking_task", taskHandler.SubmitChunkingTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/results/{task_id}", taskHandler.GetTaskResult)
		r.Get("/download", taskHandler.DownloadFile)
	})

	r.Get("/", healthHandler.Health)
	r.Get("/health", healthHandler.Health)

	return r
}
