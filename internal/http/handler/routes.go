package handler

import (
	"github.com/gofiber/fiber/v2"

	"filerelay/internal/hub"
	"filerelay/internal/repository"
	"filerelay/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(app *fiber.App, repo repository.FileRepository, svc service.RelayService, h *hub.Hub) {
	app.Get("/health", HealthCheck(repo))
	app.Get("/healthz", LivenessProbe())

	app.Post("/upload", UploadFile(svc))
	app.Get("/uploads/:filename", DownloadFile(svc))
	app.Get("/list_files", ListFiles(svc))

	app.Get("/ws", WebSocketUpgrade(), ServeWS(h))
}
