package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Nayan-Shrivastava/task-management-app/internal/api/v1/handlers"
	"github.com/Nayan-Shrivastava/task-management-app/internal/auth"
	"github.com/Nayan-Shrivastava/task-management-app/internal/middleware"
)

func RegisterRoutes(app *fiber.App, h *handlers.Handler, tokens *auth.TokenService) {
	requireAuth := middleware.RequireAuth(tokens)

	// User
	app.Post("/users", h.Signup)
	app.Post("/users/login", h.Login)
	app.Post("/users/logout", requireAuth, h.Logout)
	app.Post("/users/logoutAll", requireAuth, h.LogoutAll)
	app.Get("/users/me", requireAuth, h.Me)
	app.Patch("/users/me", requireAuth, h.UpdateMe)
	app.Delete("/users/me", requireAuth, h.DeleteMe)

	// Avatar
	app.Post("/users/me/avatar", requireAuth, h.UploadAvatar)
	app.Delete("/users/me/avatar", requireAuth, h.DeleteAvatar)
	app.Get("/users/:id/avatar", h.GetAvatar)

	// Task
	app.Post("/tasks", requireAuth, h.CreateTask)
	app.Get("/tasks", requireAuth, h.ListTasks)
	app.Get("/tasks/:id", requireAuth, h.GetTask)
	app.Patch("/tasks/:id", requireAuth, h.UpdateTask)
	app.Delete("/tasks/:id", requireAuth, h.DeleteTask)
}
