package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"

	"github.com/Nayan-Shrivastava/task-management-app/internal/auth"
	"github.com/Nayan-Shrivastava/task-management-app/internal/notification"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
)

// Handler carries every dependency the route handlers need. It is built
// once in main and shared.
type Handler struct {
	Users    *store.UserStore
	Tasks    *store.TaskStore
	Tokens   *auth.TokenService
	Cache    *redis.Client
	Mailer   notification.Mailer
	Validate *validator.Validate
}

func New(users *store.UserStore, tasks *store.TaskStore, tokens *auth.TokenService,
	cache *redis.Client, mailer notification.Mailer) *Handler {
	return &Handler{
		Users:    users,
		Tasks:    tasks,
		Tokens:   tokens,
		Cache:    cache,
		Mailer:   mailer,
		Validate: validator.New(),
	}
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	})
}

func ok(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

// storeErr maps the store error taxonomy onto HTTP statuses. Unexpected
// errors become a generic 500 so internals never leak.
func storeErr(c *fiber.Ctx, err error, fallback string) error {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		return fail(c, fiber.StatusBadRequest, ve.Msg)
	case errors.Is(err, store.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrInvalidCredentials), errors.Is(err, store.ErrInvalidToken):
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	default:
		return fail(c, fiber.StatusInternalServerError, fallback)
	}
}
