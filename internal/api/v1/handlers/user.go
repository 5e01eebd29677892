package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/internal/middleware"
	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

// Signup creates an account, issues the first token and queues the
// welcome email.
func (h *Handler) Signup(c *fiber.Ctx) error {
	type SignupRequest struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=7"`
		Age      int    `json:"age" validate:"omitempty,gte=0"`
	}

	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in signup", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during signup", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Validation error: "+err.Error())
	}

	user, err := h.Users.Create(c.Context(), req.Name, req.Email, req.Password, req.Age)
	if err != nil {
		if store.IsValidation(err) {
			logger.AuditLogger.Warn("Signup rejected", zap.Error(err))
		} else {
			logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		}
		return storeErr(c, err, "Error creating user")
	}

	token, err := h.Tokens.Issue(c.Context(), user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error issuing token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error issuing token")
	}

	h.Mailer.SendWelcome(user.Email, user.Name)

	logger.AuditLogger.Info("User signed up", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusCreated, "User created successfully", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Login checks credentials and issues a fresh token. Bad credentials are
// a 400 here; only token failures on protected routes are 401s.
func (h *Handler) Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Validation error: "+err.Error())
	}

	user, err := h.Users.FindByCredentials(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			logger.SecurityLogger.Warn("Login failed", zap.String("email", store.NormalizeEmail(req.Email)))
			return fail(c, fiber.StatusBadRequest, "Unable to login")
		}
		logger.ErrorLogger.Error("Error during login", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error during login")
	}

	token, err := h.Tokens.Issue(c.Context(), user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error issuing token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error issuing token")
	}

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "Login success", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Logout revokes the token used on this request; other sessions keep
// working.
func (h *Handler) Logout(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)
	token := c.Locals(middleware.LocalsToken).(string)

	if err := h.Tokens.Revoke(c.Context(), user.ID, token); err != nil {
		logger.ErrorLogger.Error("Error revoking token", zap.Error(err))
		return storeErr(c, err, "Error logging out")
	}

	logger.AuditLogger.Info("User logged out", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "Logged out", nil)
}

// LogoutAll empties the token list, ending every session at once.
func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	if err := h.Tokens.RevokeAll(c.Context(), user.ID); err != nil {
		logger.ErrorLogger.Error("Error revoking tokens", zap.Error(err))
		return storeErr(c, err, "Error logging out")
	}

	logger.AuditLogger.Info("User logged out of all sessions", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "Logged out of all sessions", nil)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)
	return ok(c, fiber.StatusOK, "Profile", user)
}

// UpdateMe applies a partial profile update. The allowed field set is
// checked in the store before anything is written.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	var patch map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		logger.ErrorLogger.Error("Bad request in profile update", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}

	updated, err := h.Users.Update(c.Context(), user.ID, patch)
	if err != nil {
		if store.IsValidation(err) {
			logger.AuditLogger.Warn("Profile update rejected", zap.Int("user_id", user.ID), zap.Error(err))
		} else {
			logger.ErrorLogger.Error("Error updating user", zap.Error(err))
		}
		return storeErr(c, err, "Error updating user")
	}

	logger.AuditLogger.Info("User updated", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "User updated successfully", updated)
}

// DeleteMe removes the account. Owned tasks go with it and the
// cancellation email is queued; delivery failure never fails the request.
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	removed, err := h.Users.Remove(c.Context(), user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return storeErr(c, err, "Error deleting user")
	}

	h.Mailer.SendCancellation(removed.Email, removed.Name)

	logger.AuditLogger.Info("User deleted", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "User deleted successfully", removed)
}
