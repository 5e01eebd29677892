package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/internal/middleware"
	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

const maxAvatarSize = 1 << 20 // 1MB

func validateAvatar(file *multipart.FileHeader) error {
	if file.Size > maxAvatarSize {
		return fiber.NewError(fiber.StatusBadRequest, "Avatar size exceeds the limit of 1MB")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "Avatar must be a jpg, jpeg or png image")
	}
	return nil
}

// UploadAvatar stores the uploaded image bytes on the user record.
func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	file, err := c.FormFile("avatar")
	if err != nil {
		logger.ErrorLogger.Error("Error reading avatar upload", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Please upload an avatar")
	}
	if err := validateAvatar(file); err != nil {
		logger.AuditLogger.Warn("Avatar rejected", zap.Int("user_id", user.ID), zap.Error(err))
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		logger.ErrorLogger.Error("Error opening avatar upload", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving avatar")
	}
	defer src.Close()

	avatar, err := io.ReadAll(src)
	if err != nil {
		logger.ErrorLogger.Error("Error reading avatar upload", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving avatar")
	}

	if err := h.Users.SetAvatar(c.Context(), user.ID, avatar); err != nil {
		logger.ErrorLogger.Error("Error saving avatar", zap.Error(err))
		return storeErr(c, err, "Error saving avatar")
	}

	logger.AuditLogger.Info("Avatar uploaded", zap.Int("user_id", user.ID), zap.Int64("size", file.Size))
	return ok(c, fiber.StatusOK, "Avatar uploaded successfully", nil)
}

func (h *Handler) DeleteAvatar(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	if err := h.Users.DeleteAvatar(c.Context(), user.ID); err != nil {
		logger.ErrorLogger.Error("Error deleting avatar", zap.Error(err))
		return storeErr(c, err, "Error deleting avatar")
	}

	logger.AuditLogger.Info("Avatar deleted", zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusOK, "Avatar deleted successfully", nil)
}

// GetAvatar serves any user's avatar image by id. Public route; 404 when
// the user or their avatar does not exist.
func (h *Handler) GetAvatar(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	avatar, err := h.Users.Avatar(c.Context(), userID)
	if err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "Avatar not found")
		}
		logger.ErrorLogger.Error("Error fetching avatar", zap.Error(err))
		return storeErr(c, err, "Error fetching avatar")
	}

	c.Set("Content-Type", http.DetectContentType(avatar))
	return c.Send(avatar)
}
