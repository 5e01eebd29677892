package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/internal/middleware"
	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

const taskCacheTTL = time.Hour

func taskCacheKey(taskID int) string {
	return fmt.Sprintf("task:%d", taskID)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	type TaskRequest struct {
		Description string `json:"description" validate:"required"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error in create task", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Validation error: "+err.Error())
	}

	task, err := h.Tasks.Create(c.Context(), user.ID, req.Description)
	if err != nil {
		if !store.IsValidation(err) {
			logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		}
		return storeErr(c, err, "Error creating task")
	}

	logger.AuditLogger.Info("Task created", zap.Int("task_id", task.ID), zap.Int("user_id", user.ID))
	return ok(c, fiber.StatusCreated, "Task created successfully", task)
}

// ListTasks supports ?completed=, ?limit=, ?skip= and ?sortBy=field:dir.
// Results are always scoped to the authenticated owner.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	filter := store.TaskFilter{SortBy: c.Query("sortBy")}

	if v := c.Query("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "completed must be true or false")
		}
		filter.Completed = &completed
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return fail(c, fiber.StatusBadRequest, "limit must be a non-negative number")
		}
		filter.Limit = limit
	}
	if v := c.Query("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return fail(c, fiber.StatusBadRequest, "skip must be a non-negative number")
		}
		filter.Skip = skip
	}

	tasks, err := h.Tasks.List(c.Context(), user.ID, filter)
	if err != nil {
		if !store.IsValidation(err) {
			logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		}
		return storeErr(c, err, "Error fetching tasks")
	}

	logger.AuditLogger.Info("Tasks fetched", zap.Int("user_id", user.ID), zap.Int("count", len(tasks)))
	return ok(c, fiber.StatusOK, "Tasks fetched successfully", tasks)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	// Read-through cache. A cached task belonging to someone else is
	// treated exactly like a missing one.
	cacheKey := taskCacheKey(taskID)
	if cached, err := h.Cache.Get(c.Context(), cacheKey).Result(); err == nil {
		var task models.Task
		if err := json.Unmarshal([]byte(cached), &task); err == nil {
			if task.UserID != user.ID {
				return fail(c, fiber.StatusNotFound, "Task not found")
			}
			return ok(c, fiber.StatusOK, "Task found", task)
		}
	}

	task, err := h.Tasks.Get(c.Context(), user.ID, taskID)
	if err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return storeErr(c, err, "Error fetching task")
	}

	h.cacheTask(c, task)

	logger.AuditLogger.Info("Task found", zap.Int("task_id", task.ID))
	return ok(c, fiber.StatusOK, "Task found", task)
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var patch map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}

	task, err := h.Tasks.Update(c.Context(), user.ID, taskID, patch)
	if err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "Task not found")
		}
		if store.IsValidation(err) {
			logger.AuditLogger.Warn("Task update rejected", zap.Int("task_id", taskID), zap.Error(err))
		} else {
			logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		}
		return storeErr(c, err, "Error updating task")
	}

	h.Cache.Del(c.Context(), taskCacheKey(taskID))
	h.cacheTask(c, task)

	logger.AuditLogger.Info("Task updated", zap.Int("task_id", taskID))
	return ok(c, fiber.StatusOK, "Task updated successfully", task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalsUser).(*models.User)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.Tasks.Delete(c.Context(), user.ID, taskID)
	if err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return storeErr(c, err, "Error deleting task")
	}

	h.Cache.Del(c.Context(), taskCacheKey(taskID))

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID))
	return ok(c, fiber.StatusOK, "Task deleted successfully", task)
}

func (h *Handler) cacheTask(c *fiber.Ctx, task *models.Task) {
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := h.Cache.SetEX(c.Context(), taskCacheKey(task.ID), taskJSON, taskCacheTTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching task", zap.Error(err))
	}
}
