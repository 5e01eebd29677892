package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/configs"
	v1 "github.com/Nayan-Shrivastava/task-management-app/internal/api/v1"
	"github.com/Nayan-Shrivastava/task-management-app/internal/api/v1/handlers"
	"github.com/Nayan-Shrivastava/task-management-app/internal/auth"
	"github.com/Nayan-Shrivastava/task-management-app/internal/middleware"
	"github.com/Nayan-Shrivastava/task-management-app/internal/notification"
	"github.com/Nayan-Shrivastava/task-management-app/internal/repository"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/database"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

func main() {
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	cfg := configs.LoadConfig()

	db := database.ConnectDB(cfg)
	defer db.Close()
	logger.SystemLogger.Info("Database connected")

	repository.CreateTableIfNotExists(db)

	redisClient := database.ConnectRedis(cfg)
	defer redisClient.Close()
	logger.SystemLogger.Info("Redis connected")

	var mailer notification.Mailer = notification.NopMailer{}
	if cfg.SendGridAPIKey != "" {
		mailer = notification.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailSender)
	} else {
		logger.SystemLogger.Info("SENDGRID_API_KEY not set, email notifications disabled")
	}
	defer mailer.Close()

	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	tokens := auth.NewTokenService(cfg.JWTSecret, users)
	h := handlers.New(users, tasks, tokens, redisClient, mailer)

	app := fiber.New()

	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	v1.RegisterRoutes(app, h, tokens)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
