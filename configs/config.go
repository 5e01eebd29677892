package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBNameTest     string
	RedisHost      string
	RedisPort      int
	JWTSecret      string
	SendGridAPIKey string
	EmailSender    string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		// Only log outside of test mode
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return &Config{
		Port:           envInt("PORT", 3004),
		DBHost:         envString("DB_HOST", "localhost"),
		DBPort:         envInt("DB_PORT", 5432),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBNameTest:     os.Getenv("DB_NAME_TEST"),
		RedisHost:      envString("REDIS_HOST", "localhost"),
		RedisPort:      envInt("REDIS_PORT", 6379),
		JWTSecret:      envString("JWT_SECRET", "secret"),
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailSender:    envString("EMAIL_SENDER", "nayanshrivastava800@gmail.com"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
