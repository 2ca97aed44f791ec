package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/campusarena/arena-system/services"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Необязательные интеграции: пустое значение выключает интеграцию,
	// приложение продолжает работать без неё.
	RedisURL string
	NATSURL  string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// Политика распределения копеечного остатка при расчёте выплат.
	RemainderPolicy services.RemainderPolicy

	// Количество жизней, выдаваемых команде при регистрации на турнир.
	DefaultTeamLives int
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	policy, err := services.ParseRemainderPolicy(os.Getenv("SETTLEMENT_REMAINDER_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLEMENT_REMAINDER_POLICY: %w", err)
	}

	lives := 3 // Значение по умолчанию
	if livesStr := os.Getenv("DEFAULT_TEAM_LIVES"); livesStr != "" {
		lives, err = strconv.Atoi(livesStr)
		if err != nil || lives <= 0 {
			return nil, fmt.Errorf("DEFAULT_TEAM_LIVES must be a positive integer, got %q", livesStr)
		}
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		RedisURL: os.Getenv("REDIS_URL"),
		NATSURL:  os.Getenv("NATS_URL"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		RemainderPolicy:  policy,
		DefaultTeamLives: lives,
	}

	return cfg, nil
}

// R2Enabled сообщает, заданы ли все обязательные параметры хранилища отчётов.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" &&
		c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" &&
		c.R2BucketName != ""
}
