package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// DynamoDBConfig holds the coordinates of the DynamoDB tables and indexes.
type DynamoDBConfig struct {
	Region                  string
	Endpoint                string // Optional override, e.g. a local DynamoDB
	AccessKeyID             string
	SecretAccessKey         string
	MembersTableName        string
	FamiliesTableName       string
	TelegramChatIDIndexName string
	ReminderTimeIndexName   string
}

// AppConfig holds all configuration for the application.
// It is built once by Load and not modified afterwards.
type AppConfig struct {
	TelegramToken       string
	TimeZone            string
	Location            *time.Location
	LogLevel            string
	Environment         string
	StorageBackend      string
	DatabaseURL         string
	DynamoDB            DynamoDBConfig
	BroadcastCron       string
	SchedulerEnabled    bool
	BroadcastWorkers    int
	BroadcastRatePerSec int
	OpenRegistration    bool
	RandomSeed          uint64
}

// Load reads configuration from environment variables and the given .env files (if present).
func Load(envFiles ...string) (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load(envFiles...)

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.TimeZone = os.Getenv("TIME_ZONE")
	if cfg.TimeZone == "" {
		return nil, fmt.Errorf("TIME_ZONE is not set")
	}
	cfg.Location, err = time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE: %w", err)
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres))
	switch cfg.StorageBackend {
	case BackendPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case BackendDynamoDB:
		cfg.DynamoDB.Region = os.Getenv("DYNAMODB_REGION")
		if cfg.DynamoDB.Region == "" {
			return nil, fmt.Errorf("DYNAMODB_REGION is not set")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: must be one of %s, %s, %s",
			cfg.StorageBackend, BackendPostgres, BackendDynamoDB, BackendMemory)
	}

	cfg.DynamoDB.Endpoint = os.Getenv("DYNAMODB_ENDPOINT")
	cfg.DynamoDB.AccessKeyID = os.Getenv("DYNAMODB_ACCESS_KEY_ID")
	cfg.DynamoDB.SecretAccessKey = os.Getenv("DYNAMODB_SECRET_ACCESS_KEY")
	cfg.DynamoDB.MembersTableName = getEnv("MEMBERS_TABLE_NAME", "members")
	cfg.DynamoDB.FamiliesTableName = getEnv("FAMILIES_TABLE_NAME", "families")
	cfg.DynamoDB.TelegramChatIDIndexName = getEnv("TELEGRAM_CHAT_ID_INDEX_NAME", "telegramChatId-index")
	cfg.DynamoDB.ReminderTimeIndexName = getEnv("REMINDER_TIME_INDEX_NAME", "reminderTime-index")

	cfg.BroadcastCron = getEnv("BROADCAST_CRON", "0 * * * *") // Default: top of every hour

	if cfg.SchedulerEnabled, err = getBool("SCHEDULER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.OpenRegistration, err = getBool("OPEN_REGISTRATION", true); err != nil {
		return nil, err
	}

	if cfg.BroadcastWorkers, err = getPositiveInt("BROADCAST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.BroadcastRatePerSec, err = getPositiveInt("BROADCAST_RATE_PER_SEC", 25); err != nil {
		return nil, err
	}

	if seed := os.Getenv("RANDOM_SEED"); seed != "" {
		cfg.RandomSeed, err = strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s: must be at least 1, got %d", key, n)
	}
	return n, nil
}
