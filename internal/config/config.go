package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxConns int32

	// Redis config
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// AWS event sinks. Empty URL/ARN disables that sink.
	AWSRegion   string
	AWSEndpoint string // LocalStack or other override
	SQSQueueURL string
	SNSTopicARN string

	// Location is where reminder times and weekends are evaluated.
	Timezone string
	Location *time.Location

	// Scheduler
	SchedulerEnabled     bool
	SchedulerInterval    time.Duration
	SchedulerBatchSize   int
	SchedulerConcurrency int
	SchedulerRate        float64 // users per second
	SchedulerMaxCatchUp  time.Duration
	DailySummaryTime     notification.TimeOfDay
	WeeklyProgressTime   notification.TimeOfDay
	CleanupTime          notification.TimeOfDay

	RateLimitPerMinute int
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first if present;
// real environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:    "localhost",
		DBPort:    5432,
		DBUser:    "fooddiary",
		DBName:    "fooddiary",
		DBSSLMode: "disable",

		// Redis defaults
		RedisHost: "localhost",
		RedisPort: 6379,

		AWSRegion: "us-east-1",

		Timezone: "UTC",

		SchedulerEnabled:     true,
		SchedulerInterval:    time.Minute,
		SchedulerBatchSize:   100,
		SchedulerConcurrency: 8,
		SchedulerRate:        50,
		SchedulerMaxCatchUp:  time.Hour,
		DailySummaryTime:     notification.At(21, 0),
		WeeklyProgressTime:   notification.At(19, 0),
		CleanupTime:          notification.At(3, 0),

		RateLimitPerMinute: 120,
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Env = envString("ENV", cfg.Env)

	// Database config
	cfg.DBHost = envString("DB_HOST", cfg.DBHost)
	if cfg.DBPort, err = envInt("DB_PORT", cfg.DBPort); err != nil {
		return nil, err
	}
	cfg.DBUser = envString("DB_USER", cfg.DBUser)
	cfg.DBPassword = envString("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = envString("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = envString("DB_SSLMODE", cfg.DBSSLMode)
	maxConns, err := envInt("DB_MAX_CONNS", 0)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)

	// Redis config
	cfg.RedisHost = envString("REDIS_HOST", cfg.RedisHost)
	if cfg.RedisPort, err = envInt("REDIS_PORT", cfg.RedisPort); err != nil {
		return nil, err
	}
	cfg.RedisPassword = envString("REDIS_PASSWORD", cfg.RedisPassword)
	if cfg.RedisDB, err = envInt("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}

	cfg.AWSRegion = envString("AWS_REGION", cfg.AWSRegion)
	cfg.AWSEndpoint = envString("AWS_ENDPOINT", cfg.AWSEndpoint)
	cfg.SQSQueueURL = envString("SQS_QUEUE_URL", cfg.SQSQueueURL)
	cfg.SNSTopicARN = envString("SNS_TOPIC_ARN", cfg.SNSTopicARN)

	cfg.Timezone = envString("TIMEZONE", cfg.Timezone)
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Scheduler config
	if cfg.SchedulerEnabled, err = envBool("SCHEDULER_ENABLED", cfg.SchedulerEnabled); err != nil {
		return nil, err
	}
	if cfg.SchedulerInterval, err = envDuration("SCHEDULER_INTERVAL", cfg.SchedulerInterval); err != nil {
		return nil, err
	}
	if cfg.SchedulerBatchSize, err = envInt("SCHEDULER_BATCH_SIZE", cfg.SchedulerBatchSize); err != nil {
		return nil, err
	}
	if cfg.SchedulerConcurrency, err = envInt("SCHEDULER_CONCURRENCY", cfg.SchedulerConcurrency); err != nil {
		return nil, err
	}
	if cfg.SchedulerRate, err = envFloat("SCHEDULER_RATE", cfg.SchedulerRate); err != nil {
		return nil, err
	}
	if cfg.SchedulerMaxCatchUp, err = envDuration("SCHEDULER_MAX_CATCH_UP", cfg.SchedulerMaxCatchUp); err != nil {
		return nil, err
	}
	if cfg.DailySummaryTime, err = envTime("DAILY_SUMMARY_TIME", cfg.DailySummaryTime); err != nil {
		return nil, err
	}
	if cfg.WeeklyProgressTime, err = envTime("WEEKLY_PROGRESS_TIME", cfg.WeeklyProgressTime); err != nil {
		return nil, err
	}
	if cfg.CleanupTime, err = envTime("CLEANUP_TIME", cfg.CleanupTime); err != nil {
		return nil, err
	}

	if cfg.RateLimitPerMinute, err = envInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envTime(key string, def notification.TimeOfDay) (notification.TimeOfDay, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	t, err := notification.ParseTimeOfDay(v)
	if err != nil {
		return notification.TimeOfDay{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
