package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	DBName             string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	MaxLifetimeMinutes int
	LogLevel           string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SchedulerConfig carries the engine's configuration knobs plus the
// worker/lock/cleanup knobs the store and lock collaborators need.
type SchedulerConfig struct {
	// Engine knobs.
	IdleWaitTime                    time.Duration
	DBFailureRetryInterval          time.Duration
	SignalOnSchedulingChange        bool
	InterruptJobsOnShutdown         bool
	InterruptJobsOnShutdownWithWait bool
	BatchSizeMin                    int
	BatchSizeMax                    int
	BatchTimeWindow                 time.Duration
	WorkerPoolSize                  int

	// Store/lock collaborator knobs.
	MaxRetries        int
	RetryDelaySeconds int
	LockTTLSeconds    int
	HeartbeatSeconds  int
	CleanupDays       int
	Timezone          string
}

// LoggingConfig controls internal/logging's zerolog construction.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

func LoadConfig() *Config {
	cfg, _ := Load()
	return cfg
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 5003),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			Host:               getEnv("POSTGRES_HOST", "localhost"),
			Port:               getEnv("POSTGRES_PORT", "5432"),
			User:               getEnv("POSTGRES_USER", "scheduler_user"),
			Password:           getEnv("POSTGRES_PASSWORD", "scheduler_password"),
			DBName:             getEnv("POSTGRES_DB", "scheduler_db"),
			SSLMode:            getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("POSTGRES_MAX_IDLE_CONNS", 10),
			MaxLifetimeMinutes: getEnvInt("POSTGRES_MAX_LIFETIME_MINS", 30),
			LogLevel:           getEnv("POSTGRES_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 2),
		},
		Scheduler: SchedulerConfig{
			IdleWaitTime:                    getDuration("SCHEDULER_IDLE_WAIT_TIME", 30*time.Second),
			DBFailureRetryInterval:          getDuration("SCHEDULER_DB_FAILURE_RETRY_INTERVAL", 15*time.Second),
			SignalOnSchedulingChange:        getEnvBool("SCHEDULER_SIGNAL_ON_SCHEDULING_CHANGE", true),
			InterruptJobsOnShutdown:         getEnvBool("SCHEDULER_INTERRUPT_JOBS_ON_SHUTDOWN", false),
			InterruptJobsOnShutdownWithWait: getEnvBool("SCHEDULER_INTERRUPT_JOBS_ON_SHUTDOWN_WITH_WAIT", false),
			BatchSizeMin:                    getEnvInt("SCHEDULER_BATCH_SIZE_MIN", 1),
			BatchSizeMax:                    getEnvInt("SCHEDULER_BATCH_SIZE_MAX", 50),
			BatchTimeWindow:                 getDuration("SCHEDULER_BATCH_TIME_WINDOW", time.Second),
			WorkerPoolSize:                  getEnvInt("SCHEDULER_WORKER_COUNT", 10),
			MaxRetries:                      getEnvInt("SCHEDULER_MAX_RETRIES", 3),
			RetryDelaySeconds:               getEnvInt("SCHEDULER_RETRY_DELAY_SECONDS", 60),
			LockTTLSeconds:                  getEnvInt("SCHEDULER_LOCK_TTL_SECONDS", 300),
			HeartbeatSeconds:                getEnvInt("SCHEDULER_HEARTBEAT_SECONDS", 30),
			CleanupDays:                     getEnvInt("SCHEDULER_CLEANUP_DAYS", 30),
			Timezone:                        getEnv("SCHEDULER_TIMEZONE", "UTC"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", true),
			ServiceName: getEnv("SERVICE_NAME", "scheduler-service"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
