package config

import (
	"fmt"
	"time"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"local"`
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	JWT      JWTConfig
	Runner   RunnerConfig
	Hub      HubConfig
	Files    FilesConfig
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type GRPCConfig struct {
	Addr string `env:"GRPC_ADDR" env-default:":9090"`
}

type StorageConfig struct {
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"tasks.db"`
}

type PostgresConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	DBName   string `env:"DB_NAME" env-default:"tasks"`
	SSLMode  string `env:"DB_SSL_MODE" env-default:"disable"`
}

func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RabbitMQConfig - an empty URL disables the audit feed.
type RabbitMQConfig struct {
	URL   string `env:"RABBITMQ_URL"`
	Queue string `env:"RABBITMQ_AUDIT_QUEUE" env-default:"task_audit_logs"`
}

// RedisConfig - an empty address disables the task cache.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_TASK_TTL" env-default:"5m"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"EMAIL_FROM"`
}

func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != 0 && c.Username != "" && c.Password != "" && c.From != ""
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET_KEY" env-required:"true"`
}

type RunnerConfig struct {
	Workers    int           `env:"RUNNER_WORKERS" env-default:"4"`
	QueueSize  int           `env:"RUNNER_QUEUE_SIZE" env-default:"256"`
	JobTimeout time.Duration `env:"RUNNER_JOB_TIMEOUT" env-default:"30s"`
}

type HubConfig struct {
	QueueSize   int           `env:"HUB_QUEUE_SIZE" env-default:"1024"`
	SendTimeout time.Duration `env:"HUB_SEND_TIMEOUT" env-default:"5s"`
}

type FilesConfig struct {
	Dir string `env:"FILES_DIR" env-default:"task_files"`
}
