package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// SchedulerConfig holds the FSRS scheduling settings recognized by the kernel.
// Weights is either empty (use the built-in defaults) or exactly 21 values.
type SchedulerConfig struct {
	RequestRetention float64   `yaml:"request_retention" env:"SCHEDULER_REQUEST_RETENTION" env-default:"0.9"`
	MaximumInterval  int       `yaml:"maximum_interval"  env:"SCHEDULER_MAXIMUM_INTERVAL"  env-default:"36500"`
	EnableFuzz       bool      `yaml:"enable_fuzz"       env:"SCHEDULER_ENABLE_FUZZ"       env-default:"false"`
	Weights          []float64 `yaml:"weights"           env:"SCHEDULER_WEIGHTS"`
}
