package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/scoring"
)

type Config struct {
	AppName                       string `env:"APP_NAME" env-default:"thistle-api"`
	Port                          int    `env:"PORT" env-default:"3004"`
	LogLevel                      string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool   `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int    `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int    `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int    `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	StartupMaxAttempts            int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort int `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"thistle"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SQL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version, 0 migrates to the latest
	DatabaseMigrationVersion uint `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis enables the cross-process turn lock when set
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	// How long a turn waits for another process to release the negotiation
	RedisLockWait time.Duration `env:"REDIS_LOCK_WAIT" env-default:"2s"`

	// Kafka enables event publishing when set
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"false"`
	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for negotiation and decision events
	KafkaEventsTopic string `env:"KAFKA_EVENTS_TOPIC" env-default:"thistle-events"`
	KafkaBatchSize   int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	// Kafka batch timeout
	KafkaBatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"10ms"`

	// Enable OTLP tracing export
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`

	// Optional YAML file overriding the negotiation thresholds and scoring benchmarks
	BenchmarksFile string `env:"BENCHMARKS_FILE" env-default:""`
}

// Benchmarks are the tunable tables and thresholds of the negotiation and scoring engines
type Benchmarks struct {
	Negotiation negotiation.Config `yaml:"negotiation"`
	Scoring     scoring.Config     `yaml:"scoring"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Database() database.Config {
	return database.Config{
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) Migration() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             c.DatabaseMigrationVersion,
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}

func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Brokers splits KafkaBrokers, dropping blanks.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// LoadBenchmarks returns the default tables overlaid with BenchmarksFile when set. Keys absent
// from the file keep their defaults; maps in the file replace the default maps.
func (c *Config) LoadBenchmarks() (Benchmarks, error) {
	benchmarks := Benchmarks{
		Negotiation: negotiation.DefaultConfig(),
		Scoring:     scoring.DefaultConfig(),
	}
	if c.BenchmarksFile == "" {
		return benchmarks, nil
	}

	raw, err := os.ReadFile(c.BenchmarksFile)
	if err != nil {
		return Benchmarks{}, fmt.Errorf("failed to read benchmarks file: %w", err)
	}
	return ParseBenchmarks(raw, benchmarks)
}

func ParseBenchmarks(raw []byte, base Benchmarks) (Benchmarks, error) {
	overlay := struct {
		Negotiation *negotiation.Config `yaml:"negotiation"`
		Scoring     *scoring.Config     `yaml:"scoring"`
	}{
		Negotiation: &base.Negotiation,
		Scoring:     &base.Scoring,
	}
	// yaml.v3 merges into existing maps; clear them so a listed table fully replaces the default
	var keys struct {
		Scoring map[string]yaml.Node `yaml:"scoring"`
	}
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return Benchmarks{}, fmt.Errorf("invalid benchmarks file: %w", err)
	}
	if _, ok := keys.Scoring["quality_ratings"]; ok {
		base.Scoring.QualityRatings = nil
	}
	if _, ok := keys.Scoring["payment_term_scores"]; ok {
		base.Scoring.PaymentTermScores = nil
	}

	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Benchmarks{}, fmt.Errorf("invalid benchmarks file: %w", err)
	}
	if base.Scoring.QualityBest <= base.Scoring.QualityWorst {
		return Benchmarks{}, fmt.Errorf("invalid benchmarks file: quality_best must exceed quality_worst")
	}
	if base.Scoring.LeadTimeWorstDays <= base.Scoring.LeadTimeBestDays {
		return Benchmarks{}, fmt.Errorf("invalid benchmarks file: lead_time_worst_days must exceed lead_time_best_days")
	}
	return base, nil
}
