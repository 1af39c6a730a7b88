package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/scoring"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	os.Unsetenv("DB_NAME")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("REDIS_LOCK_WAIT", "500ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "thistle-api", cfg.AppName)
	assert.Equal(t, "thistle", cfg.DatabaseName)
	assert.Equal(t, 5432, cfg.Database().Port)
	assert.Equal(t, "db/pg", cfg.Migration().MigrationFolderPath)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Equal(t, 500*time.Millisecond, cfg.RedisLockWait)
	assert.Equal(t, "thistle-events", cfg.KafkaEventsTopic)
}

func defaultBenchmarks() Benchmarks {
	return Benchmarks{
		Negotiation: negotiation.DefaultConfig(),
		Scoring:     scoring.DefaultConfig(),
	}
}

func TestLoadBenchmarks_NoFile(t *testing.T) {
	cfg := &Config{}
	benchmarks, err := cfg.LoadBenchmarks()
	require.NoError(t, err)
	assert.Equal(t, defaultBenchmarks(), benchmarks)
}

func TestParseBenchmarks_Overrides(t *testing.T) {
	raw := []byte(`
negotiation:
  max_rounds: 5
  lock_ttl: 1m
scoring:
  lead_time_worst_days: 90
  payment_term_scores:
    "50/50": 75
`)
	benchmarks, err := ParseBenchmarks(raw, defaultBenchmarks())
	require.NoError(t, err)

	assert.Equal(t, 5, benchmarks.Negotiation.MaxRounds)
	assert.Equal(t, time.Minute, benchmarks.Negotiation.LockTTL)
	assert.Equal(t, 3, benchmarks.Negotiation.StagnationWindow, "unlisted keys keep defaults")
	assert.Equal(t, 90.0, benchmarks.Scoring.LeadTimeWorstDays)
	assert.Equal(t, 14.0, benchmarks.Scoring.LeadTimeBestDays)
	assert.Equal(t, map[string]float64{"50/50": 75}, benchmarks.Scoring.PaymentTermScores, "listed tables replace defaults")
	assert.Len(t, benchmarks.Scoring.QualityRatings, 4)
}

func TestParseBenchmarks_Invalid(t *testing.T) {
	_, err := ParseBenchmarks([]byte("scoring: [1, 2"), defaultBenchmarks())
	require.Error(t, err)

	_, err = ParseBenchmarks([]byte("scoring:\n  quality_best: 2\n"), defaultBenchmarks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality_best")

	_, err = ParseBenchmarks([]byte("scoring:\n  lead_time_worst_days: 10\n"), defaultBenchmarks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead_time_worst_days")
}

func TestLoadBenchmarks_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  quality_ratings:\n    1: 5.0\n"), 0o600))

	cfg := &Config{BenchmarksFile: path}
	benchmarks, err := cfg.LoadBenchmarks()
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{1: 5.0}, benchmarks.Scoring.QualityRatings)

	cfg.BenchmarksFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.LoadBenchmarks()
	require.Error(t, err)
}
