package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/pricing"
	"monteur/internal/domain/units"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("TZ", "Europe/Berlin")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.Durable())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 1.0, cfg.TracingSampleRatio)
}

func TestLoadRejectsSampleRatioOutOfRange(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "1.5")
	_, err := Load()
	assert.ErrorContains(t, err, "OTEL_TRACES_SAMPLE_RATIO")
}

func TestLoadValidatesDriver(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"mongo without uri", map[string]string{"STORAGE_DRIVER": "mongo", "MONGO_URI": ""}, false},
		{"mongo", map[string]string{"STORAGE_DRIVER": "mongo", "MONGO_URI": "mongodb://localhost"}, true},
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URL": ""}, false},
		{"unknown", map[string]string{"STORAGE_DRIVER": "redis"}, false},
		{"bad duration", map[string]string{"STORAGE_DRIVER": "memory", "IDEMP_TTL": "soon"}, false},
		{"bad backoff", map[string]string{"STORAGE_DRIVER": "memory", "RETRY_BACKOFF": "1s,x"}, false},
		{"bad zone", map[string]string{"STORAGE_DRIVER": "memory", "TZ": "Mars/Olympus"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TZ", "UTC")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDurableNeedsBrokerAndStore(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/monteur")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.Durable())
}

func TestLoadPolicyDefaults(t *testing.T) {
	catalog, policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Len(t, catalog.All(), 3)
	assert.Equal(t, pricing.DefaultPolicy(), policy)
}

func TestParsePolicyOverrides(t *testing.T) {
	raw := []byte(`
tax_rate_bp: 1900
lead:
  months: 1
units:
  - id: Loft
    label: Loft
    max_guests: 3
    cleaning_fee_cents: 5000
    tiers:
      - {max_party: 2, nightly_cents: 8000}
      - {max_party: 3, nightly_cents: 9000}
`)
	catalog, policy, err := ParsePolicy(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1900), policy.TaxRateBP)
	assert.Equal(t, int64(1000), policy.DiscountRateBP)
	assert.Equal(t, pricing.Lead{Months: 1}, policy.Lead)

	loft, err := catalog.Get("loft")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), loft.CleaningFee.Amount)
	require.Len(t, policy.Tiers[units.ID("loft")], 2)
	assert.Equal(t, int64(9000), policy.Tiers["loft"][1].Nightly.Amount)
}

func TestParsePolicyRejectsInvalid(t *testing.T) {
	_, _, err := ParsePolicy([]byte(`tax_rate_bp: 20000`))
	assert.ErrorIs(t, err, pricing.ErrInvalidPolicy)

	_, _, err = ParsePolicy([]byte(`units: [{id: a, max_guests: 2, tiers: [{max_party: 2, nightly_cents: 100}, {max_party: 1, nightly_cents: 50}]}]`))
	assert.ErrorIs(t, err, pricing.ErrInvalidPolicy)

	_, _, err = ParsePolicy([]byte(`units: [{id: kombi, max_guests: 4, parts: [ghost], tiers: [{max_party: 4, nightly_cents: 100}]}]`))
	assert.ErrorIs(t, err, units.ErrInvalidCatalog)

	_, _, err = ParsePolicy([]byte(`units: [unterminated`))
	assert.Error(t, err)
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discount_rate_bp: 500\n"), 0o600))
	_, policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, int64(500), policy.DiscountRateBP)

	_, _, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
