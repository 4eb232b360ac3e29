package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, LedgerSQL, cfg.Store.LedgerBackend)
	assert.Equal(t, 8, cfg.Dispatch.Concurrency)
	assert.False(t, cfg.TransportConfigured())
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/bloodlink")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WHATSAPP_FROM", "whatsapp:+14155238886")
	t.Setenv("DISPATCH_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.TransportConfigured())
	assert.Equal(t, 2, cfg.Dispatch.Concurrency)
}

func TestTransportConfigured_RequiresAllCredentials(t *testing.T) {
	cfg := Config{Twilio: TwilioConfig{AccountSID: "AC123", AuthToken: "token"}}
	assert.False(t, cfg.TransportConfigured(), "missing sender")

	cfg.Twilio.WhatsAppFrom = "whatsapp:+1"
	assert.True(t, cfg.TransportConfigured())
}

func TestValidate(t *testing.T) {
	base := Config{
		Store:    Store{Driver: StoreMemory, LedgerBackend: LedgerSQL},
		Dispatch: DispatchConfig{Concurrency: 1},
	}
	require.NoError(t, base.Validate())

	t.Run("postgres requires url", func(t *testing.T) {
		cfg := base
		cfg.Store.Driver = StorePostgres
		assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")
	})

	t.Run("redis ledger requires url", func(t *testing.T) {
		cfg := base
		cfg.Store.LedgerBackend = LedgerRedis
		assert.ErrorContains(t, cfg.Validate(), "REDIS_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base
		cfg.Store.Driver = "mongo"
		assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")
	})

	t.Run("concurrency floor", func(t *testing.T) {
		cfg := base
		cfg.Dispatch.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "DISPATCH_CONCURRENCY")
	})
}
