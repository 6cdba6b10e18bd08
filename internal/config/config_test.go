package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10*time.Minute, cfg.CouponConfig.RedemptionWindow)
	assert.Equal(t, "UTC", cfg.CouponConfig.StoreTimezone.String())
	assert.False(t, cfg.KafkaConfig.Enabled())
	assert.Contains(t, cfg.DBConfig.DSN(), "dbname=coupon")
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SERVICE_PORT", "9090")
	v.Set("REDEMPTION_WINDOW", "15m")
	v.Set("STORE_TIMEZONE", "Asia/Seoul")
	v.Set("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.CouponConfig.RedemptionWindow)
	assert.Equal(t, "Asia/Seoul", cfg.CouponConfig.StoreTimezone.String())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaConfig.Brokers)
}

func TestFromViper_RejectsBadValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("REDEMPTION_WINDOW", "0s")

	_, err := fromViper(v)
	assert.Error(t, err)

	v.Set("REDEMPTION_WINDOW", "10m")
	v.Set("STORE_TIMEZONE", "Mars/Olympus")
	_, err = fromViper(v)
	assert.Error(t, err)
}
