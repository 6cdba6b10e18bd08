package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the key/value connection string understood by pgx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// JWTConfig holds the shared secret used to verify bearer tokens.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds broker settings. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// CouponConfig holds the coupon lifecycle tunables.
type CouponConfig struct {
	// RedemptionWindow bounds the time between activation and redemption.
	RedemptionWindow time.Duration
	// StoreTimezone is the location used for event calendar checks.
	StoreTimezone *time.Location
}

// ServiceConfig holds all configuration for the coupon service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       DatabaseConfig
	JWTConfig      JWTConfig
	KafkaConfig    KafkaConfig
	CouponConfig   CouponConfig
	JaegerEndpoint string
}

// Load reads configuration from the environment (and an optional config file)
// and returns a ServiceConfig.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config")
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coupon")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")
	v.SetDefault("REDEMPTION_WINDOW", "10m")
	v.SetDefault("STORE_TIMEZONE", "UTC")
	v.SetDefault("JAEGER_ENDPOINT", "")
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	window := v.GetDuration("REDEMPTION_WINDOW")
	if window <= 0 {
		return nil, errors.Newf("REDEMPTION_WINDOW must be positive, got %q", v.GetString("REDEMPTION_WINDOW"))
	}

	loc, err := time.LoadLocation(v.GetString("STORE_TIMEZONE"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid STORE_TIMEZONE")
	}

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig:   JWTConfig{Secret: v.GetString("JWT_SECRET")},
		KafkaConfig: loadKafkaConfig(v),
		CouponConfig: CouponConfig{
			RedemptionWindow: window,
			StoreTimezone:    loc,
		},
		JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
	}, nil
}

// loadKafkaConfig extracts Kafka configuration from Viper.
func loadKafkaConfig(v *viper.Viper) KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers:     brokers,
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}
