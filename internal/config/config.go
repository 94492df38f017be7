package config

import (
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Env string

	DbDriver string
	DbDSN    string

	RedisAddr string

	Relay        string
	KafkaBrokers string
	KafkaTopic   string

	Compression string
	Cache       bool

	HistoryLimit      int
	OperationLogLimit int

	SnapshotRetention    int
	RetentionCron        string
	GovernanceCron       string
	CacheSyncCron        string
	AutoSnapshotInterval time.Duration

	HTTPPort    string
	CORSOrigins []string

	LogLevel  string
	LogFormat string
}

func defaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", ".tmp/db/canvas.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RELAY", "local")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "canvas.workspace.events")
	v.SetDefault("COMPRESSION", "gzip")
	v.SetDefault("CACHE", true)
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("OPERATION_LOG_LIMIT", 200)
	v.SetDefault("SNAPSHOT_RETENTION", 20)
	v.SetDefault("RETENTION_CRON", "@daily")
	v.SetDefault("GOVERNANCE_CRON", "@every 1h")
	v.SetDefault("CACHE_SYNC_CRON", "@every 5m")
	v.SetDefault("AUTO_SNAPSHOT_INTERVAL", "0s")
	v.SetDefault("HTTP_PORT", "4020")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first.
func LoadConfig() *Config {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		Env:                  v.GetString("ENV"),
		DbDriver:             v.GetString("DB_DRIVER"),
		DbDSN:                v.GetString("DB_DSN"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		Relay:                v.GetString("RELAY"),
		KafkaBrokers:         v.GetString("KAFKA_BROKERS"),
		KafkaTopic:           v.GetString("KAFKA_TOPIC"),
		Compression:          v.GetString("COMPRESSION"),
		Cache:                v.GetBool("CACHE"),
		HistoryLimit:         v.GetInt("HISTORY_LIMIT"),
		OperationLogLimit:    v.GetInt("OPERATION_LOG_LIMIT"),
		SnapshotRetention:    v.GetInt("SNAPSHOT_RETENTION"),
		RetentionCron:        v.GetString("RETENTION_CRON"),
		GovernanceCron:       v.GetString("GOVERNANCE_CRON"),
		CacheSyncCron:        v.GetString("CACHE_SYNC_CRON"),
		AutoSnapshotInterval: v.GetDuration("AUTO_SNAPSHOT_INTERVAL"),
		HTTPPort:             v.GetString("HTTP_PORT"),
		CORSOrigins:          v.GetStringSlice("CORS_ORIGINS"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
	}
}
