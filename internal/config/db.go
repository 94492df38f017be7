package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/relay"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetDb opens the configured database. It panics when the database cannot be
// opened.
func GetDb(cfg *Config) *gorm.DB {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	switch cfg.DbDriver {
	case "sqlite":
		if dir := filepath.Dir(cfg.DbDSN); dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				panic(err)
			}
		}
		dialector = sqlite.Open(cfg.DbDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DbDSN)
	default:
		panic(fmt.Sprintf("unknown db driver %q", cfg.DbDriver))
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		panic(err)
	}

	logrus.Infof("connected to %s database", cfg.DbDriver)
	return db
}

// GetRedis returns a client for the configured redis, or nil when no redis
// address is set.
func GetRedis(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})
}

// GetCodec returns the configured payload codec.
func GetCodec(cfg *Config) (compress.Compress, error) {
	return compress.New(cfg.Compression)
}

// GetRelay returns the configured relay transport.
func GetRelay(cfg *Config, client *redis.Client) (relay.Relay, error) {
	return relay.New(relay.Options{
		Name:         cfg.Relay,
		Redis:        client,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
	})
}
