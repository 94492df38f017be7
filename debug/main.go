package main

import (
	"os"

	"github.com/emrgen/canvas/internal/config"
	"github.com/emrgen/canvas/internal/server"
	"github.com/sirupsen/logrus"
)

// runs the server against a local sqlite database with debug logging
func main() {
	cfg := config.LoadConfig()
	cfg.LogLevel = "debug"
	if os.Getenv("HTTP_PORT") == "" {
		cfg.HTTPPort = "4001"
	}
	if os.Getenv("DB_DSN") == "" {
		cfg.DbDriver = "sqlite"
		cfg.DbDSN = ".tmp/db/canvas-debug.db"
	}
	config.SetupLogger(cfg)

	err := server.Start(cfg)
	if err != nil {
		logrus.Error(err)
		return
	}
}
