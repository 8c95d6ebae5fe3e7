package main

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"productlogik/internal/config"
	"productlogik/internal/database"
	"productlogik/internal/pkg/logger"
)

func main() {
	rootCmd := newRootCmd(openDB)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.New(cfg.AppEnv, cfg.Debug); err != nil {
		return nil, err
	}
	return database.Connect(cfg.DatabaseURL)
}
