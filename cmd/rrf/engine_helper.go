package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"rrf/internal/config"
	"rrf/internal/engine"
	"rrf/internal/logging"
	"rrf/internal/storage"
)

var (
	engineOnce   sync.Once
	sharedEngine *engine.Engine
	sharedConfig *config.Config
	sharedDB     *storage.DB
	engineErr    error
)

// getEngine returns a shared Engine instance backed by the run store.
// The engine is lazily initialized on first use.
func getEngine(root string, logger *logging.Logger) (*engine.Engine, error) {
	engineOnce.Do(func() {
		cfg := loadConfigOrDefault(root, logger)

		db, err := storage.Open(root, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		sharedConfig = cfg
		sharedDB = db
		sharedEngine = engine.New(cfg, db, logger)
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared Engine or exits on error.
func mustGetEngine(root string, logger *logging.Logger) *engine.Engine {
	eng, err := getEngine(root, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}

// loadConfigOrDefault loads .rrf/config.json, warning and falling back to
// defaults when it cannot be read.
func loadConfigOrDefault(root string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	return cfg
}

// getRoot returns the working directory the .rrf store lives under.
func getRoot() (string, error) {
	return os.Getwd()
}

// mustGetRoot returns the store root or exits on error.
func mustGetRoot() string {
	root, err := getRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.InfoLevel,
	})
}
