package main

import (
	"fmt"

	"github.com/viant/fingov"
	"go.uber.org/zap"
)

func newLogger(config fingov.LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if config.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if config.Level != "" {
		level, err := zap.ParseAtomicLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
		cfg.Level = level
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
