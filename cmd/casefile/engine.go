package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kingrea/casefile/internal/config"
	"github.com/kingrea/casefile/internal/detective"
	"github.com/kingrea/casefile/internal/logging"
	"github.com/kingrea/casefile/internal/metrics"
	"github.com/kingrea/casefile/internal/server"
	"github.com/kingrea/casefile/internal/session"
)

// engine holds the components every command wires together.
type engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *metrics.Recorder
	game      *session.Service
	detective *detective.Detective
}

func resolveProjectDir() (string, error) {
	dir := projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}
		dir = cwd
	}
	return filepath.Abs(dir)
}

func newEngine() (*engine, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(dir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(dir, cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	recorder := metrics.New()
	store, err := session.NewStore(cfg.MaxSessions())
	if err != nil {
		logger.Close()
		return nil, err
	}
	game, err := session.New(store, session.WithLogger(logger), session.WithRecorder(recorder))
	if err != nil {
		logger.Close()
		return nil, err
	}
	det, err := detective.New(game,
		detective.WithMaxAutoSteps(cfg.MaxAutoSteps()),
		detective.WithLogger(logger),
		detective.WithRecorder(recorder),
	)
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &engine{cfg: cfg, logger: logger, metrics: recorder, game: game, detective: det}, nil
}

func (e *engine) newServer() (*server.Server, error) {
	return server.New(server.SettingsFromConfig(e.cfg), e.game, e.detective,
		server.WithLogger(e.logger),
		server.WithMetrics(e.metrics.Handler()),
		server.WithVersion(version),
	)
}

func (e *engine) Close() error {
	return e.logger.Close()
}
