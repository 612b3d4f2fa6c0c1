package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"convertify/internal/api"
	"convertify/internal/config"
	"convertify/internal/engine"
	"convertify/internal/intake"
	"convertify/internal/notifications"
	"convertify/internal/queue"
	"convertify/internal/runner"
)

// session wires one in-memory queue to the engine for the life of a command.
type session struct {
	store   *queue.Store
	engine  *engine.Handle
	service *api.Service
	logger  *slog.Logger
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	store, err := queue.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	handle, err := engine.NewFromConfig(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	notifier := notifications.NewService(cfg)
	svc := api.NewService(
		store,
		runner.New(store, handle, notifier, logger),
		intake.New(store, notifier, logger),
	)
	return &session{store: store, engine: handle, service: svc, logger: logger}, nil
}

func (s *session) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.engine.Close(), s.store.Close())
}
