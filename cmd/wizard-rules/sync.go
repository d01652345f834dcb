package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/eventdef"
	"alert-wizard/internal/kafka"
	"alert-wizard/internal/translator"
	"alert-wizard/internal/wizard"
)

// definitionService is the part of *eventdef.Service sync uses.
type definitionService interface {
	FindByTitle(ctx context.Context, title string) (*eventdef.Definition, error)
	Create(ctx context.Context, def eventdef.Definition) (*eventdef.Definition, error)
	Update(ctx context.Context, id, title, description string, cfg engine.Config) (*eventdef.Definition, error)
}

func openDefinitionService(ctx context.Context, e *env) (*eventdef.Service, func(), error) {
	pg := e.cfg.Postgres
	db, err := eventdef.OpenPostgres(ctx, pg.DSN, eventdef.PoolOptions{
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: pg.ConnMaxLifetime,
	})
	if err != nil {
		e.logger.Error("failed to open event definition store", "dsn", pg.DSN, "error", err)
		return nil, nil, err
	}

	store := eventdef.NewPostgresStore(db)
	if pg.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	var (
		publisher eventdef.Publisher
		producer  *kafka.Producer
	)
	if e.cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(&e.cfg.Kafka, e.logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		publisher = eventdef.NewKafkaPublisher(producer)
	}

	closeAll := func() {
		if producer != nil {
			if err := producer.Close(); err != nil {
				e.logger.Warn("failed to close kafka producer", "error", err)
			}
		}
		db.Close()
	}
	return eventdef.NewService(store, publisher, e.cfg.Defaults.Backlog, e.logger), closeAll, nil
}

func runSync(ctx context.Context, out io.Writer, paths []string, defaults wizard.RuleDefaults, tr *translator.Translator, svc definitionService) int {
	files, failures := expandPaths(out, paths)
	var created, updated int

	for _, path := range files {
		rules, err := loadRules(path, defaults)
		if err != nil {
			fmt.Fprintf(out, "  FAIL  %s: %v\n", path, err)
			failures++
			continue
		}

		for _, rule := range rules {
			action, err := syncRule(ctx, tr, svc, rule)
			if err != nil {
				fmt.Fprintf(out, "  FAIL  %s: %s: %v\n", path, rule.Title, err)
				failures++
				continue
			}
			switch action {
			case eventdef.ActionCreated:
				created++
			case eventdef.ActionUpdated:
				updated++
			}
			fmt.Fprintf(out, "  %-7s %s\n", action, rule.Title)
		}
	}

	fmt.Fprintf(out, "\nResults: %d created, %d updated, %d failed\n", created, updated, failures)
	if failures > 0 {
		return 1
	}
	return 0
}

func syncRule(ctx context.Context, tr *translator.Translator, svc definitionService, rule *wizard.Rule) (string, error) {
	streamID, secondID := streamIDs(rule)
	cfg, err := tr.BuildConfig(streamID, secondID, rule.ConditionType, rule.ConditionParameters)
	if err != nil {
		return "", err
	}

	existing, err := svc.FindByTitle(ctx, rule.Title)
	if errors.Is(err, eventdef.ErrNotFound) {
		_, err := svc.Create(ctx, eventdef.Definition{
			Title:       rule.Title,
			Description: rule.Description,
			Config:      cfg,
		})
		if err != nil {
			return "", err
		}
		return eventdef.ActionCreated, nil
	}
	if err != nil {
		return "", err
	}

	if _, err := svc.Update(ctx, existing.ID, rule.Title, rule.Description, cfg); err != nil {
		return "", err
	}
	return eventdef.ActionUpdated, nil
}
