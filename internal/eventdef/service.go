package eventdef

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"alert-wizard/internal/engine"
)

// Store persists event definitions.
type Store interface {
	Insert(ctx context.Context, def *Definition) error
	Get(ctx context.Context, id string) (*Definition, error)
	GetByTitle(ctx context.Context, title string) (*Definition, error)
	Update(ctx context.Context, def *Definition) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Definition, error)
}

// Publisher announces definition changes.
type Publisher interface {
	Publish(ctx context.Context, changed DefinitionChanged) error
}

// NopPublisher discards every change.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, DefinitionChanged) error { return nil }

// Service creates, updates and deletes event definitions.
type Service struct {
	store     Store
	publisher Publisher
	backlog   int64
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. A nil publisher disables change
// notifications; a non-positive backlog falls back to DefaultBacklog.
func NewService(store Store, publisher Publisher, backlog int64, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		backlog:   backlog,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new alerting definition. ID, priority, alert flag and
// notification settings are assigned here; title, description, config and
// notifications come from def.
func (s *Service) Create(ctx context.Context, def Definition) (*Definition, error) {
	if def.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidDefinition)
	}
	if def.Config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidDefinition)
	}

	now := s.now()
	created := &Definition{
		ID:            uuid.NewString(),
		Title:         def.Title,
		Description:   def.Description,
		Priority:      DefaultPriority,
		Alert:         true,
		Config:        def.Config,
		Notifications: nonNil(def.Notifications),
		NotificationSettings: NotificationSettings{
			GracePeriodMs: 0,
			BacklogSize:   s.backlog,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Debug("creating event definition", "title", created.Title, "config_type", created.Config.Type())
	if err := s.store.Insert(ctx, created); err != nil {
		return nil, err
	}

	s.publish(ctx, created, ActionCreated)
	return created, nil
}

// Get returns the definition with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Definition, error) {
	return s.store.Get(ctx, id)
}

// FindByTitle returns the definition with the given title.
func (s *Service) FindByTitle(ctx context.Context, title string) (*Definition, error) {
	return s.store.GetByTitle(ctx, title)
}

// List returns every definition.
func (s *Service) List(ctx context.Context) ([]*Definition, error) {
	return s.store.List(ctx)
}

// Update replaces the title, description and configuration of a definition.
// Everything else is kept as stored.
func (s *Service) Update(ctx context.Context, id, title, description string, cfg engine.Config) (*Definition, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidDefinition)
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if title != "" {
		updated.Title = title
	}
	updated.Description = description
	updated.Config = cfg
	updated.UpdatedAt = s.now()

	s.logger.Debug("updating event definition", "id", id, "title", updated.Title)
	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.publish(ctx, &updated, ActionUpdated)
	return &updated, nil
}

// Delete removes a definition.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, existing, ActionDeleted)
	return nil
}

// publish logs publishing failures; they never fail the operation.
func (s *Service) publish(ctx context.Context, def *Definition, action string) {
	changed := newChange(def, action, s.now())
	if err := s.publisher.Publish(ctx, changed); err != nil {
		s.logger.Error("failed to publish definition change",
			"error", err,
			"definition_id", def.ID,
			"action", action,
		)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
