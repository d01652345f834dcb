// Package eventdef stores the event definitions generated from wizard rules
// and announces every change on a message bus.
package eventdef

import (
	"errors"
	"time"

	"alert-wizard/internal/engine"
)

var (
	// ErrNotFound indicates the requested event definition does not exist.
	ErrNotFound = errors.New("eventdef: not found")

	// ErrDuplicateTitle indicates another definition already has the title.
	ErrDuplicateTitle = errors.New("eventdef: duplicate title")

	// ErrInvalidDefinition indicates a definition that cannot be stored.
	ErrInvalidDefinition = errors.New("eventdef: invalid definition")
)

// Defaults for new definitions.
const (
	DefaultPriority = 2
	DefaultBacklog  = 1000
)

// NotificationSettings controls how the engine batches notifications.
type NotificationSettings struct {
	GracePeriodMs int64 `json:"grace_period_ms"`
	BacklogSize   int64 `json:"backlog_size"`
}

// Definition is an event definition: an engine configuration plus the
// metadata the engine needs to raise alerts from it.
type Definition struct {
	ID                   string
	Title                string
	Description          string
	Priority             int
	Alert                bool
	Config               engine.Config
	Notifications        []string
	NotificationSettings NotificationSettings
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Change actions.
const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
	ActionDeleted = "DELETED"
)

// SchemaVersion is the version of the DefinitionChanged payload.
const SchemaVersion = 1

// DefinitionChanged is published after every successful change.
type DefinitionChanged struct {
	DefinitionID  string `json:"definition_id"`
	Title         string `json:"title"`
	Action        string `json:"action"`
	ConfigType    string `json:"config_type,omitempty"`
	UpdatedAt     int64  `json:"updated_at"`
	SchemaVersion int    `json:"schema_version"`
}

func newChange(def *Definition, action string, at time.Time) DefinitionChanged {
	changed := DefinitionChanged{
		DefinitionID:  def.ID,
		Title:         def.Title,
		Action:        action,
		UpdatedAt:     at.Unix(),
		SchemaVersion: SchemaVersion,
	}
	if def.Config != nil {
		changed.ConfigType = def.Config.Type()
	}
	return changed
}
