// Package alertlist stores named value lists that alert conditions can
// reference, and moves them between installations as export bundles.
package alertlist

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTitle is returned for an empty list title.
	ErrInvalidTitle = errors.New("invalid alert list title")

	// ErrDuplicateTitle is returned when another list already uses the title.
	ErrDuplicateTitle = errors.New("alert list title already exists")

	// ErrNotFound is returned when no list has the requested title.
	ErrNotFound = errors.New("alert list not found")
)

// List is a named set of values. Lists holds the values in their stored
// textual form, one value per line.
type List struct {
	Title         string    `json:"title" yaml:"title" validate:"required,max=255"`
	Description   string    `json:"description" yaml:"description" validate:"max=4096"`
	Lists         string    `json:"lists" yaml:"lists"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	CreatorUserID string    `json:"creator_user_id" yaml:"creator_user_id"`
	Usage         int       `json:"usage" yaml:"usage" validate:"gte=0"`
}

// IsValidTitle reports whether title can name a list.
func IsValidTitle(title string) bool {
	return title != ""
}
