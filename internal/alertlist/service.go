package alertlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Service manages alert lists on top of a Store.
type Service struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) check(list *List) error {
	if list == nil || !IsValidTitle(list.Title) {
		return ErrInvalidTitle
	}
	if err := s.validate.Struct(list); err != nil {
		return fmt.Errorf("invalid alert list %q: %w", list.Title, err)
	}
	return nil
}

// IsValidTitle reports whether title can name a list.
func (s *Service) IsValidTitle(title string) bool {
	return IsValidTitle(title)
}

// Create stores a new list. A zero CreatedAt is set to now.
func (s *Service) Create(ctx context.Context, list *List) (*List, error) {
	if err := s.check(list); err != nil {
		return nil, err
	}
	created := *list
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now()
	}
	if err := s.store.Create(ctx, &created); err != nil {
		return nil, err
	}
	s.logger.Debug("created alert list", "title", created.Title)
	return &created, nil
}

// Update replaces the list stored under title. CreatedAt, the creator and
// the usage count are kept from the stored list.
func (s *Service) Update(ctx context.Context, title string, list *List) (*List, error) {
	if err := s.check(list); err != nil {
		return nil, err
	}
	existing, err := s.store.Load(ctx, title)
	if err != nil {
		return nil, err
	}

	updated := *list
	updated.CreatedAt = existing.CreatedAt
	updated.CreatorUserID = existing.CreatorUserID
	updated.Usage = existing.Usage

	if err := s.store.Update(ctx, title, &updated); err != nil {
		return nil, err
	}
	s.logger.Debug("updated alert list", "title", title, "new_title", updated.Title)
	return &updated, nil
}

// Load returns the list with the given title.
func (s *Service) Load(ctx context.Context, title string) (*List, error) {
	return s.store.Load(ctx, title)
}

// All returns every list ordered by title.
func (s *Service) All(ctx context.Context) ([]*List, error) {
	return s.store.All(ctx)
}

// Delete removes the list and returns the number of removed lists.
func (s *Service) Delete(ctx context.Context, title string) (int, error) {
	n, err := s.store.Delete(ctx, title)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("deleted alert list", "title", title)
	}
	return n, nil
}

// IsPresent reports whether a list with the title exists.
func (s *Service) IsPresent(ctx context.Context, title string) (bool, error) {
	return s.store.IsPresent(ctx, title)
}

// Count returns the number of stored lists.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Export bundles the named lists. Every title must exist.
func (s *Service) Export(ctx context.Context, titles []string) (*Bundle, error) {
	bundle := &Bundle{
		Version:    BundleVersion,
		ExportedAt: s.now(),
		Lists:      make([]List, 0, len(titles)),
	}
	for _, title := range titles {
		list, err := s.store.Load(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("failed to export: %w", err)
		}
		bundle.Lists = append(bundle.Lists, *list)
	}
	return bundle, nil
}

// ImportResult lists what an import created and what it left alone.
type ImportResult struct {
	Imported []string
	Skipped  []string
}

// Import creates each bundled list under creatorUserID. Lists whose title
// already exists are skipped and keep their stored content; usage starts
// at zero.
func (s *Service) Import(ctx context.Context, bundle *Bundle, creatorUserID string) (*ImportResult, error) {
	if bundle == nil {
		return nil, errors.New("no bundle to import")
	}

	result := &ImportResult{Imported: []string{}, Skipped: []string{}}
	for _, l := range bundle.Lists {
		list := List{
			Title:         l.Title,
			Description:   l.Description,
			Lists:         l.Lists,
			CreatorUserID: creatorUserID,
		}
		_, err := s.Create(ctx, &list)
		switch {
		case err == nil:
			result.Imported = append(result.Imported, l.Title)
		case errors.Is(err, ErrDuplicateTitle):
			s.logger.Info("skipping existing alert list", "title", l.Title)
			result.Skipped = append(result.Skipped, l.Title)
		default:
			return result, fmt.Errorf("failed to import %q: %w", l.Title, err)
		}
	}
	return result, nil
}
