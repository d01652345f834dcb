package alertlist

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

// BundleVersion is the format version written into export bundles.
const BundleVersion = 1

// Bundle is a portable set of exported lists.
type Bundle struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Lists      []List    `json:"lists"`
}

// Titles returns the titles of the bundled lists in bundle order.
func (b *Bundle) Titles() []string {
	titles := make([]string, len(b.Lists))
	for i, l := range b.Lists {
		titles[i] = l.Title
	}
	return titles
}

// ObjectStore reads and writes whole objects. *s3.Client satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// BundleStore saves export bundles as JSON objects.
type BundleStore struct {
	objects ObjectStore
	dir     string
}

// NewBundleStore creates a BundleStore writing under dir.
func NewBundleStore(objects ObjectStore, dir string) *BundleStore {
	return &BundleStore{objects: objects, dir: dir}
}

// Key returns the object key used for a bundle name.
func (s *BundleStore) Key(name string) string {
	return path.Join(s.dir, name+".json")
}

// Save writes the bundle and returns its location.
func (s *BundleStore) Save(ctx context.Context, name string, bundle *Bundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	location, err := s.objects.PutObject(ctx, s.Key(name), data, "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to save bundle %s: %w", name, err)
	}
	return location, nil
}

// Fetch reads a bundle saved under name.
func (s *BundleStore) Fetch(ctx context.Context, name string) (*Bundle, error) {
	data, err := s.objects.GetObject(ctx, s.Key(name))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle %s: %w", name, err)
	}
	return DecodeBundle(data)
}

// DecodeBundle parses a JSON bundle and rejects unknown versions.
func DecodeBundle(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if bundle.Version != BundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", bundle.Version)
	}
	return &bundle, nil
}
