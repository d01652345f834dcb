package eventdef

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"alert-wizard/internal/engine"
)

// memoryStore is an in-memory Store with the same title uniqueness rule as
// the PostgreSQL table.
type memoryStore struct {
	mu   sync.Mutex
	defs map[string]*Definition
}

func newMemoryStore() *memoryStore {
	return &memoryStore{defs: make(map[string]*Definition)}
}

func (m *memoryStore) titleTaken(title, exceptID string) bool {
	for id, d := range m.defs {
		if d.Title == title && id != exceptID {
			return true
		}
	}
	return false
}

func (m *memoryStore) Insert(_ context.Context, def *Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.titleTaken(def.Title, "") {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, def.Title)
	}
	copied := *def
	m.defs[def.ID] = &copied
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memoryStore) GetByTitle(_ context.Context, title string) (*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.defs {
		if d.Title == title {
			copied := *d
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) Update(_ context.Context, def *Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[def.ID]; !ok {
		return ErrNotFound
	}
	if m.titleTaken(def.Title, def.ID) {
		return ErrDuplicateTitle
	}
	copied := *def
	m.defs[def.ID] = &copied
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[id]; !ok {
		return ErrNotFound
	}
	delete(m.defs, id)
	return nil
}

func (m *memoryStore) List(_ context.Context) ([]*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Definition, 0, len(m.defs))
	for _, d := range m.defs {
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []DefinitionChanged
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, changed DefinitionChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, changed)
	return nil
}

func countConfig(threshold int) engine.Config {
	return &engine.AggregationCountConfig{Stream: "s1", ThresholdType: "MORE", Threshold: threshold}
}

func TestService_Create(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemoryStore(), pub, 250, nil)

	def, err := svc.Create(context.Background(), Definition{
		Title:         "Port scan",
		Description:   "many ports",
		Config:        countConfig(20),
		Notifications: []string{"notif-1"},
		Priority:      9,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if def.ID == "" {
		t.Error("expected a generated ID")
	}
	if def.Priority != DefaultPriority || !def.Alert {
		t.Errorf("Priority = %d, Alert = %v, want %d/true", def.Priority, def.Alert, DefaultPriority)
	}
	if def.NotificationSettings.GracePeriodMs != 0 || def.NotificationSettings.BacklogSize != 250 {
		t.Errorf("NotificationSettings = %+v", def.NotificationSettings)
	}

	if len(pub.changes) != 1 {
		t.Fatalf("published %d changes, want 1", len(pub.changes))
	}
	change := pub.changes[0]
	if change.Action != ActionCreated || change.DefinitionID != def.ID || change.ConfigType != engine.TypeAggregationCount {
		t.Errorf("unexpected change: %+v", change)
	}
	if change.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d", change.SchemaVersion)
	}
}

func TestService_CreateInvalid(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, 0, nil)

	tests := []struct {
		name string
		def  Definition
	}{
		{"missing title", Definition{Config: countConfig(1)}},
		{"missing config", Definition{Title: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.def); !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Create() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemoryStore(), pub, 0, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Definition{Title: "dup", Config: countConfig(1)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, Definition{Title: "dup", Config: countConfig(2)}); !errors.Is(err, ErrDuplicateTitle) {
		t.Errorf("Create() error = %v, want ErrDuplicateTitle", err)
	}
	if len(pub.changes) != 1 {
		t.Errorf("published %d changes, want 1", len(pub.changes))
	}
}

func TestService_Update(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemoryStore(), pub, 0, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Definition{Title: "old", Config: countConfig(1), Notifications: []string{"n"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, "new", "described", countConfig(7))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.ID != created.ID || updated.Priority != created.Priority || !updated.Alert {
		t.Errorf("identity fields changed: %+v", updated)
	}
	if updated.Title != "new" || updated.Description != "described" {
		t.Errorf("Title/Description = %q/%q", updated.Title, updated.Description)
	}
	if len(updated.Notifications) != 1 || updated.NotificationSettings != created.NotificationSettings {
		t.Errorf("notifications not kept: %+v", updated)
	}

	stored, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Config.(*engine.AggregationCountConfig).Threshold != 7 {
		t.Errorf("stored threshold = %d, want 7", stored.Config.(*engine.AggregationCountConfig).Threshold)
	}

	if len(pub.changes) != 2 || pub.changes[1].Action != ActionUpdated || pub.changes[1].Title != "new" {
		t.Errorf("unexpected changes: %+v", pub.changes)
	}

	if _, err := svc.Update(ctx, "missing", "x", "", countConfig(1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() of missing definition error = %v, want ErrNotFound", err)
	}
}

func TestService_UpdateKeepsTitleWhenEmpty(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, 0, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Definition{Title: "keep", Config: countConfig(1)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	updated, err := svc.Update(ctx, created.ID, "", "", countConfig(2))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "keep" {
		t.Errorf("Title = %q, want keep", updated.Title)
	}
}

func TestService_Delete(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemoryStore(), pub, 0, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Definition{Title: "gone", Config: countConfig(1)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.FindByTitle(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByTitle() error = %v, want ErrNotFound", err)
	}
	last := pub.changes[len(pub.changes)-1]
	if last.Action != ActionDeleted || last.Title != "gone" {
		t.Errorf("unexpected change: %+v", last)
	}

	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestService_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(newMemoryStore(), pub, 0, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Definition{Title: "t", Config: countConfig(1)}); err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	defs, err := svc.List(ctx)
	if err != nil || len(defs) != 1 {
		t.Errorf("List() = %d definitions, %v", len(defs), err)
	}
}

type fakeProducer struct {
	key   string
	value any
	err   error
}

func (p *fakeProducer) ProduceJSON(_ context.Context, key string, value any) error {
	p.key, p.value = key, value
	return p.err
}

func TestKafkaPublisher(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaPublisher(producer)

	changed := DefinitionChanged{DefinitionID: "id-9", Action: ActionUpdated}
	if err := pub.Publish(context.Background(), changed); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if producer.key != "id-9" {
		t.Errorf("key = %q, want id-9", producer.key)
	}
	if got, ok := producer.value.(DefinitionChanged); !ok || got != changed {
		t.Errorf("value = %#v", producer.value)
	}

	producer.err = errors.New("unavailable")
	if err := pub.Publish(context.Background(), changed); !errors.Is(err, producer.err) {
		t.Errorf("Publish() error = %v, want wrapped producer error", err)
	}
}
