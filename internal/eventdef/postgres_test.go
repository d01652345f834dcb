package eventdef

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"alert-wizard/internal/engine"
)

var definitionColumns = []string{
	"id", "title", "description", "priority", "alert", "config", "notifications",
	"grace_period_ms", "backlog_size", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func sampleDefinition() *Definition {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Definition{
		ID:       "6f1c2d9e-0000-4000-8000-000000000001",
		Title:    "Brute force",
		Priority: DefaultPriority,
		Alert:    true,
		Config: &engine.AggregationCountConfig{
			Stream:         "s1",
			ThresholdType:  "MORE",
			Threshold:      5,
			SearchWithinMs: 300000,
			ExecuteEveryMs: 60000,
		},
		Notifications:        []string{"n1"},
		NotificationSettings: NotificationSettings{BacklogSize: 1000},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS event_definitions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_Insert(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "successful insert",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO event_definitions").
					WithArgs("6f1c2d9e-0000-4000-8000-000000000001", "Brute force", "", DefaultPriority, true,
						engine.TypeAggregationCount, sqlmock.AnyArg(), sqlmock.AnyArg(),
						int64(0), int64(1000), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "duplicate title",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO event_definitions").
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: ErrDuplicateTitle,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO event_definitions").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := store.Insert(context.Background(), sampleDefinition())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Insert() error = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresStore_Get(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	config := `{"type":"correlation-count","stream":"s1","additional_stream":"s2","messages_order":"AFTER","threshold":1}`

	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM event_definitions WHERE id = \\$1").
			WithArgs("id-1").
			WillReturnRows(sqlmock.NewRows(definitionColumns).
				AddRow("id-1", "Login then exfil", "desc", 2, true, []byte(config), "{n1,n2}",
					int64(0), int64(500), created, created))

		def, err := store.Get(context.Background(), "id-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		corr, ok := def.Config.(*engine.CorrelationCountConfig)
		if !ok {
			t.Fatalf("Config = %T, want *CorrelationCountConfig", def.Config)
		}
		if corr.AdditionalStream != "s2" || corr.MessagesOrder != engine.MessagesOrderAfter {
			t.Errorf("unexpected config: %+v", corr)
		}
		if len(def.Notifications) != 2 || def.Notifications[1] != "n2" {
			t.Errorf("Notifications = %v", def.Notifications)
		}
		if def.NotificationSettings.BacklogSize != 500 {
			t.Errorf("BacklogSize = %d, want 500", def.NotificationSettings.BacklogSize)
		}
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM event_definitions WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("corrupt config", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM event_definitions WHERE id = \\$1").
			WithArgs("id-2").
			WillReturnRows(sqlmock.NewRows(definitionColumns).
				AddRow("id-2", "t", "", 2, true, []byte(`{"stream":"s1"}`), "{}",
					int64(0), int64(0), created, created))

		if _, err := store.Get(context.Background(), "id-2"); err == nil {
			t.Error("Get() should fail on a config without type")
		}
	})
}

func TestPostgresStore_GetByTitle(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM event_definitions WHERE title = \\$1").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(definitionColumns))

	if _, err := store.GetByTitle(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByTitle() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Update(t *testing.T) {
	tests := []struct {
		name    string
		result  sql.Result
		err     error
		wantErr error
	}{
		{"updated", sqlmock.NewResult(0, 1), nil, nil},
		{"missing row", sqlmock.NewResult(0, 0), nil, ErrNotFound},
		{"title taken", nil, &pq.Error{Code: "23505"}, ErrDuplicateTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			exp := mock.ExpectExec("UPDATE event_definitions").
				WithArgs("6f1c2d9e-0000-4000-8000-000000000001", "Brute force", "",
					engine.TypeAggregationCount, sqlmock.AnyArg(), sqlmock.AnyArg())
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := store.Update(context.Background(), sampleDefinition())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM event_definitions WHERE id = \\$1").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM event_definitions WHERE id = \\$1").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "id-1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete(context.Background(), "id-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM event_definitions ORDER BY title").
		WillReturnRows(sqlmock.NewRows(definitionColumns).
			AddRow("a", "A", "", 2, true, []byte(`{"type":"aggregation-count","stream":"s"}`), "{}", int64(0), int64(1000), now, now).
			AddRow("b", "B", "", 2, true, []byte(`{"type":"aggregation-v1","series":[]}`), nil, int64(0), int64(1000), now, now))

	defs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len = %d, want 2", len(defs))
	}
	if defs[1].Config.Type() != engine.TypeAggregationSeries {
		t.Errorf("Type() = %q", defs[1].Config.Type())
	}
	if defs[1].Notifications == nil {
		t.Error("Notifications must not be nil")
	}
}
