package remote

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/daybook-sh/daybook/internal/journal"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func TestInsertAndFetch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row := Row{
		UserID:    "user-1",
		Date:      "2025-06-15",
		Title:     "Title",
		Content:   "Body",
		Moods:     []string{"happy", "tired"},
		Files:     []journal.Attachment{{URI: "file:///a.png", Type: "image/png", Name: "a.png"}},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := db.Insert(ctx, &row); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if row.ID == "" {
		t.Error("Insert did not assign an id")
	}
	if row.CreatedAt.IsZero() {
		t.Error("Insert did not assign created_at")
	}

	got, err := db.FetchAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}

	r := got[0]
	if r.ID != row.ID || r.Title != "Title" || r.Content != "Body" {
		t.Errorf("fetched row differs: %+v", r)
	}
	if !reflect.DeepEqual(r.Moods, row.Moods) {
		t.Errorf("moods = %v, want %v", r.Moods, row.Moods)
	}
	if !reflect.DeepEqual(r.Files, row.Files) {
		t.Errorf("files = %v, want %v", r.Files, row.Files)
	}
}

func TestInsertSameDayAdoptsExistingRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := Row{UserID: "user-1", Date: "2025-06-15", Content: "device A"}
	if err := db.Insert(ctx, &first); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	second := Row{UserID: "user-1", Date: "2025-06-15", Content: "device B"}
	if err := db.Insert(ctx, &second); err != nil {
		t.Fatalf("second Insert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("concurrent insert minted a new id: %s != %s", second.ID, first.ID)
	}

	n, err := db.CountForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountForUser failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected a single row per (user, day), got %d", n)
	}
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row := Row{UserID: "user-1", Date: "2025-06-15", Content: "v1"}
	if err := db.Insert(ctx, &row); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	row.Content = "v2"
	row.Moods = []string{"sad"}
	row.UpdatedAt = time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	if err := db.Update(ctx, &row); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := db.FetchAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if got[0].Content != "v2" || !reflect.DeepEqual(got[0].Moods, []string{"sad"}) {
		t.Errorf("update not applied: %+v", got[0])
	}
	if !got[0].UpdatedAt.Equal(row.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", got[0].UpdatedAt, row.UpdatedAt)
	}
}

func TestUpdateMissingRow(t *testing.T) {
	db := setupTestDB(t)

	err := db.Update(context.Background(), &Row{ID: "nope", Date: "2025-06-15"})
	if err == nil {
		t.Error("Update of a missing row should fail")
	}
}

func TestFetchAllScopedByUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, r := range []Row{
		{UserID: "user-1", Date: "2025-06-15", Content: "mine"},
		{UserID: "user-2", Date: "2025-06-15", Content: "theirs"},
	} {
		row := r
		if err := db.Insert(ctx, &row); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := db.FetchAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "mine" {
		t.Errorf("fetch leaked rows across users: %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row := Row{UserID: "user-1", Date: "2025-06-15"}
	if err := db.Insert(ctx, &row); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := db.Delete(ctx, row.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := db.Delete(ctx, row.ID); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}

	n, err := db.CountForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountForUser failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows after delete, got %d", n)
	}
}

func TestRowEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	r := Row{
		ID:        "r1",
		Date:      "2025-06-15",
		Title:     "T",
		Content:   "C",
		Moods:     []string{"happy"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	e := r.Entry()
	if !e.Synced {
		t.Error("row-derived entry must be synced")
	}
	if e.RemoteID != "r1" || e.Content != "C" || !e.UpdatedAt.Equal(now) {
		t.Errorf("entry conversion lost fields: %+v", e)
	}
}
