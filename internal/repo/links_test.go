package repo

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"shortr/internal"
	"shortr/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbInstance, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "shortr.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { dbInstance.Close() })
	return dbInstance
}

func TestCreateAndGetByCode(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(newTestDB(t))

	created, err := links.Create(ctx, "abc123", "example.com/page")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ClickCount != 0 {
		t.Errorf("expected click count 0 on creation, got %d", created.ClickCount)
	}
	if created.CreatedAt.Time().IsZero() || created.UpdatedAt.Time().IsZero() {
		t.Error("expected timestamps to be set on creation")
	}

	fetched, err := links.GetByCode(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if fetched.ID != created.ID {
		t.Errorf("expected id %d, got %d", created.ID, fetched.ID)
	}
	if fetched.OriginalLink != "example.com/page" {
		t.Errorf("expected stored link to stay as given, got %q", fetched.OriginalLink)
	}
}

func TestCreateDuplicateCode(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(newTestDB(t))

	if _, err := links.Create(ctx, "abc123", "example.com"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := links.Create(ctx, "abc123", "example.org")
	if !errors.Is(err, internal.ErrCodeExists) {
		t.Fatalf("expected ErrCodeExists for duplicate code, got %v", err)
	}
}

func TestGetByCodeNotFound(t *testing.T) {
	links := NewLinksRepo(newTestDB(t))

	_, err := links.GetByCode(context.Background(), "doesnotexist")
	if !errors.Is(err, internal.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestIncrementClicks(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(newTestDB(t))

	if _, err := links.Create(ctx, "abc123", "example.com"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := links.IncrementClicks(ctx, "abc123")
	if err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if first.ClickCount != 1 {
		t.Errorf("expected click count 1, got %d", first.ClickCount)
	}

	second, err := links.IncrementClicks(ctx, "abc123")
	if err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if second.ClickCount != 2 {
		t.Errorf("expected click count 2, got %d", second.ClickCount)
	}
}

func TestIncrementClicksNotFound(t *testing.T) {
	links := NewLinksRepo(newTestDB(t))

	_, err := links.IncrementClicks(context.Background(), "doesnotexist")
	if !errors.Is(err, internal.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

// Lost updates would show up here if the increment were a
// read-modify-write instead of a single UPDATE.
func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(newTestDB(t))

	if _, err := links.Create(ctx, "abc123", "example.com"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const visits = 20
	var wg sync.WaitGroup
	errs := make(chan error, visits)
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := links.IncrementClicks(ctx, "abc123"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent IncrementClicks failed: %v", err)
	}

	link, err := links.GetByCode(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if link.ClickCount != visits {
		t.Errorf("expected click count %d after %d concurrent visits, got %d", visits, visits, link.ClickCount)
	}
}
