package repositories

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/shared"
)

// setupTestDB creates a migrated SQLite database in a temp dir
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newDownload(videoID string) *models.Download {
	return models.NewDownload("query "+videoID, videoID, "/cache/"+videoID+".opus", models.Track{
		Artist: "Daft Punk",
		Song:   "One More Time",
		Album:  "Discovery",
		Source: models.SourceMetadata,
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "downloads")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newDownload("abc")

		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}
		if d.ID() == "" {
			t.Error("download ID should be set after creation")
		}
		if d.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", d.Sequence())
		}

		got, err := repo.Get(d.ID())
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}
		if got.Track() != d.Track() {
			t.Errorf("expected track %+v, got %+v", d.Track(), got.Track())
		}
		if got.VideoID() != "abc" || got.Path() != "/cache/abc.opus" || got.Target() != "query abc" {
			t.Errorf("unexpected download %+v", got.Record())
		}
		if !got.CreatedAt().Equal(d.CreatedAt()) {
			t.Errorf("expected created at %v, got %v", d.CreatedAt(), got.CreatedAt())
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		for _, id := range []string{"a", "b", "c"} {
			if err := repo.Create(newDownload(id)); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		all, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 downloads, got %d", len(all))
		}
		if all[0].VideoID() != "c" || all[2].VideoID() != "a" {
			t.Errorf("expected newest first, got %s..%s", all[0].VideoID(), all[2].VideoID())
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 downloads, got %d", len(limited))
		}

		if n, err := repo.Count(); err != nil || n != 3 {
			t.Errorf("expected count 3, got %d (%v)", n, err)
		}
	})

	t.Run("List empty", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		got, err := repo.List(10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no downloads, got %d", len(got))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newDownload("abc")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if err := repo.Delete(d.ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}
		if _, err := repo.Get(d.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestDownloadRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewDownloadRepository(setupTestDB(t))
			d := models.NewDownload("q", "", "/cache/x.opus", models.Track{Source: models.SourceTitle})

			if err := repo.Create(d); err == nil {
				t.Fatal("expected validation error for empty video id")
			}
			if n, _ := repo.Count(); n != 0 {
				t.Errorf("expected nothing stored, got %d rows", n)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewDownloadRepository(setupTestDB(t))
			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewDownloadRepository(setupTestDB(t))
			if err := repo.Delete("nonexistent-id"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})
}

func TestHistoryRecorder(t *testing.T) {
	repo := NewDownloadRepository(setupTestDB(t))
	rec := NewHistoryRecorder(repo)

	track := models.Track{Artist: "A", Song: "B", Source: models.SourceDescription}
	if err := rec.Record("q", "abc", "/cache/abc.opus", track); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := rec.Record("q", "", "/cache/abc.opus", track); err == nil {
		t.Error("expected error for invalid download")
	}

	got, err := repo.List(0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(got) != 1 || got[0].Track() != track {
		t.Errorf("unexpected history %+v", got)
	}
}
