package media

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cutroom/cutroom-engine/internal/db"
)

func setupLibrary(t *testing.T) (*Library, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewLibrary(database.Conn()), database.Conn()
}

func TestLibrary_RegisterAndGet(t *testing.T) {
	lib, _ := setupLibrary(t)
	ctx := context.Background()

	asset := &Asset{Filename: "interview.mp4", Duration: 93.5}
	if err := lib.Register(ctx, asset); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if asset.ID == "" {
		t.Fatal("Register() did not assign an id")
	}
	if asset.Kind != "video" {
		t.Errorf("asset.Kind = %s, want default video", asset.Kind)
	}

	got, err := lib.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("registered asset not found")
	}
	if got.Filename != "interview.mp4" || got.Duration != 93.5 {
		t.Errorf("asset = %+v", got)
	}
}

func TestLibrary_Exists(t *testing.T) {
	lib, _ := setupLibrary(t)
	ctx := context.Background()

	exists, err := lib.Exists(ctx, "nothing")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for unknown id")
	}

	asset := &Asset{Filename: "roll-b.mov", Kind: "video"}
	if err := lib.Register(ctx, asset); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	exists, err = lib.Exists(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false for registered asset")
	}
}

func TestLibrary_Get_Missing(t *testing.T) {
	lib, _ := setupLibrary(t)

	got, err := lib.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("Get() should return nil for a missing asset")
	}
}

func TestLibrary_List(t *testing.T) {
	lib, _ := setupLibrary(t)
	ctx := context.Background()

	for _, name := range []string{"a.mp4", "b.wav", "c.srt"} {
		if err := lib.Register(ctx, &Asset{Filename: name}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	assets, err := lib.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(assets) != 3 {
		t.Errorf("got %d assets, want 3", len(assets))
	}
}

func TestLibrary_Delete(t *testing.T) {
	lib, _ := setupLibrary(t)
	ctx := context.Background()

	asset := &Asset{Filename: "scrap.mp4"}
	if err := lib.Register(ctx, asset); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := lib.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	exists, err := lib.Exists(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("asset still exists after Delete()")
	}
}
