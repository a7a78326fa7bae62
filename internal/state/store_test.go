package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cubestack/cubist/internal/cube"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cubist", "order.json")
	store := NewFileStore(path)

	saved := &ExecutionOrder{
		Tables:    []string{"roles", "users", "posts"},
		Timestamp: time.Now().UTC(),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a stored order")
	}
	if len(loaded.Tables) != 3 || loaded.Tables[0] != "roles" {
		t.Errorf("unexpected tables: %v", loaded.Tables)
	}
	if len(loaded.Seeders) != 0 {
		t.Errorf("expected no seeders, got %v", loaded.Seeders)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "order.json"))

	order, err := store.Load()
	if err != nil {
		t.Fatalf("missing state must not be an error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil order, got %v", order)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	store := NewFileStore(path)

	order, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt state must not be an error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil order for corrupt state, got %v", order)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")
	store := NewFileStore(path)

	if err := store.Save(&ExecutionOrder{Tables: []string{"a", "b"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(&ExecutionOrder{Seeders: []string{"c"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Tables) != 0 {
		t.Errorf("save must fully overwrite, still has tables: %v", loaded.Tables)
	}
	if len(loaded.Seeders) != 1 || loaded.Seeders[0] != "c" {
		t.Errorf("unexpected seeders: %v", loaded.Seeders)
	}
}

func tableFile(name string) *cube.File {
	return &cube.File{
		Path:     "cubes/" + name + ".table.cube",
		Name:     name,
		Category: cube.CategoryTable,
	}
}

func TestReorder_FollowsStoredOrder(t *testing.T) {
	order := &ExecutionOrder{Tables: []string{"roles", "users", "posts"}}
	files := []*cube.File{tableFile("posts"), tableFile("roles"), tableFile("users")}

	got := Reorder(order, files)
	want := []string{"roles", "users", "posts"}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i].Name, want[i])
		}
	}
}

func TestReorder_UnknownNamesAppended(t *testing.T) {
	order := &ExecutionOrder{Tables: []string{"roles"}}
	files := []*cube.File{tableFile("tags"), tableFile("roles"), tableFile("media")}

	got := Reorder(order, files)
	want := []string{"roles", "tags", "media"}
	if len(got) != 3 {
		t.Fatalf("expected 3 files, got %d", len(got))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i].Name, want[i])
		}
	}
}

func TestReorder_Idempotent(t *testing.T) {
	order := &ExecutionOrder{Tables: []string{"roles", "users"}}
	files := []*cube.File{tableFile("users"), tableFile("roles"), tableFile("tags")}

	once := Reorder(order, files)
	twice := Reorder(order, once)

	if len(once) != len(twice) {
		t.Fatalf("length changed on second pass: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Name != twice[i].Name {
			t.Errorf("position %d changed: %q vs %q", i, once[i].Name, twice[i].Name)
		}
	}
}

func TestReorder_NilOrderPassthrough(t *testing.T) {
	files := []*cube.File{tableFile("b"), tableFile("a")}

	got := Reorder(nil, files)
	if got[0].Name != "b" || got[1].Name != "a" {
		t.Errorf("nil order must keep the scan order, got %v", got)
	}
}

func TestReorder_DuplicateNamesFirstWins(t *testing.T) {
	order := &ExecutionOrder{Tables: []string{"users"}}
	first := tableFile("users")
	second := tableFile("users")
	second.Path = "cubes/extra/users.table.cube"

	got := Reorder(order, []*cube.File{first, second})
	if len(got) != 1 {
		t.Fatalf("expected duplicate dropped, got %d files", len(got))
	}
	if got[0].Path != first.Path {
		t.Errorf("expected first occurrence kept, got %s", got[0].Path)
	}
}
