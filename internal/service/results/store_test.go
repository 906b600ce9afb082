package results

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ocrweb/internal/logger"
	"ocrweb/internal/model"
)

type fakeIndex map[string]string

func (f fakeIndex) Lookup(imageID string) (string, bool) {
	v, ok := f[imageID]
	return v, ok
}

func setupStore(t *testing.T, index fakeIndex) *Store {
	t.Helper()

	log, err := logger.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	store, err := NewStore(filepath.Join(t.TempDir(), "results"), index, log)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func sampleEntries() []model.ResultEntry {
	return []model.ResultEntry{
		{BBox: model.NewBBox(0, 0, 10, 10), Name: model.StringPtr("Müller"), Confidence: model.FloatPtr(0.91), Status: model.StatusActive},
		{BBox: model.NewBBox(0, 20, 30, 30), Name: model.StringPtr("12345"), Confidence: model.FloatPtr(0.55), Status: model.StatusActive},
		{BBox: model.NewBBox(40, 20, 60, 30), Name: model.StringPtr("SCHRODER"), Confidence: model.FloatPtr(0.3), Status: model.StatusActive},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestStore_ReplaceLoad(t *testing.T) {
	store := setupStore(t, fakeIndex{"img1": "img1_a.jpg"})

	if err := store.Replace("img1", "img1_a.jpg", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if set.ImageFilename != "img1_a.jpg" {
		t.Errorf("Unexpected filename %q", set.ImageFilename)
	}
	if len(set.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(set.Items))
	}
	for i, want := range sampleEntries() {
		got := set.Items[i]
		if got.BBox != want.BBox || got.Text() != want.Text() || *got.Confidence != *want.Confidence || got.Status != model.StatusActive {
			t.Errorf("item %d: got %+v, expected %+v", i, got, want)
		}
	}

	if _, err := os.Stat(filepath.Join(store.Dir(), "img1_a.csv")); err != nil {
		t.Errorf("Expected tabular file named after display filename: %v", err)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := setupStore(t, nil)

	if _, err := store.Load("nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_LoadFallsBackToTabular(t *testing.T) {
	store := setupStore(t, fakeIndex{"img1": "img1_a.jpg"})

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	structured := filepath.Join(store.Dir(), "img1.json")
	if err := os.Remove(structured); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set.Items) != 3 {
		t.Fatalf("Expected 3 recovered items, got %d", len(set.Items))
	}
	if set.ImageFilename != "img1_a.jpg" {
		t.Errorf("Unexpected recovered filename %q", set.ImageFilename)
	}
	if math.Abs(*set.Items[0].Confidence-0.91) > 0.005 {
		t.Errorf("Confidence not recovered: %f", *set.Items[0].Confidence)
	}

	if _, err := os.Stat(structured); err != nil {
		t.Errorf("Expected structured file to be rebuilt: %v", err)
	}
}

func TestStore_CorruptStructuredIsAbsent(t *testing.T) {
	store := setupStore(t, fakeIndex{"img1": "img1_a.jpg"})

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "img1.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set.Items) != 3 {
		t.Errorf("Expected 3 items from tabular fallback, got %d", len(set.Items))
	}
}

func TestStore_EmptyResultSet(t *testing.T) {
	store := setupStore(t, nil)

	if err := store.Replace("img1", "", nil); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(set.Items))
	}
	if set.ImageFilename != "img1.jpg" {
		t.Errorf("Expected placeholder filename, got %q", set.ImageFilename)
	}
}

func TestStore_DisplayFilenameTiers(t *testing.T) {
	store := setupStore(t, fakeIndex{"indexed": "indexed_scan.png"})

	if got := store.DisplayFilename("indexed"); got != "indexed_scan.png" {
		t.Errorf("Expected index filename, got %q", got)
	}
	if got := store.DisplayFilename("unknown"); got != "unknown.jpg" {
		t.Errorf("Expected placeholder, got %q", got)
	}

	if err := store.Replace("indexed", "recorded.jpg", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if got := store.DisplayFilename("indexed"); got != "recorded.jpg" {
		t.Errorf("Expected recorded filename, got %q", got)
	}
	if !strings.Contains(readFile(t, filepath.Join(store.Dir(), "recorded.csv")), ",recorded.jpg") {
		t.Error("Expected Bildname column to carry the recorded filename")
	}
}

func TestStore_PatchAndRemove(t *testing.T) {
	store := setupStore(t, nil)

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	entry, err := store.Patch("img1", 1, model.EntryPatch{Name: model.StringPtr("Schmidt")})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if entry.Text() != "Schmidt" || *entry.Confidence != 0.55 || entry.BBox != sampleEntries()[1].BBox {
		t.Errorf("Patch changed untouched fields: %+v", entry)
	}

	if err := store.Remove("img1", 0); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set.Items) != 3 {
		t.Fatalf("Soft delete must keep the entry, got %d items", len(set.Items))
	}
	if set.Items[0].Status != model.StatusRemoved {
		t.Errorf("Expected entry 0 removed, got %s", set.Items[0].Status)
	}

	csv := readFile(t, filepath.Join(store.Dir(), "img1.csv"))
	if strings.Contains(csv, "Müller") {
		t.Error("Removed entry must not be exported")
	}
	if !strings.Contains(csv, "Schmidt") {
		t.Error("Patched name must be exported")
	}
}

func TestStore_PatchErrors(t *testing.T) {
	store := setupStore(t, nil)

	if _, err := store.Patch("img1", 0, model.EntryPatch{}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	for _, idx := range []int{-1, 3, 100} {
		if err := store.Remove("img1", idx); !errors.Is(err, model.ErrOutOfRange) {
			t.Errorf("Remove(%d): expected ErrOutOfRange, got %v", idx, err)
		}
	}

	bogus := model.Status("archived")
	if _, err := store.Patch("img1", 0, model.EntryPatch{Status: &bogus}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestStore_ConcurrentPatchesKeepAllUpdates(t *testing.T) {
	store := setupStore(t, nil)

	const n = 20
	entries := make([]model.ResultEntry, n)
	for i := range entries {
		entries[i] = model.ResultEntry{BBox: model.NewBBox(i, i, i+5, i+5), Name: model.StringPtr("x"), Status: model.StatusActive}
	}
	if err := store.Replace("img1", "", entries); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := fmt.Sprintf("name-%d", idx)
			if _, err := store.Patch("img1", idx, model.EntryPatch{Name: &name}); err != nil {
				t.Errorf("Patch %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	set, err := store.Load("img1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, e := range set.Items {
		if want := fmt.Sprintf("name-%d", i); e.Text() != want {
			t.Errorf("Lost update at %d: got %q", i, e.Text())
		}
	}
}

func TestStore_Clean(t *testing.T) {
	store := setupStore(t, nil)

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := store.Remove("img1", 0); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	set, err := store.Clean("img1")
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(set.Items) != 1 || set.Items[0].Text() != "Schröder" {
		t.Errorf("Unexpected cleaned entries %+v", set.Items)
	}

	again, err := store.Clean("img1")
	if err != nil {
		t.Fatalf("second Clean failed: %v", err)
	}
	if len(again.Items) != 1 || again.Items[0].Text() != "Schröder" {
		t.Errorf("Clean is not idempotent: %+v", again.Items)
	}
}

func TestStore_ExportAndPurge(t *testing.T) {
	store := setupStore(t, fakeIndex{"img1": "img1_a.jpg"})

	if err := store.Replace("img1", "", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	csvPath := filepath.Join(store.Dir(), "img1_a.csv")
	if err := os.Remove(csvPath); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	name, data, err := store.ExportTabular("img1")
	if err != nil {
		t.Fatalf("ExportTabular failed: %v", err)
	}
	if name != "img1_a.csv" {
		t.Errorf("Unexpected export name %q", name)
	}
	if !strings.HasPrefix(string(data), "bbox,Namen,Confidence Level,Bildname") {
		t.Errorf("Missing header in %q", data)
	}
	if readFile(t, csvPath) != string(data) {
		t.Error("Export must regenerate the tabular file")
	}

	if err := store.Purge("img1"); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := store.Load("img1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after purge, got %v", err)
	}

	ids, err := store.ImageIDs()
	if err != nil {
		t.Fatalf("ImageIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no ids after purge, got %v", ids)
	}
}

// blockTabular puts a non-empty directory where the tabular file of display
// would be written so the rename onto it fails.
func blockTabular(t *testing.T, store *Store, display string) {
	t.Helper()
	dir := store.tabularPath(display)
	os.Remove(dir)
	if err := os.MkdirAll(filepath.Join(dir, "keep"), 0755); err != nil {
		t.Fatalf("Failed to create blocking directory: %v", err)
	}
}

func TestStore_TabularWriteFailureRestoresStructured(t *testing.T) {
	t.Run("patch keeps previous entries", func(t *testing.T) {
		store := setupStore(t, fakeIndex{"img_a": "img_a.jpg"})
		entries := []model.ResultEntry{{BBox: model.NewBBox(0, 0, 5, 5), Name: model.StringPtr("Alpha"), Status: model.StatusActive}}
		if err := store.Replace("img_a", "img_a.jpg", entries); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		blockTabular(t, store, "img_a.jpg")
		if _, err := store.Patch("img_a", 0, model.EntryPatch{Name: model.StringPtr("Beta")}); err == nil {
			t.Fatal("Expected Patch to fail while the tabular file cannot be written")
		}

		set, err := store.Load("img_a")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got := set.Items[0].Text(); got != "Alpha" {
			t.Errorf("Expected name Alpha after failed patch, got %q", got)
		}
	})

	t.Run("first replace leaves no structured file", func(t *testing.T) {
		store := setupStore(t, fakeIndex{"img_b": "img_b.jpg"})
		blockTabular(t, store, "img_b.jpg")

		if err := store.Replace("img_b", "img_b.jpg", sampleEntries()); err == nil {
			t.Fatal("Expected Replace to fail while the tabular file cannot be written")
		}
		if _, err := os.Stat(store.structuredPath("img_b")); !os.IsNotExist(err) {
			t.Errorf("Expected no structured file after failed replace, stat error: %v", err)
		}
		ids, err := store.ImageIDs()
		if err != nil {
			t.Fatalf("ImageIDs failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("Expected no result ids, got %v", ids)
		}
	})
}

func TestStore_PatchedNameSurvivesTabularRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		want  *string
	}{
		{"empty", "", nil},
		{"crlf", "Anna\r\nSchmidt", model.StringPtr("Anna\nSchmidt")},
		{"plain", "Weber", model.StringPtr("Weber")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupStore(t, fakeIndex{"img1": "img1_a.jpg"})
			if err := store.Replace("img1", "img1_a.jpg", sampleEntries()); err != nil {
				t.Fatalf("Replace failed: %v", err)
			}
			patched, err := store.Patch("img1", 0, model.EntryPatch{Name: model.StringPtr(tt.patch)})
			if err != nil {
				t.Fatalf("Patch failed: %v", err)
			}

			if err := os.Remove(store.structuredPath("img1")); err != nil {
				t.Fatalf("Failed to remove structured file: %v", err)
			}
			set, err := store.Load("img1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			for _, got := range []*string{patched.Name, set.Items[0].Name} {
				switch {
				case tt.want == nil && got != nil:
					t.Errorf("Expected no name, got %q", *got)
				case tt.want != nil && (got == nil || *got != *tt.want):
					t.Errorf("Expected name %q, got %v", *tt.want, got)
				}
			}
		})
	}
}

func TestStore_RejectsPathLikeImageIDs(t *testing.T) {
	store := setupStore(t, nil)
	if err := store.Replace("b", "b.jpg", sampleEntries()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	for _, id := range []string{"a/b", `a\b`, "../b", ".b", ""} {
		if err := store.Replace(id, "x.jpg", nil); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Replace(%q): expected ErrInvalidInput, got %v", id, err)
		}
		if _, err := store.Load(id); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Load(%q): expected ErrInvalidInput, got %v", id, err)
		}
		if err := store.Purge(id); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Purge(%q): expected ErrInvalidInput, got %v", id, err)
		}
	}

	set, err := store.Load("b")
	if err != nil || len(set.Items) != 3 {
		t.Errorf("Results of b changed: %+v, %v", set, err)
	}
}
