// Package results persists the detection results of each image in two formats:
// a structured JSON file, which is authoritative, and a tabular CSV file derived
// from its active entries. Both files of one image are always written together
// under that image's lock.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/service/cleaning"
)

// FilenameResolver looks up the stored filename of an image without side effects.
type FilenameResolver interface {
	Lookup(imageID string) (string, bool)
}

// Store owns the structured and tabular result files of every image.
type Store struct {
	dir    string
	images FilenameResolver
	logger *logger.Logger
	locks  keyedMutex
}

// NewStore creates a Store writing into dir. images may be nil.
func NewStore(dir string, images FilenameResolver, logger *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Store{
		dir:    dir,
		images: images,
		logger: logger,
		locks:  keyedMutex{locks: make(map[string]*sync.Mutex)},
	}, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the result set of an image. When the structured file is missing,
// corrupt or empty, the tabular file is parsed instead and the structured file is
// rebuilt from it.
func (s *Store) Load(imageID string) (*model.ResultSet, error) {
	defer s.locks.lock(imageID)()
	return s.loadLocked(imageID)
}

// Replace overwrites the result set of an image. filename is the display filename
// recorded in the structured file; pass "" to derive it.
func (s *Store) Replace(imageID, filename string, entries []model.ResultEntry) error {
	defer s.locks.lock(imageID)()

	set := &model.ResultSet{ImageFilename: filename, Items: cloneEntries(entries)}
	return s.writeLocked(imageID, set)
}

// Patch changes the fields present in patch on the entry at index.
func (s *Store) Patch(imageID string, index int, patch model.EntryPatch) (model.ResultEntry, error) {
	if err := patch.Validate(); err != nil {
		return model.ResultEntry{}, err
	}

	defer s.locks.lock(imageID)()

	set, err := s.loadLocked(imageID)
	if err != nil {
		return model.ResultEntry{}, err
	}
	if index < 0 || index >= len(set.Items) {
		return model.ResultEntry{}, fmt.Errorf("image %s entry %d of %d: %w", imageID, index, len(set.Items), model.ErrOutOfRange)
	}

	patch.Apply(&set.Items[index])
	if err := s.writeLocked(imageID, set); err != nil {
		return model.ResultEntry{}, err
	}
	return set.Items[index].Clone(), nil
}

// Remove marks the entry at index as removed. The entry stays addressable.
func (s *Store) Remove(imageID string, index int) error {
	removed := model.StatusRemoved
	_, err := s.Patch(imageID, index, model.EntryPatch{Status: &removed})
	return err
}

// Clean replaces the entries of an image with the output of the cleaning pipeline.
func (s *Store) Clean(imageID string) (*model.ResultSet, error) {
	defer s.locks.lock(imageID)()

	set, err := s.loadLocked(imageID)
	if err != nil {
		return nil, err
	}

	before := len(set.Items)
	set.Items = cleaning.Clean(set.Items)
	if err := s.writeLocked(imageID, set); err != nil {
		return nil, err
	}

	s.logger.Info("Cleaned results of %s: %d -> %d entries", imageID, before, len(set.Items))
	return set, nil
}

// ExportTabular regenerates the tabular file from the structured file and returns
// its name and content.
func (s *Store) ExportTabular(imageID string) (string, []byte, error) {
	defer s.locks.lock(imageID)()

	set, err := s.loadLocked(imageID)
	if err != nil {
		return "", nil, err
	}

	display := s.displayFilename(imageID, set.ImageFilename)
	data, err := encodeTabular(set, display)
	if err != nil {
		return "", nil, err
	}
	path := s.tabularPath(display)
	if err := writeFileAtomic(path, data); err != nil {
		return "", nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return filepath.Base(path), data, nil
}

// Purge deletes both result files of an image. Missing files are ignored.
func (s *Store) Purge(imageID string) error {
	if err := model.ValidateImageID(imageID); err != nil {
		return err
	}
	defer s.locks.lock(imageID)()

	recorded := ""
	if set, ok := s.readStructured(imageID); ok {
		recorded = set.ImageFilename
	}

	paths := []string{s.structuredPath(imageID), s.tabularPath(s.displayFilename(imageID, recorded))}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// DisplayFilename returns the filename shown for an image: the one recorded in its
// structured file, else the stored filename from the image index, else
// "{imageID}.jpg".
func (s *Store) DisplayFilename(imageID string) string {
	recorded := ""
	if set, ok := s.readStructured(imageID); ok {
		recorded = set.ImageFilename
	}
	return s.displayFilename(imageID, recorded)
}

// ImageIDs lists the images that have a structured result file.
func (s *Store) ImageIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) loadLocked(imageID string) (*model.ResultSet, error) {
	if err := model.ValidateImageID(imageID); err != nil {
		return nil, err
	}
	structured, hasStructured := s.readStructured(imageID)
	if hasStructured && len(structured.Items) > 0 {
		return structured, nil
	}

	recorded := ""
	if hasStructured {
		recorded = structured.ImageFilename
	}
	display := s.displayFilename(imageID, recorded)

	entries, csvName, hasTabular, err := s.readTabular(display)
	if err != nil {
		s.logger.Warning("Ignoring unreadable tabular results of %s: %v", imageID, err)
	}

	switch {
	case hasTabular && (len(entries) > 0 || !hasStructured):
		if recorded == "" {
			recorded = csvName
		}
		set := &model.ResultSet{ImageFilename: s.displayFilename(imageID, recorded), Items: entries}
		if err := writeStructured(s.structuredPath(imageID), set); err != nil {
			s.logger.Error("Failed to rebuild structured results of %s: %v", imageID, err)
		} else {
			s.logger.Warning("Rebuilt structured results of %s from %s", imageID, filepath.Base(s.tabularPath(display)))
		}
		return set, nil
	case hasStructured:
		return structured, nil
	default:
		return nil, fmt.Errorf("results of image %s: %w", imageID, model.ErrNotFound)
	}
}

// writeLocked writes the structured file and then regenerates the tabular file.
// When the tabular write fails the previous structured file is restored so the
// pair stays consistent.
func (s *Store) writeLocked(imageID string, set *model.ResultSet) error {
	if err := model.ValidateImageID(imageID); err != nil {
		return err
	}
	set.ImageFilename = s.displayFilename(imageID, set.ImageFilename)
	if set.Items == nil {
		set.Items = []model.ResultEntry{}
	}

	tabular, err := encodeTabular(set, set.ImageFilename)
	if err != nil {
		return err
	}

	structuredPath := s.structuredPath(imageID)
	previous, readErr := os.ReadFile(structuredPath)

	if err := writeStructured(structuredPath, set); err != nil {
		s.logger.Error("Failed to write structured results of %s: %v", imageID, err)
		return err
	}

	if err := writeFileAtomic(s.tabularPath(set.ImageFilename), tabular); err != nil {
		s.logger.Error("Failed to write tabular results of %s: %v", imageID, err)
		if readErr == nil {
			if rbErr := writeFileAtomic(structuredPath, previous); rbErr != nil {
				s.logger.Error("Failed to restore structured results of %s: %v", imageID, rbErr)
			}
		} else if os.IsNotExist(readErr) {
			os.Remove(structuredPath)
		}
		return fmt.Errorf("failed to write tabular results: %w", err)
	}
	return nil
}

// readStructured returns the parsed structured file. Missing and corrupt files
// both report ok=false.
func (s *Store) readStructured(imageID string) (*model.ResultSet, bool) {
	data, err := os.ReadFile(s.structuredPath(imageID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warning("Failed to read structured results of %s: %v", imageID, err)
		}
		return nil, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}

	var set model.ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		s.logger.Warning("Corrupt structured results of %s: %v", imageID, err)
		return nil, false
	}
	for i := range set.Items {
		if set.Items[i].Status == "" {
			set.Items[i].Status = model.StatusActive
		}
		if c := set.Items[i].Confidence; c != nil {
			set.Items[i].Confidence = model.ConfidencePtr(*c)
		}
	}
	return &set, true
}

func (s *Store) readTabular(display string) ([]model.ResultEntry, string, bool, error) {
	f, err := os.Open(s.tabularPath(display))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}
	defer f.Close()

	entries, filename, err := ReadTabular(f)
	if err != nil {
		return nil, "", false, err
	}
	return entries, filename, true, nil
}

func (s *Store) displayFilename(imageID, recorded string) string {
	if recorded != "" {
		return recorded
	}
	if s.images != nil {
		if stored, ok := s.images.Lookup(imageID); ok && stored != "" {
			return stored
		}
	}
	return imageID + ".jpg"
}

func (s *Store) structuredPath(imageID string) string {
	return filepath.Join(s.dir, imageID+".json")
}

// tabularPath names the tabular file after the display filename with a .csv
// extension.
func (s *Store) tabularPath(display string) string {
	base := filepath.Base(display)
	return filepath.Join(s.dir, strings.TrimSuffix(base, filepath.Ext(base))+".csv")
}

func encodeTabular(set *model.ResultSet, display string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTabular(&buf, set.Items, display); err != nil {
		return nil, fmt.Errorf("failed to encode tabular results: %w", err)
	}
	return buf.Bytes(), nil
}

func writeStructured(path string, set *model.ResultSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode structured results: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileAtomic replaces path through a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func cloneEntries(entries []model.ResultEntry) []model.ResultEntry {
	out := make([]model.ResultEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
		if out[i].Status == "" {
			out[i].Status = model.StatusActive
		}
	}
	return out
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
