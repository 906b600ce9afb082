package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ocrweb/internal/logger"
	"ocrweb/internal/model"

	"github.com/gofrs/uuid"
)

// ResultPurger removes the result artifacts of an image.
type ResultPurger interface {
	Purge(imageID string) error
}

// ImageIndex maps image identifiers to stored file names. The storage directory is
// the source of truth; the map is a cache rebuilt by Rescan.
type ImageIndex struct {
	storage *LocalStorage
	logger  *logger.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewImageIndex creates an index over storage and performs an initial scan.
func NewImageIndex(storage *LocalStorage, logger *logger.Logger) (*ImageIndex, error) {
	idx := &ImageIndex{
		storage: storage,
		logger:  logger,
		cache:   make(map[string]string),
	}
	if _, err := idx.Rescan(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add stores an uploaded image under a fresh identifier and registers it.
func (idx *ImageIndex) Add(originalName string, data []byte) (model.Image, error) {
	name := sanitizeName(originalName)
	if name == "" {
		return model.Image{}, fmt.Errorf("filename %q: %w", originalName, model.ErrInvalidInput)
	}
	if len(data) == 0 {
		return model.Image{}, fmt.Errorf("empty file %q: %w", originalName, model.ErrInvalidInput)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to generate image id: %w", err)
	}

	img := model.Image{ID: id.String(), StoredFilename: model.StoredKey(id.String(), name)}
	if err := idx.storage.Put(img.StoredFilename, data); err != nil {
		return model.Image{}, err
	}
	idx.Register(img.ID, img.StoredFilename)

	idx.logger.Info("Stored image %s as %s", name, img.StoredFilename)
	return img, nil
}

// Register records the stored file name of an image.
func (idx *ImageIndex) Register(imageID, storedFilename string) {
	idx.mu.Lock()
	idx.cache[imageID] = storedFilename
	idx.mu.Unlock()
}

// Resolve returns the stored file name of an image, rescanning on a cache miss.
func (idx *ImageIndex) Resolve(imageID string) (string, error) {
	idx.mu.RLock()
	stored, ok := idx.cache[imageID]
	idx.mu.RUnlock()
	if ok {
		return stored, nil
	}

	if _, err := idx.Rescan(); err != nil {
		return "", err
	}

	idx.mu.RLock()
	stored, ok = idx.cache[imageID]
	idx.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	return stored, nil
}

// Lookup returns the cached stored file name without touching the disk.
func (idx *ImageIndex) Lookup(imageID string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	stored, ok := idx.cache[imageID]
	return stored, ok
}

// Path returns the on-disk path of a stored file name.
func (idx *ImageIndex) Path(storedFilename string) string {
	return idx.storage.GetPath(storedFilename)
}

// Rescan rebuilds the cache from the storage directory listing. Files that do not
// follow the "{id}_{name}" pattern are ignored. The listing and the swap happen
// under the cache lock so a concurrent Register is never lost.
func (idx *ImageIndex) Rescan() (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	keys, err := idx.storage.Keys()
	if err != nil {
		return 0, err
	}

	fresh := make(map[string]string, len(keys))
	for _, key := range keys {
		id, _, ok := model.ParseStoredKey(key)
		if !ok {
			continue
		}
		if prev, dup := fresh[id]; dup {
			idx.logger.Warning("Image %s stored twice (%s, %s); keeping %s", id, prev, key, prev)
			continue
		}
		fresh[id] = key
	}

	idx.cache = fresh
	return len(fresh), nil
}

// List returns all known images sorted by stored file name.
func (idx *ImageIndex) List() []model.Image {
	idx.mu.RLock()
	images := make([]model.Image, 0, len(idx.cache))
	for id, stored := range idx.cache {
		images = append(images, model.Image{ID: id, StoredFilename: stored})
	}
	idx.mu.RUnlock()

	sort.Slice(images, func(i, j int) bool {
		return images[i].StoredFilename < images[j].StoredFilename
	})
	return images
}

// IDs returns every known image identifier in List order.
func (idx *ImageIndex) IDs() []string {
	images := idx.List()
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

// Delete removes the stored file of an image and, when purger is not nil, its
// result artifacts.
func (idx *ImageIndex) Delete(imageID string, purger ResultPurger) error {
	stored, err := idx.Resolve(imageID)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	err = idx.storage.Remove(stored)
	if err == nil || errors.Is(err, model.ErrNotFound) {
		delete(idx.cache, imageID)
		err = nil
	}
	idx.mu.Unlock()
	if err != nil {
		return err
	}

	if purger != nil {
		if err := purger.Purge(imageID); err != nil {
			return fmt.Errorf("image %s removed but results kept: %w", imageID, err)
		}
	}

	idx.logger.Info("Deleted image %s (%s)", imageID, stored)
	return nil
}

// sanitizeName reduces an uploaded file name to its base name.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}
