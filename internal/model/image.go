package model

import (
	"fmt"
	"strings"
)

// Image is one entry of the image index: an opaque identifier and the key of the
// stored file, which is always "{ID}_{original name}".
type Image struct {
	ID             string `json:"image_id"`
	StoredFilename string `json:"stored_filename"`
}

// OriginalName strips the identifier prefix from the stored filename.
func (i Image) OriginalName() string {
	if _, name, ok := strings.Cut(i.StoredFilename, "_"); ok {
		return name
	}
	return i.StoredFilename
}

// StoredKey joins an identifier and an original filename into a storage key.
func StoredKey(imageID, originalName string) string {
	return imageID + "_" + originalName
}

// ParseStoredKey splits a storage key into its identifier and original name.
// Keys without an identifier prefix or without a name are rejected.
func ParseStoredKey(key string) (imageID, originalName string, ok bool) {
	imageID, originalName, ok = strings.Cut(key, "_")
	if !ok || imageID == "" || originalName == "" || strings.HasPrefix(key, ".") {
		return "", "", false
	}
	return imageID, originalName, true
}

// ValidateImageID rejects identifiers that cannot name a file on their own: empty
// ids, ids with path separators and dot-prefixed ids.
func ValidateImageID(imageID string) error {
	if imageID == "" || strings.ContainsAny(imageID, `/\`) || strings.HasPrefix(imageID, ".") {
		return fmt.Errorf("image id %q: %w", imageID, ErrInvalidInput)
	}
	return nil
}
