// Package export bundles the tabular result files into a single archive.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveName is the download name of the archive.
const ArchiveName = "results.zip"

// TabularFiles lists the tabular files in dir by name. Hidden and temporary
// files are skipped.
func TabularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// WriteArchive writes every tabular file in dir as a flat zip archive to w and
// returns how many files it contains. Files are read as they are on disk.
func WriteArchive(w io.Writer, dir string) (int, error) {
	names, err := TabularFiles(dir)
	if err != nil {
		return 0, err
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	return len(names), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return nil
}
