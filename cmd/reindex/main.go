// Command reindex rebuilds the image index from the image directory and
// regenerates every tabular result file from its structured file.
package main

import (
	"flag"
	"fmt"
	"log"

	"ocrweb/internal/config"
	"ocrweb/internal/logger"
	"ocrweb/internal/service/results"
	"ocrweb/internal/service/storage"
)

func main() {
	cfg := config.Load()
	imagesDir := flag.String("images", cfg.ImageDirectory, "Directory containing stored images")
	resultsDir := flag.String("results", cfg.ResultsDirectory, "Directory containing result files")
	logDir := flag.String("logs", cfg.LogDirectory, "Log directory")
	flag.Parse()

	logs, err := logger.New(*logDir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logs.Close()

	fmt.Printf("Reindexing images in %s and results in %s\n", *imagesDir, *resultsDir)

	local, err := storage.NewLocalStorage(*imagesDir)
	if err != nil {
		log.Fatalf("Failed to open image directory: %v", err)
	}
	index, err := storage.NewImageIndex(local, logs)
	if err != nil {
		log.Fatalf("Failed to scan images: %v", err)
	}
	fmt.Printf("Found %d images\n", len(index.IDs()))

	store, err := results.NewStore(*resultsDir, index, logs)
	if err != nil {
		log.Fatalf("Failed to open results directory: %v", err)
	}

	ids, err := store.ImageIDs()
	if err != nil {
		log.Fatalf("Failed to list results: %v", err)
	}

	regenerated, failed := 0, 0
	for _, id := range ids {
		name, _, err := store.ExportTabular(id)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", id, err)
			failed++
			continue
		}
		if _, ok := index.Lookup(id); !ok {
			log.Printf("⚠️  %s has results but no stored image", id)
		}
		fmt.Printf("  %s -> %s\n", id, name)
		regenerated++
	}

	fmt.Printf("✅ Regenerated %d tabular file(s), %d failed\n", regenerated, failed)
}
