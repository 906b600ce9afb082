package main

import (
	"log"

	"ocrweb/internal/app"
	"ocrweb/internal/config"
)

func main() {
	application, err := app.NewApp(config.Load())
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
