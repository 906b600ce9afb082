package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// maxUploadMB caps MAX_UPLOAD_MB so the byte limit cannot overflow.
const maxUploadMB = 1 << 20

type Config struct {
	Port              int
	DataDirectory     string
	ImageDirectory    string
	ResultsDirectory  string
	LogDirectory      string
	StaticDirectory   string
	ProcessingWorkers int    // Number of detection workers
	QueueCapacity     int    // Pending jobs before Submit blocks
	OCRLanguage       string // Tesseract language code
	OCRPreprocess     bool   // Grayscale + threshold before recognition
	JobStore          string // "memory" or "sqlite"
	DatabasePath      string
	MaxUploadSize     int64 // Bytes
}

// Load reads the configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))

	return &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DataDirectory:     dataDir,
		ImageDirectory:    getEnv("IMAGE_DIR", filepath.Join(dataDir, "images")),
		ResultsDirectory:  getEnv("RESULTS_DIR", filepath.Join(dataDir, "results")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:   getEnv("STATIC_DIR", filepath.Join(".", "static")),
		ProcessingWorkers: getEnvAsInt("PROCESSING_WORKERS", 1),
		QueueCapacity:     getEnvAsInt("QUEUE_CAPACITY", 100),
		OCRLanguage:       getEnv("OCR_LANGUAGE", "deu"),
		OCRPreprocess:     getEnvAsBool("OCR_PREPROCESS", true),
		JobStore:          getEnv("JOB_STORE", "memory"),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(dataDir, "jobs.db")),
		MaxUploadSize:     min(getEnvAsInt64("MAX_UPLOAD_MB", 32), maxUploadMB) << 20,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
