package app

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ocrweb/internal/config"
	"ocrweb/internal/dto"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/service/ocr"
)

func newTestApp(t *testing.T, jobStore string) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DataDirectory:     dir,
		ImageDirectory:    filepath.Join(dir, "images"),
		ResultsDirectory:  filepath.Join(dir, "results"),
		LogDirectory:      filepath.Join(dir, "logs"),
		StaticDirectory:   filepath.Join(dir, "static"),
		ProcessingWorkers: 2,
		QueueCapacity:     10,
		JobStore:          jobStore,
		DatabasePath:      filepath.Join(dir, "jobs.db"),
		MaxUploadSize:     1 << 20,
	}

	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	backend := ocr.BackendFunc(func(ctx context.Context, imagePath string) ([]model.DetectionRecord, error) {
		return []model.DetectionRecord{
			{BBox: model.NewBBox(0, 0, 40, 10), Text: model.StringPtr("HAUSVERWALTUNG"), Confidence: model.FloatPtr(0.8)},
			{BBox: model.NewBBox(0, 20, 40, 30), Text: model.StringPtr("Weber / Konig"), Confidence: model.FloatPtr(0.55)},
		}, nil
	})

	a, err := newApp(cfg, log, backend)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestApp_UploadDetectCleanExport(t *testing.T) {
	for _, store := range []string{"memory", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			a := newTestApp(t, store)
			server := httptest.NewServer(a.Handler())
			defer server.Close()

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, _ := mw.CreateFormFile("file", "door.jpg")
			part.Write([]byte("jpeg bytes"))
			mw.Close()

			resp, err := http.Post(server.URL+"/api/images/upload", mw.FormDataContentType(), &body)
			if err != nil {
				t.Fatalf("Upload failed: %v", err)
			}
			var img dto.ImageInfo
			json.NewDecoder(resp.Body).Decode(&img)
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated || img.ImageID == "" {
				t.Fatalf("Unexpected upload response %d %+v", resp.StatusCode, img)
			}

			resp, err = http.Post(server.URL+"/api/jobs/submit?image_id="+img.ImageID, "", nil)
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			var job model.Job
			json.NewDecoder(resp.Body).Decode(&job)
			resp.Body.Close()

			deadline := time.Now().Add(5 * time.Second)
			for job.State != model.JobDone {
				if time.Now().After(deadline) || job.State == model.JobError {
					t.Fatalf("Job ended in %s (%s)", job.State, job.Error)
				}
				time.Sleep(10 * time.Millisecond)
				resp, err := http.Get(server.URL + "/api/jobs/status?job_id=" + job.ID)
				if err != nil {
					t.Fatalf("Status failed: %v", err)
				}
				json.NewDecoder(resp.Body).Decode(&job)
				resp.Body.Close()
			}

			resp, err = http.Post(server.URL+"/api/results/clean?image_id="+img.ImageID, "", nil)
			if err != nil {
				t.Fatalf("Clean failed: %v", err)
			}
			var cleaned dto.ResultsData
			json.NewDecoder(resp.Body).Decode(&cleaned)
			resp.Body.Close()

			var names []string
			for _, item := range cleaned.Items {
				names = append(names, item.Text())
			}
			if got := strings.Join(names, ","); got != "Weber,König" {
				t.Errorf("Unexpected cleaned names %q", got)
			}

			resp, err = http.Get(server.URL + "/api/exports/results.zip")
			if err != nil {
				t.Fatalf("Archive failed: %v", err)
			}
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("Invalid archive: %v", err)
			}
			if len(zr.File) != 1 || zr.File[0].Name != img.ImageID+"_door.csv" {
				t.Errorf("Unexpected archive members %v", zr.File)
			}

			resp, err = http.Get(server.URL + "/health")
			if err != nil {
				t.Fatalf("Health check failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("Expected 200 from health, got %d", resp.StatusCode)
			}
		})
	}
}

func TestApp_UnknownJobStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		ImageDirectory:   filepath.Join(dir, "images"),
		ResultsDirectory: filepath.Join(dir, "results"),
		JobStore:         "redis",
	}
	log, err := logger.New(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer log.Close()

	if _, err := newApp(cfg, log, ocr.BackendFunc(nil)); err == nil {
		t.Error("Expected error for unknown job store")
	}
}
