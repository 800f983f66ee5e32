package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ygrab/ygrab/internal/config"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/requester"
	"github.com/ygrab/ygrab/internal/resolver"
	"github.com/ygrab/ygrab/internal/services/extractor"
	"github.com/ygrab/ygrab/internal/utils"
)

// newDownloadFixture builds a download controller against a test backend,
// with a temp download dir and a real history database
func newDownloadFixture(t *testing.T, handler http.Handler) (*DownloadController, string, *models.Database) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open history db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := utils.NewLogger("error")
	cfg := &config.Config{
		APIBases:         []string{server.URL},
		ProbeTimeout:     time.Second,
		RequestTimeout:   time.Second,
		RetryBaseDelay:   time.Millisecond,
		MaxRetries:       0,
		DownloadDir:      dir,
		MaxPlaylistItems: 10,
	}
	res := resolver.NewResolver(cfg.APIBases, cfg.ProbeTimeout, logger)
	client := extractor.NewClient(cfg, res, requester.New(cfg.RetryBaseDelay, logger), logger)
	return NewDownloadController(cfg, client, res, db, logger), dir, db
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestDownloadKnownTotal(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 200*1024)
	ctrl, dir, db := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="Test Video.mp4"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))

	prog := models.NewProgress()
	path, err := ctrl.Download(context.Background(), &models.DownloadRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    models.FormatMP4,
		Quality:   "1080p",
		Title:     "Test Video",
	}, prog)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	snap := prog.Snapshot()
	if snap.Phase != models.PhaseDone {
		t.Fatalf("expected done, got %v", snap.Phase)
	}
	if snap.Percentage != 100 {
		t.Errorf("expected 100%% at done, got %d", snap.Percentage)
	}
	if snap.BytesReceived != int64(len(payload)) {
		t.Errorf("expected %d bytes, got %d", len(payload), snap.BytesReceived)
	}

	if filepath.Base(path) != "Test Video.mp4" {
		t.Errorf("expected declared filename, got %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("artifact content does not match the stream")
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Errorf("expected only the final artifact in the dir, got %v", names)
	}

	completed, err := db.GetHistoryByOutcome(models.OutcomeCompleted)
	if err != nil || len(completed) != 1 {
		t.Errorf("expected one completed history entry, got %d (%v)", len(completed), err)
	}
}

func TestDownloadUnknownTotal(t *testing.T) {
	ctrl, _, _ := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		// Flushing before the body is complete forces chunked encoding,
		// so the client sees no Content-Length
		w.Write(bytes.Repeat([]byte("a"), 1024))
		flusher.Flush()
		w.Write(bytes.Repeat([]byte("b"), 1024))
	}))

	prog := models.NewProgress()
	_, err := ctrl.Download(context.Background(), &models.DownloadRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    models.FormatMP4,
		Title:     "Chunked",
	}, prog)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	snap := prog.Snapshot()
	if snap.Phase != models.PhaseDone {
		t.Fatalf("expected done, got %v", snap.Phase)
	}
	if snap.HasPercentage {
		t.Error("no percentage may be fabricated for an unknown total")
	}
	if snap.BytesReceived != 2048 {
		t.Errorf("expected 2048 bytes, got %d", snap.BytesReceived)
	}
}

func TestDownloadNonSuccessStatusIsTerminal(t *testing.T) {
	ctrl, dir, db := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Video unavailable"})
	}))

	prog := models.NewProgress()
	_, err := ctrl.Download(context.Background(), &models.DownloadRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    models.FormatMP4,
	}, prog)

	var svcErr *models.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if prog.Snapshot().Phase != models.PhaseFailed {
		t.Errorf("expected failed phase, got %v", prog.Snapshot().Phase)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Errorf("no artifact may exist after a failed open, got %v", names)
	}

	failed, err := db.GetHistoryByOutcome(models.OutcomeFailed)
	if err != nil || len(failed) != 1 {
		t.Errorf("expected one failed history entry, got %d (%v)", len(failed), err)
	}
}

func TestDownloadCancellationLeavesNoPartial(t *testing.T) {
	release := make(chan struct{})
	ctrl, dir, db := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write(bytes.Repeat([]byte("x"), 1024))
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	prog := models.NewProgress()

	errChan := make(chan error, 1)
	go func() {
		_, err := ctrl.Download(ctx, &models.DownloadRequest{
			SourceURL: "https://youtu.be/dQw4w9WgXcQ",
			Format:    models.FormatMP4,
			Title:     "Canceled",
		}, prog)
		errChan <- err
	}()

	// Wait until the first chunk landed, then pull the plug
	deadline := time.Now().Add(2 * time.Second)
	for prog.Snapshot().BytesReceived == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	err := <-errChan
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Errorf("cancellation must not expose a partial artifact, got %v", names)
	}

	canceled, err := db.GetHistoryByOutcome(models.OutcomeCanceled)
	if err != nil || len(canceled) != 1 {
		t.Errorf("expected one canceled history entry, got %d (%v)", len(canceled), err)
	}
}

func TestDownloadTruncatedStream(t *testing.T) {
	ctrl, dir, _ := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more than is actually sent
		w.Header().Set("Content-Length", "4096")
		w.Write(bytes.Repeat([]byte("x"), 1024))
	}))

	prog := models.NewProgress()
	_, err := ctrl.Download(context.Background(), &models.DownloadRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    models.FormatMP4,
		Title:     "Truncated",
	}, prog)

	if !errors.Is(err, models.ErrStreamInterrupted) {
		t.Fatalf("expected stream-interrupted error, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Errorf("truncated download must not leave files, got %v", names)
	}
}

func TestDownloadFallbackFilename(t *testing.T) {
	ctrl, _, _ := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))

	prog := models.NewProgress()
	path, err := ctrl.Download(context.Background(), &models.DownloadRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    models.FormatMP3,
		Title:     "My Song",
	}, prog)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if filepath.Base(path) != "My Song.mp3" {
		t.Errorf("expected fallback name from title and format, got %q", filepath.Base(path))
	}
}
