package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ygrab/ygrab/internal/config"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/requester"
	"github.com/ygrab/ygrab/internal/resolver"
	"github.com/ygrab/ygrab/internal/services/extractor"
	"github.com/ygrab/ygrab/internal/utils"
)

const testDebounce = 40 * time.Millisecond

// newDetectionFixture builds a detection controller against a test backend.
// handler serves everything except /health.
func newDetectionFixture(t *testing.T, handler http.Handler) *DetectionController {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := utils.NewLogger("error")
	cfg := &config.Config{
		APIBases:       []string{server.URL},
		ProbeTimeout:   time.Second,
		RequestTimeout: time.Second,
		RetryBaseDelay: time.Millisecond,
		MaxRetries:     0,
	}
	res := resolver.NewResolver(cfg.APIBases, cfg.ProbeTimeout, logger)
	client := extractor.NewClient(cfg, res, requester.New(cfg.RetryBaseDelay, logger), logger)
	return NewDetectionController(res, client, testDebounce, logger)
}

// waitForState polls until the controller settles into one of the wanted
// states or the deadline passes
func waitForState(t *testing.T, d *DetectionController, wanted ...DetectionState) DetectionResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := d.Snapshot()
		for _, state := range wanted {
			if snap.State == state {
				return snap
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never reached %v, last state %v", wanted, d.Snapshot().State)
	return DetectionResult{}
}

func videoInfoHandler(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "dQw4w9WgXcQ",
			"title":    "Test",
			"duration": 212,
			"views":    1000,
		})
	})
}

func TestDetectSingleVideo(t *testing.T) {
	var calls atomic.Int32
	d := newDetectionFixture(t, videoInfoHandler(&calls))

	d.SetURL("https://youtu.be/dQw4w9WgXcQ")
	result := waitForState(t, d, DetectionDetected, DetectionFailed)

	if result.State != DetectionDetected {
		t.Fatalf("expected detected, got %v (%v)", result.State, result.Err)
	}
	if result.Video == nil || result.Video.ID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected video %+v", result.Video)
	}
	if got := utils.FormatDuration(result.Video.DurationSeconds); got != "3:32" {
		t.Errorf("duration display = %q, want 3:32", got)
	}
}

func TestInvalidInputNeverReachesNetwork(t *testing.T) {
	var calls atomic.Int32
	d := newDetectionFixture(t, videoInfoHandler(&calls))

	d.SetURL("definitely not a url")
	result := waitForState(t, d, DetectionIdle)

	if result.Video != nil || result.Playlist != nil {
		t.Error("invalid input must clear metadata")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("invalid input issued %d network calls", n)
	}
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	var calls atomic.Int32
	d := newDetectionFixture(t, videoInfoHandler(&calls))

	// All edits land within one debounce window
	d.SetURL("https://youtu.be/AAAAAAAAAAA")
	time.Sleep(5 * time.Millisecond)
	d.SetURL("https://youtu.be/BBBBBBBBBBB")
	time.Sleep(5 * time.Millisecond)
	d.SetURL("https://youtu.be/dQw4w9WgXcQ")

	result := waitForState(t, d, DetectionDetected, DetectionFailed)
	if result.State != DetectionDetected {
		t.Fatalf("expected detected, got %v (%v)", result.State, result.Err)
	}
	if result.URL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("result should correspond to the final value, got %q", result.URL)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one detection call, got %d", n)
	}
}

func TestStaleResultIsDiscarded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		title := "Fast"
		if strings.Contains(string(body), "slow") {
			title = "Slow"
			time.Sleep(200 * time.Millisecond)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "dQw4w9WgXcQ",
			"title": title,
		})
	})
	d := newDetectionFixture(t, handler)

	d.SetURL("https://youtu.be/slowAAAAAAA")
	// Let the slow request take flight, then supersede it
	time.Sleep(testDebounce + 20*time.Millisecond)
	d.SetURL("https://youtu.be/fastAAAAAAA")

	result := waitForState(t, d, DetectionDetected)
	if result.Video.Title != "Fast" {
		t.Fatalf("expected the latest request to win, got %q", result.Video.Title)
	}

	// When the stale response finally arrives its effects must not apply
	time.Sleep(300 * time.Millisecond)
	if snap := d.Snapshot(); snap.Video == nil || snap.Video.Title != "Fast" {
		t.Errorf("stale result overwrote visible state: %+v", snap)
	}
}

func TestDetectionServiceError(t *testing.T) {
	d := newDetectionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "Video unavailable"})
	}))

	d.SetURL("https://youtu.be/dQw4w9WgXcQ")
	result := waitForState(t, d, DetectionFailed)

	var svcErr *models.ServiceError
	if !errors.As(result.Err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", result.Err)
	}
	if result.Video != nil {
		t.Error("failed detection must not leave metadata mounted")
	}
}

func TestDetectionFailsFastWhenDisconnected(t *testing.T) {
	logger := utils.NewLogger("error")
	cfg := &config.Config{
		APIBases:       []string{"http://127.0.0.1:1"},
		ProbeTimeout:   100 * time.Millisecond,
		RequestTimeout: time.Second,
		RetryBaseDelay: time.Millisecond,
	}
	res := resolver.NewResolver(cfg.APIBases, cfg.ProbeTimeout, logger)
	client := extractor.NewClient(cfg, res, requester.New(cfg.RetryBaseDelay, logger), logger)
	d := NewDetectionController(res, client, testDebounce, logger)

	d.SetURL("https://youtu.be/dQw4w9WgXcQ")
	result := waitForState(t, d, DetectionFailed)

	if !errors.Is(result.Err, models.ErrDisconnected) {
		t.Fatalf("expected connectivity error, got %v", result.Err)
	}
}

func TestDetectPlaylist(t *testing.T) {
	d := newDetectionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlist-info" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"title":      "Mix",
			"videoCount": 2,
			"videos": []map[string]interface{}{
				{"id": "a", "title": "First"},
				{"id": "b", "title": "Second"},
			},
		})
	}))

	d.SetURL("https://www.youtube.com/playlist?list=PL123")
	result := waitForState(t, d, DetectionDetected, DetectionFailed)

	if result.State != DetectionDetected {
		t.Fatalf("expected detected, got %v (%v)", result.State, result.Err)
	}
	if result.Playlist == nil || len(result.Playlist.Items) != 2 {
		t.Fatalf("expected 2 playlist items, got %+v", result.Playlist)
	}
}
