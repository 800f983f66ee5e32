package utils

import (
	"testing"

	"github.com/ygrab/ygrab/internal/models"
)

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(212); got != "3:32" {
		t.Errorf("FormatDuration(212) = %q, want 3:32", got)
	}
	if got := FormatDuration(3723); got != "1:02:03" {
		t.Errorf("FormatDuration(3723) = %q, want 1:02:03", got)
	}
	if got := FormatDuration(0); got != "0:00" {
		t.Errorf("FormatDuration(0) = %q, want 0:00", got)
	}
	if got := FormatDuration(-5); got != "0:00" {
		t.Errorf("FormatDuration(-5) = %q, want 0:00", got)
	}
	if got := FormatDuration(59); got != "0:59" {
		t.Errorf("FormatDuration(59) = %q, want 0:59", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(512); got != "512 B" {
		t.Errorf("FormatBytes(512) = %q", got)
	}
	if got := FormatBytes(2048); got != "2.0 KiB" {
		t.Errorf("FormatBytes(2048) = %q", got)
	}
	if got := FormatBytes(5 * 1024 * 1024); got != "5.0 MiB" {
		t.Errorf("FormatBytes(5MiB) = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(`My <Video>: "Part 1/2"`); got != "My _Video__ _Part 1_2_" {
		t.Errorf("unexpected sanitized name %q", got)
	}
	if got := SanitizeFilename("...   "); got != "download" {
		t.Errorf("expected fallback for empty result, got %q", got)
	}
	if got := SanitizeFilename("plain name.mp4"); got != "plain name.mp4" {
		t.Errorf("safe name should pass through, got %q", got)
	}
}

func TestFallbackFilename(t *testing.T) {
	if got := FallbackFilename("Test Video", models.FormatMP4); got != "Test Video.mp4" {
		t.Errorf("FallbackFilename = %q, want Test Video.mp4", got)
	}
	if got := FallbackFilename("A/B", models.FormatMP3); got != "A_B.mp3" {
		t.Errorf("FallbackFilename = %q, want A_B.mp3", got)
	}
}
