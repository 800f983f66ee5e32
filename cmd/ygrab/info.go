package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ygrab/ygrab/internal/classify"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/utils"
)

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Show metadata for a video or playlist URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func runInfo(url string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	kind := classify.Classify(url)
	if kind == classify.KindInvalid {
		return models.ErrInvalidURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.resolver.Probe(ctx) == models.ConnectivityDisconnected {
		return models.ErrDisconnected
	}

	switch kind {
	case classify.KindPlaylist:
		playlist, err := a.client.PlaylistInfo(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch playlist metadata: %w", err)
		}
		printPlaylist(playlist)
	default:
		video, err := a.client.VideoInfo(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch video metadata: %w", err)
		}
		printVideo(video)
	}

	return nil
}

func printVideo(video *models.Video) {
	fmt.Printf("Title:     %s\n", video.Title)
	if video.Uploader != "" {
		fmt.Printf("Uploader:  %s\n", video.Uploader)
	}
	fmt.Printf("Duration:  %s\n", utils.FormatDuration(video.DurationSeconds))
	fmt.Printf("Views:     %d\n", video.Views)
	if video.UploadDate != "" {
		fmt.Printf("Uploaded:  %s\n", video.UploadDate)
	}
	fmt.Printf("Thumbnail: %s\n", video.ThumbnailURL)
	fmt.Printf("Qualities: %s\n", strings.Join(video.AvailableQualities, ", "))
}

func printPlaylist(playlist *models.Playlist) {
	fmt.Printf("Playlist: %s (%d items)\n", playlist.Title, playlist.ItemCount)
	for i, item := range playlist.Items {
		fmt.Printf("%3d. %s [%s]\n", i+1, item.Title, utils.FormatDuration(item.DurationSeconds))
	}
}
