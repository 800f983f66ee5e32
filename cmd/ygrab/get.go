package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ygrab/ygrab/internal/classify"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/utils"
)

var (
	getFormat      string
	getQuality     string
	getMaxItems    int
	getServerBatch bool
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a video or playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(args[0])
	},
}

func init() {
	getCmd.Flags().StringVarP(&getFormat, "format", "f", "mp4",
		"output format (mp4, webm, mkv, mp3, wav, aac, m4a)")
	getCmd.Flags().StringVarP(&getQuality, "quality", "q", "1080p",
		"preferred quality label")
	getCmd.Flags().IntVar(&getMaxItems, "max-items", 0,
		"playlist item cap (0 uses the configured default)")
	getCmd.Flags().BoolVar(&getServerBatch, "server-batch", false,
		"let the server batch a playlist into a single stream")
}

func runGet(url string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	format, ok := models.ParseFormat(getFormat)
	if !ok {
		return fmt.Errorf("unsupported format %q", getFormat)
	}

	kind := classify.Classify(url)
	if kind == classify.KindInvalid {
		return models.ErrInvalidURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.resolver.Probe(ctx) == models.ConnectivityDisconnected {
		return models.ErrDisconnected
	}

	if kind == classify.KindPlaylist {
		return runGetPlaylist(ctx, a, url, format)
	}
	return runGetVideo(ctx, a, url, format)
}

func runGetVideo(ctx context.Context, a *app, url string, format models.Format) error {
	video, err := a.client.VideoInfo(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch video metadata: %w", err)
	}

	quality := getQuality
	if !containsQuality(video.AvailableQualities, quality) {
		a.logger.WithField("quality", quality).Warn("Requested quality not reported by the source, requesting it anyway")
	}

	req := &models.DownloadRequest{
		SourceURL: url,
		Format:    format,
		Quality:   quality,
		Title:     video.Title,
	}

	prog := models.NewProgress()
	done := watchProgress(video.Title, prog)

	path, err := a.downloadCtrl.Download(ctx, req, prog)
	<-done
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s\n", path)
	return nil
}

func runGetPlaylist(ctx context.Context, a *app, url string, format models.Format) error {
	playlist, err := a.client.PlaylistInfo(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist metadata: %w", err)
	}
	fmt.Printf("Playlist: %s (%d items)\n", playlist.Title, playlist.ItemCount)

	req := &models.DownloadRequest{
		SourceURL: url,
		Format:    format,
		Quality:   getQuality,
		MaxItems:  getMaxItems,
		Title:     playlist.Title,
	}

	if getServerBatch {
		if req.MaxItems <= 0 {
			req.MaxItems = a.cfg.MaxPlaylistItems
		}
		prog := models.NewProgress()
		done := watchProgress(playlist.Title, prog)
		path, err := a.downloadCtrl.DownloadPlaylistBatch(ctx, req, prog)
		<-done
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	}

	limit := req.MaxItems
	if limit <= 0 {
		limit = a.cfg.MaxPlaylistItems
	}
	total := len(playlist.Items)
	if total > limit {
		total = limit
	}

	var done chan struct{}
	outcomes := a.playlistCtrl.DownloadAll(ctx, playlist, req, func(index int, item models.PlaylistItem, prog *models.Progress) {
		if done != nil {
			<-done
		}
		label := fmt.Sprintf("[%d/%d] %s", index+1, total, item.Title)
		done = watchProgress(label, prog)
	})
	if done != nil {
		<-done
	}

	completed, failed := 0, 0
	for _, outcome := range outcomes {
		switch outcome.Outcome {
		case models.OutcomeCompleted:
			completed++
		case models.OutcomeFailed:
			failed++
			fmt.Printf("Failed: %s (%v)\n", outcome.Item.Title, outcome.Err)
		}
	}
	fmt.Printf("Done: %d completed, %d failed of %d items\n", completed, failed, len(outcomes))

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// watchProgress prints progress lines until prog reaches a terminal phase.
// The returned channel closes when printing is finished.
func watchProgress(label string, prog *models.Progress) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			snap := prog.Snapshot()
			switch {
			case snap.Phase.Terminal():
				if snap.Phase == models.PhaseDone {
					fmt.Printf("\r%s: done (%s)          \n", label, utils.FormatBytes(snap.BytesReceived))
				} else {
					fmt.Printf("\r%s: failed               \n", label)
				}
				return
			case snap.HasPercentage:
				fmt.Printf("\r%s: %3d%% (%s)", label, snap.Percentage, utils.FormatBytes(snap.BytesReceived))
			default:
				fmt.Printf("\r%s: %s (%s)", label, snap.Phase, utils.FormatBytes(snap.BytesReceived))
			}
		}
	}()
	return done
}

func containsQuality(qualities []string, quality string) bool {
	for _, q := range qualities {
		if q == quality {
			return true
		}
	}
	return false
}
