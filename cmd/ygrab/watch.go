package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ygrab/ygrab/internal/classify"
	"github.com/ygrab/ygrab/internal/controllers"
	"github.com/ygrab/ygrab/internal/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Read URLs from stdin and detect them as they settle",
	Long: `watch feeds every line from stdin into the detection controller.
Edits arriving within the debounce window replace each other, so pasting or
retyping a URL only triggers one metadata fetch for the final value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func runWatch() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	results := make(chan controllers.DetectionResult, 16)
	a.detectCtrl.OnResult(func(result controllers.DetectionResult) {
		results <- result
	})

	go func() {
		for result := range results {
			printDetection(result)
		}
	}()

	fmt.Println("Paste URLs, one per line (Ctrl-D to quit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		a.detectCtrl.SetURL(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	// Give the last debounced detection a chance to finish
	deadline := time.Now().Add(a.cfg.Debounce + a.cfg.RequestTimeout)
	for time.Now().Before(deadline) {
		snap := a.detectCtrl.Snapshot()
		if snap.State == controllers.DetectionIdle ||
			snap.State == controllers.DetectionDetected ||
			snap.State == controllers.DetectionFailed {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil
}

func printDetection(result controllers.DetectionResult) {
	switch result.State {
	case controllers.DetectionDetecting:
		fmt.Printf("detecting %s...\n", result.URL)
	case controllers.DetectionDetected:
		if result.Kind == classify.KindPlaylist {
			fmt.Printf("playlist: %s (%d items)\n", result.Playlist.Title, result.Playlist.ItemCount)
		} else {
			fmt.Printf("video: %s [%s]\n", result.Video.Title, utils.FormatDuration(result.Video.DurationSeconds))
		}
	case controllers.DetectionFailed:
		fmt.Printf("detection failed: %v\n", result.Err)
	case controllers.DetectionIdle:
		if result.URL != "" {
			fmt.Printf("not a video or playlist URL: %s\n", result.URL)
		}
	}
}
