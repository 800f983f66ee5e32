package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ygrab/ygrab/internal/config"
	"github.com/ygrab/ygrab/internal/controllers"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/requester"
	"github.com/ygrab/ygrab/internal/resolver"
	"github.com/ygrab/ygrab/internal/services/extractor"
	"github.com/ygrab/ygrab/internal/utils"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "ygrab",
	Short: "Client for a yt-dlp extraction backend",
	Long: `ygrab talks to a yt-dlp extraction backend: it classifies video and
playlist URLs, fetches their metadata and drives streamed downloads with
progress reporting. Backend candidates, timeouts and retry behavior are
configured through environment variables or a .env file.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ygrab version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ygrab", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wired components shared by all commands
type app struct {
	cfg          *config.Config
	logger       *logrus.Logger
	db           *models.Database
	resolver     *resolver.Resolver
	client       *extractor.Client
	detectCtrl   *controllers.DetectionController
	downloadCtrl *controllers.DownloadController
	playlistCtrl *controllers.PlaylistDownloadController
}

// newApp loads configuration and wires services and controllers the same way
// for every command
func newApp(withDatabase bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	var db *models.Database
	if withDatabase {
		db, err = models.NewDatabase(cfg.DatabaseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	res := resolver.NewResolver(cfg.APIBases, cfg.ProbeTimeout, logger)
	req := requester.New(cfg.RetryBaseDelay, logger)
	client := extractor.NewClient(cfg, res, req, logger)

	detectCtrl := controllers.NewDetectionController(res, client, cfg.Debounce, logger)
	downloadCtrl := controllers.NewDownloadController(cfg, client, res, db, logger)
	playlistCtrl := controllers.NewPlaylistDownloadController(downloadCtrl, cfg.MaxPlaylistItems, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		resolver:     res,
		client:       client,
		detectCtrl:   detectCtrl,
		downloadCtrl: downloadCtrl,
		playlistCtrl: playlistCtrl,
	}, nil
}

// Close releases the app's resources
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close database")
		}
	}
}
