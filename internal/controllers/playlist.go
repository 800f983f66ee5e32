package controllers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/models"
)

// ItemOutcome is the per-item result of a playlist download
type ItemOutcome struct {
	Item    models.PlaylistItem
	Outcome models.Outcome
	Path    string
	Err     error
}

// PlaylistDownloadController downloads a playlist one item at a time. Items
// never overlap, each gets its own Progress, and one item's failure does not
// abort the siblings.
type PlaylistDownloadController struct {
	download *DownloadController
	maxItems int
	logger   *logrus.Logger
}

// NewPlaylistDownloadController creates a playlist download controller with
// the default item cap
func NewPlaylistDownloadController(download *DownloadController, maxItems int, logger *logrus.Logger) *PlaylistDownloadController {
	return &PlaylistDownloadController{
		download: download,
		maxItems: maxItems,
		logger:   logger,
	}
}

// DownloadAll downloads the playlist's items sequentially, capped at
// req.MaxItems (or the configured default when zero). onItem, when non-nil,
// receives each item's Progress just before its download starts. The returned
// slice holds exactly one outcome per attempted item; cancellation marks the
// remaining items Canceled and stops.
func (c *PlaylistDownloadController) DownloadAll(ctx context.Context, playlist *models.Playlist, req *models.DownloadRequest, onItem func(index int, item models.PlaylistItem, prog *models.Progress)) []ItemOutcome {
	limit := req.MaxItems
	if limit <= 0 {
		limit = c.maxItems
	}
	items := playlist.Items
	if len(items) > limit {
		items = items[:limit]
	}

	c.logger.WithFields(logrus.Fields{
		"playlist": playlist.Title,
		"items":    len(items),
		"total":    playlist.ItemCount,
	}).Info("Starting playlist download")

	outcomes := make([]ItemOutcome, 0, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			for _, rest := range items[i:] {
				outcomes = append(outcomes, ItemOutcome{Item: rest, Outcome: models.OutcomeCanceled, Err: ctx.Err()})
			}
			break
		}

		prog := models.NewProgress()
		if onItem != nil {
			onItem(i, item, prog)
		}

		itemReq := &models.DownloadRequest{
			SourceURL: item.WatchURL(),
			Format:    req.Format,
			Quality:   req.Quality,
			Title:     item.Title,
		}

		path, err := c.download.Download(ctx, itemReq, prog)
		switch {
		case err == nil:
			outcomes = append(outcomes, ItemOutcome{Item: item, Outcome: models.OutcomeCompleted, Path: path})
		case ctx.Err() != nil:
			outcomes = append(outcomes, ItemOutcome{Item: item, Outcome: models.OutcomeCanceled, Err: err})
		default:
			c.logger.WithError(err).WithFields(logrus.Fields{
				"item":  item.ID,
				"title": item.Title,
			}).Warn("Playlist item failed, continuing with remaining items")
			outcomes = append(outcomes, ItemOutcome{Item: item, Outcome: models.OutcomeFailed, Err: err})
		}
	}

	return outcomes
}
