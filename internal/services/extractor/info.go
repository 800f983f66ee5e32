package extractor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/models"
)

// DefaultQualities is offered when the source reports no quality list,
// highest first
var DefaultQualities = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p", "240p"}

type infoRequest struct {
	URL string `json:"url"`
}

type infoResponse struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Duration           int      `json:"duration"`
	Views              int64    `json:"views"`
	Thumbnail          string   `json:"thumbnail"`
	Uploader           string   `json:"uploader"`
	UploadDate         string   `json:"upload_date"`
	AvailableQualities []string `json:"available_qualities"`
	Error              string   `json:"error"`
}

type playlistItemResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Views    int64  `json:"views"`
}

type playlistInfoResponse struct {
	Title      string                 `json:"title"`
	VideoCount int                    `json:"videoCount"`
	Videos     []playlistItemResponse `json:"videos"`
	Error      string                 `json:"error"`
}

// VideoInfo fetches metadata for a single video URL. A response carrying an
// error field is surfaced as ServiceError; a 2xx response lacking both an id
// and a title is rejected as malformed rather than silently accepted.
func (c *Client) VideoInfo(ctx context.Context, url string) (*models.Video, error) {
	var resp infoResponse
	err := c.requester.Do(ctx, func(attemptCtx context.Context) error {
		resp = infoResponse{}
		return c.postJSON(attemptCtx, "/info", infoRequest{URL: url}, &resp)
	}, c.cfg.MaxRetries, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return nil, &models.ServiceError{Message: resp.Error}
	}
	if resp.ID == "" && resp.Title == "" {
		return nil, &models.MalformedDataError{Reason: "info response has neither id nor title"}
	}

	qualities := resp.AvailableQualities
	if len(qualities) == 0 {
		qualities = DefaultQualities
	}

	video := &models.Video{
		ID:                 resp.ID,
		Title:              resp.Title,
		DurationSeconds:    resp.Duration,
		Views:              resp.Views,
		ThumbnailURL:       c.ThumbnailURL(resp.ID),
		Uploader:           resp.Uploader,
		UploadDate:         resp.UploadDate,
		AvailableQualities: qualities,
	}

	c.logger.WithFields(logrus.Fields{
		"id":    video.ID,
		"title": video.Title,
	}).Debug("Fetched video metadata")
	return video, nil
}

// PlaylistInfo fetches metadata for a playlist URL
func (c *Client) PlaylistInfo(ctx context.Context, url string) (*models.Playlist, error) {
	var resp playlistInfoResponse
	err := c.requester.Do(ctx, func(attemptCtx context.Context) error {
		resp = playlistInfoResponse{}
		return c.postJSON(attemptCtx, "/playlist-info", infoRequest{URL: url}, &resp)
	}, c.cfg.MaxRetries, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return nil, &models.ServiceError{Message: resp.Error}
	}
	if resp.Title == "" && len(resp.Videos) == 0 {
		return nil, &models.MalformedDataError{Reason: "playlist response has neither title nor items"}
	}

	playlist := &models.Playlist{
		Title:     resp.Title,
		ItemCount: resp.VideoCount,
		Items:     make([]models.PlaylistItem, 0, len(resp.Videos)),
	}
	for _, item := range resp.Videos {
		playlist.Items = append(playlist.Items, models.PlaylistItem{
			ID:              item.ID,
			Title:           item.Title,
			DurationSeconds: item.Duration,
			Views:           item.Views,
		})
	}
	if playlist.ItemCount == 0 {
		playlist.ItemCount = len(playlist.Items)
	}

	c.logger.WithFields(logrus.Fields{
		"title": playlist.Title,
		"items": len(playlist.Items),
	}).Debug("Fetched playlist metadata")
	return playlist, nil
}
