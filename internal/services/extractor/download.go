package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/ygrab/ygrab/internal/models"
)

// Stream is an open download byte stream. Size is -1 when the server sent no
// Content-Length; Filename is empty when no Content-Disposition was declared.
// The caller owns Body and must close it.
type Stream struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
}

type downloadRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

type playlistDownloadRequest struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Quality  string `json:"quality"`
	MaxItems int    `json:"max_items"`
}

// OpenDownload issues the streamed download request for one item. A non-2xx
// status is terminal before any streaming begins. Only the request issuance is
// retried; once the stream is open it is never reissued.
func (c *Client) OpenDownload(ctx context.Context, req *models.DownloadRequest) (*Stream, error) {
	payload := downloadRequest{
		URL:     req.SourceURL,
		Format:  string(req.Format),
		Quality: req.Quality,
	}
	return c.openStream(ctx, "/download", payload)
}

// OpenPlaylistDownload issues a server-side batched playlist download: one
// stream carrying every item, capped at max_items on the server
func (c *Client) OpenPlaylistDownload(ctx context.Context, req *models.DownloadRequest) (*Stream, error) {
	payload := playlistDownloadRequest{
		URL:      req.SourceURL,
		Format:   string(req.Format),
		Quality:  req.Quality,
		MaxItems: req.MaxItems,
	}
	return c.openStream(ctx, "/download/playlist", payload)
}

func (c *Client) openStream(ctx context.Context, path string, payload interface{}) (*Stream, error) {
	var stream *Stream

	// Per-attempt timeout 0: a deadline on the open would also kill the
	// body read later. Transport-level failures still retry.
	err := c.requester.Do(ctx, func(attemptCtx context.Context) error {
		opened, err := c.open(ctx, path, payload)
		if err != nil {
			return err
		}
		stream = opened
		return nil
	}, c.cfg.MaxRetries, 0)
	if err != nil {
		return nil, err
	}

	return stream, nil
}

func (c *Client) open(ctx context.Context, path string, payload interface{}) (*Stream, error) {
	base, err := c.base()
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, serviceErrorFromResponse(resp)
	}

	return &Stream{
		Body:     resp.Body,
		Size:     resp.ContentLength,
		Filename: filenameFromHeader(resp.Header.Get("Content-Disposition")),
	}, nil
}

// filenameFromHeader extracts the declared filename from a
// Content-Disposition header; returns "" when absent or unparseable
func filenameFromHeader(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
