package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/classify"
	"github.com/ygrab/ygrab/internal/config"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/resolver"
	"github.com/ygrab/ygrab/internal/services/extractor"
	"github.com/ygrab/ygrab/internal/utils"
)

const downloadChunkSize = 32 * 1024

// DownloadController drives one streamed download to a local file while
// accounting progress per chunk
type DownloadController struct {
	client      *extractor.Client
	resolver    *resolver.Resolver
	db          *models.Database
	downloadDir string
	logger      *logrus.Logger

	nextID uint64
	mu     sync.Mutex
	active map[uint64]*models.Progress
}

// NewDownloadController creates a new download controller
func NewDownloadController(cfg *config.Config, client *extractor.Client, res *resolver.Resolver, db *models.Database, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		client:      client,
		resolver:    res,
		db:          db,
		downloadDir: cfg.DownloadDir,
		logger:      logger,
		active:      make(map[uint64]*models.Progress),
	}
}

// Active returns snapshots of every download currently in flight
func (c *DownloadController) Active() []models.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshots := make([]models.ProgressSnapshot, 0, len(c.active))
	for _, prog := range c.active {
		snapshots = append(snapshots, prog.Snapshot())
	}
	return snapshots
}

// Download fetches one item into the download directory, updating prog from
// Starting through Done or Failed. Returns the final artifact path.
func (c *DownloadController) Download(ctx context.Context, req *models.DownloadRequest, prog *models.Progress) (string, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	c.mu.Lock()
	c.active[id] = prog
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
	}()

	c.logger.WithFields(logrus.Fields{
		"url":     req.SourceURL,
		"format":  req.Format,
		"quality": req.Quality,
	}).Info("Starting download")

	if c.resolver.Probe(ctx) == models.ConnectivityDisconnected {
		prog.Fail(models.ErrDisconnected)
		c.record(req, prog, models.OutcomeFailed, "", models.ErrDisconnected)
		return "", models.ErrDisconnected
	}

	stream, err := c.client.OpenDownload(ctx, req)
	if err != nil {
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", fmt.Errorf("failed to open download stream: %w", err)
	}

	return c.saveStream(ctx, stream, req, prog)
}

// DownloadPlaylistBatch fetches a whole playlist as one server-batched stream
func (c *DownloadController) DownloadPlaylistBatch(ctx context.Context, req *models.DownloadRequest, prog *models.Progress) (string, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	c.mu.Lock()
	c.active[id] = prog
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
	}()

	c.logger.WithFields(logrus.Fields{
		"url":       req.SourceURL,
		"max_items": req.MaxItems,
	}).Info("Starting server-batched playlist download")

	if c.resolver.Probe(ctx) == models.ConnectivityDisconnected {
		prog.Fail(models.ErrDisconnected)
		c.record(req, prog, models.OutcomeFailed, "", models.ErrDisconnected)
		return "", models.ErrDisconnected
	}

	stream, err := c.client.OpenPlaylistDownload(ctx, req)
	if err != nil {
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", fmt.Errorf("failed to open playlist download stream: %w", err)
	}

	return c.saveStream(ctx, stream, req, prog)
}

// saveStream drains an open stream into a partial file, then finalizes it
// under its artifact name. Cancellation removes the partial so no half-written
// artifact is ever exposed.
func (c *DownloadController) saveStream(ctx context.Context, stream *extractor.Stream, req *models.DownloadRequest, prog *models.Progress) (string, error) {
	defer stream.Body.Close()

	prog.SetTotal(stream.Size)
	prog.SetPhase(models.PhaseTransferring)

	partial, err := os.CreateTemp(c.downloadDir, ".ygrab-*.partial")
	if err != nil {
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", fmt.Errorf("failed to create partial file: %w", err)
	}
	partialPath := partial.Name()

	discard := func() {
		partial.Close()
		os.Remove(partialPath)
	}

	buf := make([]byte, downloadChunkSize)
	var received int64
	for {
		// Cancellation is honored between chunks
		if ctx.Err() != nil {
			discard()
			prog.Fail(ctx.Err())
			c.record(req, prog, models.OutcomeCanceled, "", ctx.Err())
			return "", ctx.Err()
		}

		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, writeErr := partial.Write(buf[:n]); writeErr != nil {
				discard()
				prog.Fail(writeErr)
				c.record(req, prog, models.OutcomeFailed, "", writeErr)
				return "", fmt.Errorf("failed to write chunk: %w", writeErr)
			}
			received += int64(n)
			prog.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			discard()
			if ctx.Err() != nil {
				prog.Fail(ctx.Err())
				c.record(req, prog, models.OutcomeCanceled, "", ctx.Err())
				return "", ctx.Err()
			}
			err := fmt.Errorf("%w: %v", models.ErrStreamInterrupted, readErr)
			prog.Fail(err)
			c.record(req, prog, models.OutcomeFailed, "", err)
			return "", err
		}
	}

	// A declared total the stream never reached means a truncated transfer
	if stream.Size > 0 && received < stream.Size {
		discard()
		err := fmt.Errorf("%w: got %d of %d bytes", models.ErrStreamInterrupted, received, stream.Size)
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", err
	}

	prog.SetPhase(models.PhaseFinalizing)

	if err := partial.Close(); err != nil {
		os.Remove(partialPath)
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", fmt.Errorf("failed to close partial file: %w", err)
	}

	name := stream.Filename
	if name == "" {
		title := req.Title
		if title == "" {
			title = "download"
		}
		name = utils.FallbackFilename(title, req.Format)
	}
	finalPath := c.uniquePath(utils.SanitizeFilename(name))

	if err := os.Rename(partialPath, finalPath); err != nil {
		os.Remove(partialPath)
		prog.Fail(err)
		c.record(req, prog, models.OutcomeFailed, "", err)
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}

	prog.SetFilename(filepath.Base(finalPath))
	prog.SetPhase(models.PhaseDone)
	c.record(req, prog, models.OutcomeCompleted, filepath.Base(finalPath), nil)

	c.logger.WithFields(logrus.Fields{
		"file":  finalPath,
		"bytes": received,
	}).Info("Download completed")
	return finalPath, nil
}

// uniquePath returns a path in the download dir that does not collide with an
// existing file, suffixing " (n)" before the extension when needed
func (c *DownloadController) uniquePath(name string) string {
	path := filepath.Join(c.downloadDir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		candidate := filepath.Join(c.downloadDir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// record appends the terminal outcome to the download history
func (c *DownloadController) record(req *models.DownloadRequest, prog *models.Progress, outcome models.Outcome, filename string, cause error) {
	if c.db == nil {
		return
	}

	snap := prog.Snapshot()
	entry := &models.HistoryEntry{
		VideoID:   classify.VideoID(req.SourceURL),
		Title:     req.Title,
		SourceURL: req.SourceURL,
		Format:    req.Format,
		Quality:   req.Quality,
		Outcome:   outcome,
		Filename:  filename,
		Bytes:     snap.BytesReceived,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		entry.Reason = cause.Error()
	}

	if err := c.db.AddHistory(entry); err != nil {
		c.logger.WithError(err).Error("Failed to record download history")
	}
}
