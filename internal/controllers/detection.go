package controllers

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/classify"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/resolver"
	"github.com/ygrab/ygrab/internal/services/extractor"
)

// DetectionState is the controller's position in the detection lifecycle
type DetectionState string

const (
	DetectionIdle       DetectionState = "idle"
	DetectionDebouncing DetectionState = "debouncing"
	DetectionDetecting  DetectionState = "detecting"
	DetectionDetected   DetectionState = "detected"
	DetectionFailed     DetectionState = "failed"
)

// DetectionResult is what the controller currently knows about the input URL.
// Exactly one of Video/Playlist is set when State is Detected.
type DetectionResult struct {
	State    DetectionState
	Kind     classify.Kind
	URL      string
	Video    *models.Video
	Playlist *models.Playlist
	Err      error
}

const metadataCacheTTL = 5 * time.Minute

// DetectionController turns a stream of URL edits into at most one metadata
// fetch per settled value. Every edit restarts the debounce timer and cancels
// any in-flight detection; a stale result that still arrives is discarded by
// sequence number, so only the most recent URL can update visible state.
type DetectionController struct {
	resolver *resolver.Resolver
	client   *extractor.Client
	cache    *gocache.Cache
	debounce time.Duration
	logger   *logrus.Logger

	onResult func(DetectionResult)

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	seq    uint64
	result DetectionResult
}

// NewDetectionController creates a detection controller
func NewDetectionController(res *resolver.Resolver, client *extractor.Client, debounce time.Duration, logger *logrus.Logger) *DetectionController {
	return &DetectionController{
		resolver: res,
		client:   client,
		cache:    gocache.New(metadataCacheTTL, 10*time.Minute),
		debounce: debounce,
		logger:   logger,
		result:   DetectionResult{State: DetectionIdle},
	}
}

// OnResult registers the callback invoked whenever visible state changes
func (d *DetectionController) OnResult(fn func(DetectionResult)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResult = fn
}

// Snapshot returns the current visible state
func (d *DetectionController) Snapshot() DetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// SetURL feeds one input edit. The previous debounce timer is stopped and any
// in-flight detection is cancelled before the new timer starts; only a timer
// that survives the debounce window uncancelled fires.
func (d *DetectionController) SetURL(raw string) {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.seq++
	seq := d.seq
	d.result = DetectionResult{State: DetectionDebouncing, URL: raw}
	d.timer = time.AfterFunc(d.debounce, func() {
		d.fire(raw, seq)
	})

	d.mu.Unlock()
	d.publish()
}

// fire runs once the debounce window for raw has elapsed without another edit
func (d *DetectionController) fire(raw string, seq uint64) {
	kind := classify.Classify(raw)
	if kind == classify.KindInvalid {
		// Not a media URL: clear prior metadata, no network call
		d.apply(seq, DetectionResult{State: DetectionIdle, URL: raw})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		cancel()
		return
	}
	d.cancel = cancel
	d.result = DetectionResult{State: DetectionDetecting, Kind: kind, URL: raw}
	d.mu.Unlock()
	d.publish()

	d.apply(seq, d.detect(ctx, kind, raw))
}

// detect resolves raw to metadata: cache, then connectivity, then the
// endpoint selected by classification
func (d *DetectionController) detect(ctx context.Context, kind classify.Kind, raw string) DetectionResult {
	if cached, ok := d.cache.Get(raw); ok {
		d.logger.WithField("url", raw).Debug("Metadata cache hit")
		result := cached.(DetectionResult)
		return result
	}

	// Never detect against a known-dead connection
	if d.resolver.Probe(ctx) == models.ConnectivityDisconnected {
		return DetectionResult{State: DetectionFailed, Kind: kind, URL: raw, Err: models.ErrDisconnected}
	}

	var result DetectionResult
	switch kind {
	case classify.KindPlaylist:
		playlist, err := d.client.PlaylistInfo(ctx, raw)
		if err != nil {
			return DetectionResult{State: DetectionFailed, Kind: kind, URL: raw, Err: err}
		}
		result = DetectionResult{State: DetectionDetected, Kind: kind, URL: raw, Playlist: playlist}
	default:
		video, err := d.client.VideoInfo(ctx, raw)
		if err != nil {
			return DetectionResult{State: DetectionFailed, Kind: kind, URL: raw, Err: err}
		}
		result = DetectionResult{State: DetectionDetected, Kind: kind, URL: raw, Video: video}
	}

	d.cache.Set(raw, result, gocache.DefaultExpiration)
	return result
}

// apply installs a detection result unless a newer edit superseded it
func (d *DetectionController) apply(seq uint64, result DetectionResult) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		d.logger.WithField("url", result.URL).Debug("Discarding superseded detection result")
		return
	}
	d.cancel = nil
	d.result = result
	d.mu.Unlock()

	if result.Err != nil {
		d.logger.WithError(result.Err).WithField("url", result.URL).Warn("Detection failed")
	}
	d.publish()
}

func (d *DetectionController) publish() {
	d.mu.Lock()
	fn := d.onResult
	result := d.result
	d.mu.Unlock()

	if fn != nil {
		fn(result)
	}
}
