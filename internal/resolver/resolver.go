// Package resolver discovers which candidate backend address is alive and
// pins it as the active base for every other component.
package resolver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ygrab/ygrab/internal/models"
)

// Resolver probes an ordered list of candidate base addresses and exposes the
// current connectivity state. Probes are serialized: concurrent callers share
// the one in-flight probe instead of issuing duplicates.
type Resolver struct {
	candidates   []string
	probeTimeout time.Duration
	httpClient   *http.Client
	logger       *logrus.Logger

	group singleflight.Group

	mu    sync.RWMutex
	state models.Connectivity
	base  string
}

// NewResolver creates a resolver over the candidate list. Priority is list
// order; connectivity starts Unknown.
func NewResolver(candidates []string, probeTimeout time.Duration, logger *logrus.Logger) *Resolver {
	return &Resolver{
		candidates:   candidates,
		probeTimeout: probeTimeout,
		httpClient:   &http.Client{},
		logger:       logger,
		state:        models.ConnectivityUnknown,
	}
}

// State returns the current connectivity value
func (r *Resolver) State() models.Connectivity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Base returns the pinned base address, if any
func (r *Resolver) Base() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base, r.base != ""
}

// Probe re-attempts the candidate list from the start and pins the first
// address whose /health answers 2xx within the probe timeout. Exhausting the
// list sets Disconnected and clears the base, so a later probe can recover a
// previously failed address.
func (r *Resolver) Probe(ctx context.Context) models.Connectivity {
	result, _, _ := r.group.Do("probe", func() (interface{}, error) {
		return r.probe(ctx), nil
	})
	return result.(models.Connectivity)
}

func (r *Resolver) probe(ctx context.Context) models.Connectivity {
	for _, candidate := range r.candidates {
		if r.alive(ctx, candidate) {
			r.mu.Lock()
			r.state = models.ConnectivityConnected
			r.base = candidate
			r.mu.Unlock()

			r.logger.WithField("base", candidate).Debug("Backend reachable")
			return models.ConnectivityConnected
		}
	}

	r.mu.Lock()
	r.state = models.ConnectivityDisconnected
	r.base = ""
	r.mu.Unlock()

	r.logger.WithField("candidates", len(r.candidates)).Warn("No backend candidate is reachable")
	return models.ConnectivityDisconnected
}

// alive issues the lightweight liveness check against one candidate
func (r *Resolver) alive(ctx context.Context, base string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.WithError(err).WithField("base", base).Debug("Liveness check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
