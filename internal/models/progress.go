package models

import (
	"math"
	"sync"
)

// Progress tracks one download from Starting to a terminal phase. One instance
// exists per tracked item; the owning controller is the only writer.
type Progress struct {
	mu            sync.Mutex
	bytesReceived int64
	bytesTotal    int64 // -1 when the server sent no Content-Length
	percentage    int
	phase         Phase
	err           error
	filename      string
}

// ProgressSnapshot is a point-in-time copy safe to hand to other goroutines
type ProgressSnapshot struct {
	BytesReceived int64  `json:"bytes_received"`
	BytesTotal    int64  `json:"bytes_total"`
	Percentage    int    `json:"percentage"`
	HasPercentage bool   `json:"has_percentage"`
	Phase         Phase  `json:"phase"`
	Error         string `json:"error,omitempty"`
	Filename      string `json:"filename,omitempty"`
}

// NewProgress returns a Progress in the Starting phase with an unknown total
func NewProgress() *Progress {
	return &Progress{bytesTotal: -1, phase: PhaseStarting}
}

// SetTotal records the declared byte total; pass -1 for unknown
func (p *Progress) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bytesTotal = total
}

// Add accumulates received bytes and recomputes the percentage. The
// percentage is clamped to [0,100] and never decreases; when the total is
// unknown no percentage is derived at all.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bytesReceived += n
	if p.bytesTotal <= 0 {
		return
	}
	pct := int(math.Round(float64(p.bytesReceived) / float64(p.bytesTotal) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct > p.percentage {
		p.percentage = pct
	}
}

// SetPhase advances the lifecycle phase
func (p *Progress) SetPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	if phase == PhaseDone && p.bytesTotal > 0 {
		p.percentage = 100
	}
}

// Fail marks the progress terminal with a cause
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PhaseFailed
	p.err = err
}

// SetFilename records the artifact name once it is known
func (p *Progress) SetFilename(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filename = name
}

// Snapshot returns a consistent copy of the current state
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := ProgressSnapshot{
		BytesReceived: p.bytesReceived,
		BytesTotal:    p.bytesTotal,
		Percentage:    p.percentage,
		HasPercentage: p.bytesTotal > 0,
		Phase:         p.phase,
		Filename:      p.filename,
	}
	if p.err != nil {
		snap.Error = p.err.Error()
	}
	return snap
}
