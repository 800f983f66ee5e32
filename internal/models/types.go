package models

// Format represents the container/codec the user asked for
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatMKV  Format = "mkv"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatAAC  Format = "aac"
	FormatM4A  Format = "m4a"
)

// ParseFormat validates a user-supplied format string
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatMP4, FormatWebM, FormatMKV, FormatMP3, FormatWAV, FormatAAC, FormatM4A:
		return Format(s), true
	}
	return "", false
}

// IsAudio reports whether the format is audio-only
func (f Format) IsAudio() bool {
	switch f {
	case FormatMP3, FormatWAV, FormatAAC, FormatM4A:
		return true
	}
	return false
}

// Connectivity represents the process-wide backend reachability state
type Connectivity string

const (
	ConnectivityUnknown      Connectivity = "unknown"
	ConnectivityConnected    Connectivity = "connected"
	ConnectivityDisconnected Connectivity = "disconnected"
)

// Phase represents the lifecycle stage of a single download
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseTransferring Phase = "transferring"
	PhaseFinalizing   Phase = "finalizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Terminal reports whether no further progress can occur in this phase
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Outcome represents the recorded result of a finished download
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)
