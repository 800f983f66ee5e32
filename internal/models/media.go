package models

// Video represents metadata for a single downloadable item, built from an
// /info response. Immutable once constructed; replaced wholesale when the
// input URL changes.
type Video struct {
	ID              string
	Title           string
	DurationSeconds int // 0 when unknown
	Views           int64
	ThumbnailURL    string
	Uploader        string
	UploadDate      string // YYYYMMDD, empty when unknown

	// Qualities offered by the source, highest first
	AvailableQualities []string
}

// WatchURL returns the canonical URL for the item
func (v *Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// PlaylistItem is one entry of a playlist as reported by /playlist-info
type PlaylistItem struct {
	ID              string
	Title           string
	DurationSeconds int
	Views           int64
}

// WatchURL returns the canonical URL for the item
func (it *PlaylistItem) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + it.ID
}

// Playlist represents an ordered collection of items behind one URL
type Playlist struct {
	Title     string
	ItemCount int
	Items     []PlaylistItem
}

// DownloadRequest captures one user download action. Constructed fresh per
// action and never mutated afterwards.
type DownloadRequest struct {
	SourceURL string
	Format    Format
	Quality   string // one of AvailableQualities, or a default like "1080p"
	MaxItems  int    // playlist cap; 0 means use the configured default

	// Title is used for the fallback artifact name when the response
	// carries no filename
	Title string
}
