package models

import "time"

// HistoryEntry records one finished download (or one playlist item)
type HistoryEntry struct {
	ID      uint64 `boltholdKey:"ID"`
	VideoID string `boltholdIndex:"VideoID"`

	Title     string
	SourceURL string
	Format    Format
	Quality   string

	Outcome  Outcome `boltholdIndex:"Outcome"`
	Filename string
	Bytes    int64
	Reason   string // failure cause, empty on success

	CreatedAt  time.Time
	FinishedAt time.Time
}
