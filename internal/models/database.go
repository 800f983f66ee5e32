package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding download history
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// History operations

// AddHistory records a finished download
func (db *Database) AddHistory(entry *HistoryEntry) error {
	entry.FinishedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), entry)
}

// GetAllHistory retrieves every recorded download, newest first
func (db *Database) GetAllHistory() ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := db.store.Find(&entries, (&bolthold.Query{}).SortBy("FinishedAt").Reverse())
	return entries, err
}

// GetHistoryByOutcome retrieves downloads with the given outcome
func (db *Database) GetHistoryByOutcome(outcome Outcome) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := db.store.Find(&entries, bolthold.Where("Outcome").Eq(outcome))
	return entries, err
}

// PruneHistoryBefore deletes entries finished before the cutoff and returns
// how many were removed
func (db *Database) PruneHistoryBefore(cutoff time.Time) (int, error) {
	var stale []*HistoryEntry
	query := bolthold.Where("FinishedAt").Lt(cutoff)
	if err := db.store.Find(&stale, query); err != nil {
		return 0, err
	}
	if err := db.store.DeleteMatching(&HistoryEntry{}, query); err != nil {
		return 0, err
	}
	return len(stale), nil
}
