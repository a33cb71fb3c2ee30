// Package state persists per-file sync bookkeeping between runs.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const filesBucket = "files"

// FileRecord is what we remember about a file we downloaded.
type FileRecord struct {
	Version  string    `json:"version,omitempty"`
	Size     int64     `json:"size"`
	SyncedAt time.Time `json:"synced_at"`
}

// Store is a bbolt-backed record of previously synced files, keyed by path
// relative to the sync target. It lets the file handler skip content whose
// version has not changed without re-fetching it.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store database at path.
func Open(path string) (*Store, error) {
	// the timeout guards against a second iliassync holding the lock
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(filesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create state bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the record for rel, if any.
func (s *Store) Lookup(rel string) (FileRecord, bool, error) {
	var (
		rec   FileRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(filesBucket)).Get([]byte(rel))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("lookup %s: %w", rel, err)
	}
	return rec, found, nil
}

// Record stores rec under rel, stamping the sync time.
func (s *Store) Record(rel string, rec FileRecord) error {
	rec.SyncedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(filesBucket)).Put([]byte(rel), data)
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", rel, err)
	}
	return nil
}
