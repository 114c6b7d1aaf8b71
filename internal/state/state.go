package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketAnnounced = []byte("announced")

// Ledger records which albums have already been announced on each feed,
// backed by BoltDB so restarts never cause duplicate notifications.
// Implements domain.Ledger.
type Ledger struct {
	db *bolt.DB
}

// Open opens (or creates) the ledger database at the given path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAnnounced)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Announced reports whether the album id was already announced on the
// given feed.
func (l *Ledger) Announced(feed, id string) bool {
	found := false
	l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAnnounced)
		if b == nil {
			return nil
		}
		found = b.Get(key(feed, id)) != nil
		return nil
	})
	return found
}

// MarkAnnounced records the album ids as announced on the given feed.
// Marking an id twice is harmless.
func (l *Ledger) MarkAnnounced(feed string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAnnounced)
		for _, id := range ids {
			if err := b.Put(key(feed, id), stamp); err != nil {
				return err
			}
		}
		return nil
	})
}

func key(feed, id string) []byte {
	return []byte(feed + ":" + id)
}
