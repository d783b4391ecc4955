// Package deadletter stores non-retryable (§7 kind 3) sync failures,
// keyed by canonical id, for the external status collaborator named in
// spec §7 ("errors are surfaced through the state-store's dead-letter
// map; the external status collaborator reads it").
package deadletter

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

var bucketDeadLetters = []byte("deadletters")

// Entry is one dead-lettered diff, continuing the shape of the teacher's
// crud.ActionError (offending operation + error), generalized from "a
// failed Kong CRUD call" to "a failed canonical diff propagation."
type Entry struct {
	ID        canonical.ID    `json:"id"`
	Diff      canonical.TaskDiff `json:"diff"`
	Err       string          `json:"error"`
	Adapter   canonical.System `json:"adapter"`
	FailedAt  time.Time       `json:"failed_at"`
}

// Table is the dead-letter table. It shares a bbolt handle with the main
// state store isn't required; it opens its own bucket in whatever db it's
// given so callers can colocate it with store.Store's file.
type Table struct {
	db *bolt.DB
}

// Open opens (or creates) the dead-letter bucket in db.
func Open(db *bolt.DB) (*Table, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeadLetters)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("initializing dead-letter bucket: %w", err)
	}
	return &Table{db: db}, nil
}

// Put records a dead-lettered entry, overwriting any prior entry for the
// same id (the most recent failure is what operators care about).
func (t *Table) Put(e Entry) error {
	encoded, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding dead letter for %s: %w", e.ID, err)
	}
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeadLetters).Put([]byte(e.ID), encoded)
	})
}

// Get returns the dead-letter entry for id, or (nil, nil) if none.
func (t *Table) Get(id canonical.ID) (*Entry, error) {
	var entry *Entry
	err := t.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketDeadLetters).Get([]byte(id))
		if raw == nil {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("decoding dead letter for %s: %w", id, err)
		}
		entry = &e
		return nil
	})
	return entry, err
}

// Clear removes the dead-letter entry for id, e.g. once a later diff for
// the same id applies successfully.
func (t *Table) Clear(id canonical.ID) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeadLetters).Delete([]byte(id))
	})
}

// All returns every dead-lettered entry, for the status collaborator.
func (t *Table) All() ([]Entry, error) {
	var entries []Entry
	err := t.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeadLetters).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}
