// Package store is the durable state store described in spec §4.2: an
// ordered key-value map from canonical id to last-known canonical state,
// single-writer, crash-safe. It layers an in-memory hashicorp/go-memdb
// index (continuing the teacher's pkg/state collection pattern) over a
// durable go.etcd.io/bbolt backing store, so producers get lock-free
// indexed reads while the consumer's writes survive a crash.
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	memdb "github.com/hashicorp/go-memdb"
	bolt "go.etcd.io/bbolt"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

var (
	bucketCanonical  = []byte("canonical")
	bucketByUpstream = []byte("byupstream")
)

const (
	tableTask       = "task"
	indexID         = "id"
	indexUpstreamID = "upstream_id"
	indexAll        = "all"
)

var taskTableSchema = &memdb.TableSchema{
	Name: tableTask,
	Indexes: map[string]*memdb.IndexSchema{
		indexID: {
			Name:    indexID,
			Unique:  true,
			Indexer: &memdb.StringFieldIndex{Field: "ID"},
		},
		indexUpstreamID: {
			Name:         indexUpstreamID,
			Unique:       true,
			AllowMissing: true,
			Indexer:      &memdb.StringFieldIndex{Field: "UpstreamID"},
		},
		indexAll: {
			Name: indexAll,
			Indexer: &memdb.ConditionalIndex{
				Conditional: func(_ interface{}) (bool, error) { return true, nil },
			},
		},
	},
}

// memTask is the memdb-indexed mirror record. ID/UpstreamID are lifted to
// plain strings so go-memdb's StringFieldIndex can reflect over them
// without caring about canonical.ID's defined-type wrapping.
type memTask struct {
	ID         string
	UpstreamID string
	Task       canonical.Task
}

// Store is the durable canonical-task state store.
type Store struct {
	db  *bolt.DB
	mem *memdb.MemDB

	// mu serializes Put/Delete against the memdb mirror. The store
	// follows the single-writer discipline of spec §5 ("writes only
	// from the consumer"); this mutex exists so a misbehaving caller
	// can't interleave two writers and tear the mirror, not to support
	// concurrent writers by design.
	mu sync.Mutex
}

// Open opens (or creates) the bbolt file at path and rebuilds the memdb
// mirror from its contents.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCanonical); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketByUpstream)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}

	mem, err := memdb.NewMemDB(&memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{tableTask: taskTableSchema},
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing index: %w", err)
	}

	s := &Store{db: db, mem: mem}
	if err := s.rebuildMirror(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rebuilding index from disk: %w", err)
	}
	return s, nil
}

// Close closes the backing bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying bbolt handle so collaborators that want to
// colocate their own buckets in the same file (e.g. pkg/deadletter) can
// share one open database instead of a second file descriptor.
func (s *Store) DB() *bolt.DB {
	return s.db
}

func (s *Store) rebuildMirror() error {
	txn := s.mem.Txn(true)
	defer txn.Abort()

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCanonical)
		return b.ForEach(func(_, v []byte) error {
			var task canonical.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("decoding stored task: %w", err)
			}
			return txn.Insert(tableTask, toMemTask(task))
		})
	})
	if err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func toMemTask(t canonical.Task) *memTask {
	return &memTask{ID: string(t.ID), UpstreamID: t.UpstreamID, Task: t}
}

// Get returns the stored task for id, or (nil, nil) if absent.
func (s *Store) Get(id canonical.ID) (*canonical.Task, error) {
	txn := s.mem.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableTask, indexID, string(id))
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}
	t := raw.(*memTask).Task
	return &t, nil
}

// GetByUpstreamID resolves a canonical id via the upstream_id secondary
// index (spec §4.2: "upstream_id -> id").
func (s *Store) GetByUpstreamID(upstreamID string) (*canonical.Task, error) {
	txn := s.mem.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableTask, indexUpstreamID, upstreamID)
	if err != nil {
		return nil, fmt.Errorf("looking up upstream id %s: %w", upstreamID, err)
	}
	if raw == nil {
		return nil, nil
	}
	t := raw.(*memTask).Task
	return &t, nil
}

// Put atomically writes task to both logical maps (spec §6: "Writes are
// grouped so both updates commit atomically") and refreshes the memdb
// mirror. If task replaces a row with a different UpstreamID (shouldn't
// normally happen, since upstream_id is stable for the life of an id),
// the old byupstream entry is removed first. A task with an empty
// UpstreamID is stored without a byupstream entry.
func (s *Store) Put(task canonical.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", task.ID, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		canonicalBucket := tx.Bucket(bucketCanonical)
		upstreamBucket := tx.Bucket(bucketByUpstream)

		if prev := canonicalBucket.Get([]byte(task.ID)); prev != nil {
			var old canonical.Task
			if err := json.Unmarshal(prev, &old); err == nil && old.UpstreamID != "" && old.UpstreamID != task.UpstreamID {
				if err := upstreamBucket.Delete([]byte(old.UpstreamID)); err != nil {
					return err
				}
			}
		}

		if err := canonicalBucket.Put([]byte(task.ID), encoded); err != nil {
			return err
		}
		if task.UpstreamID == "" {
			return nil
		}
		return upstreamBucket.Put([]byte(task.UpstreamID), []byte(task.ID))
	})
	if err != nil {
		return fmt.Errorf("writing task %s: %w", task.ID, err)
	}

	txn := s.mem.Txn(true)
	if err := txn.Insert(tableTask, toMemTask(task)); err != nil {
		txn.Abort()
		return fmt.Errorf("updating index for %s: %w", task.ID, err)
	}
	txn.Commit()
	return nil
}

// Delete atomically removes task id from both logical maps and the
// mirror. This is invariant 2's "Terminal is absorbing": the row is
// deleted within the same transaction that observes Terminal, so
// Terminal never rests in the store.
func (s *Store) Delete(id canonical.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		canonicalBucket := tx.Bucket(bucketCanonical)
		upstreamBucket := tx.Bucket(bucketByUpstream)

		raw := canonicalBucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var task canonical.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return fmt.Errorf("decoding task %s: %w", id, err)
		}
		if err := upstreamBucket.Delete([]byte(task.UpstreamID)); err != nil {
			return err
		}
		return canonicalBucket.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	txn := s.mem.Txn(true)
	if _, err := txn.DeleteAll(tableTask, indexID, string(id)); err != nil {
		txn.Abort()
		return fmt.Errorf("updating index for delete of %s: %w", id, err)
	}
	txn.Commit()
	return nil
}

// Iterator walks every stored task, used for startup reconciliation and
// the status collaborator's full-store query (spec §4.2: "iter_all ->
// lazy sequence").
type Iterator struct {
	txn  *memdb.Txn
	iter memdb.ResultIterator
}

// Next returns the next task, or (nil, false) once exhausted.
func (it *Iterator) Next() (*canonical.Task, bool) {
	raw := it.iter.Next()
	if raw == nil {
		it.txn.Abort()
		return nil, false
	}
	t := raw.(*memTask).Task
	return &t, true
}

// IterAll returns a lazy iterator over every stored task.
func (s *Store) IterAll() (*Iterator, error) {
	txn := s.mem.Txn(false)
	iter, err := txn.Get(tableTask, indexAll)
	if err != nil {
		txn.Abort()
		return nil, fmt.Errorf("iterating store: %w", err)
	}
	return &Iterator{txn: txn, iter: iter}, nil
}

// All drains IterAll into a slice. Convenience for callers that don't
// need the lazy form (tests, the status collaborator).
func (s *Store) All() ([]canonical.Task, error) {
	it, err := s.IterAll()
	if err != nil {
		return nil, err
	}
	var out []canonical.Task
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, *t)
	}
	return out, nil
}
