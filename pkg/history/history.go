package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/playgrid/warden/pkg/events"
	"github.com/playgrid/warden/pkg/log"
)

var bucketRecords = []byte("records")

// Record is one journaled agent event.
type Record struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Journal is a BoltDB-backed append-only log of launch and port events.
// It exists for after-the-fact debugging of a node; losing it costs
// nothing but history, so every write is best-effort.
type Journal struct {
	db     *bolt.DB
	stopCh chan struct{}
}

// Open creates or opens the journal under dataDir.
func Open(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "warden-journal.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Journal{db: db, stopCh: make(chan struct{})}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	close(j.stopCh)
	return j.db.Close()
}

// Append writes one record. The record's sequence number is assigned
// from the bucket's autoincrementing counter.
func (j *Journal) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		data, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// Recent returns up to n records, newest first.
func (j *Journal) Recent(n int) ([]Record, error) {
	var out []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// Follow subscribes to the broker and journals every event until the
// journal is closed or the subscription drained. Runs on its own
// goroutine; journal write failures are logged and swallowed.
func (j *Journal) Follow(broker *events.Broker) {
	sub := broker.Subscribe()
	go func() {
		defer broker.Unsubscribe(sub)
		logger := log.WithComponent("history")
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				rec := Record{
					Timestamp: ev.Timestamp,
					Type:      string(ev.Type),
					Message:   ev.Message,
					Metadata:  ev.Metadata,
				}
				if err := j.Append(rec); err != nil {
					logger.Warn().Err(err).Msg("failed to journal event")
				}
			case <-j.stopCh:
				return
			}
		}
	}()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
