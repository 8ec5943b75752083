// Package cyclestate persists, per session, the watchdog's cycle counter and
// the session age measured on the boot clock, plus the wall-clock high-water
// mark. None of them depends on the wall clock being honest, so together
// they back the clock-skew guard across restarts.
package cyclestate

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/lockin/internal/lockin/domain"
)

var (
	bucketCycles = []byte("cycles")
	bucketMeta   = []byte("meta")
	keyHighWater = []byte("high_water")
)

// Store is a bbolt-backed cycle counter. Counters are keyed by session
// (its signature); only the most recent session's counter is kept.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path and ensures buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cycle state %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCycles); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Tick records one watchdog cycle for the session identified by key at wall
// time now, with up the boot clock reading taken for this cycle. It returns
// the cycle count including this one, the session age proven by the boot
// clock, and the high-water mark as it stood before this cycle. Counters of
// other sessions are discarded.
//
// Only boot-clock progress ages a session, so cycles run back to back leave
// Monotonic unchanged. An invalid reading adds nothing and keeps the last
// valid one as the reference.
func (s *Store) Tick(key string, now time.Time, up domain.Uptime) (domain.CycleTick, error) {
	var tick domain.CycleTick
	err := s.db.Update(func(tx *bbolt.Tx) error {
		cycles := tx.Bucket(bucketCycles)
		meta := tx.Bucket(bucketMeta)

		if v := meta.Get(keyHighWater); len(v) == 8 {
			tick.HighWater = time.Unix(0, int64(binary.BigEndian.Uint64(v))).UTC()
		}

		var rec record
		var stale [][]byte
		c := cycles.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(k) == key {
				rec = decodeRecord(v)
				continue
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := cycles.Delete(k); err != nil {
				return err
			}
		}

		rec.cycles++
		rec.monotonic += up.ElapsedFrom(rec.last)
		if up.Valid() {
			rec.last = up
		}
		if err := cycles.Put([]byte(key), rec.encode()); err != nil {
			return err
		}
		tick.Cycles = rec.cycles
		tick.Monotonic = rec.monotonic

		if now.After(tick.HighWater) {
			return meta.Put(keyHighWater, u64(uint64(now.UnixNano())))
		}
		return nil
	})
	if err != nil {
		return domain.CycleTick{}, fmt.Errorf("recording watchdog cycle: %w", err)
	}
	return tick, nil
}

// record is one session's counter: cycles seen, boot-clock age, and the
// last valid boot clock reading. Encoded as three big-endian uint64s
// followed by the boot id.
type record struct {
	cycles    uint64
	monotonic time.Duration
	last      domain.Uptime
}

const recordHeader = 24

func decodeRecord(v []byte) record {
	if len(v) < recordHeader {
		return record{}
	}
	return record{
		cycles:    binary.BigEndian.Uint64(v[0:8]),
		monotonic: time.Duration(binary.BigEndian.Uint64(v[8:16])),
		last: domain.Uptime{
			Elapsed: time.Duration(binary.BigEndian.Uint64(v[16:24])),
			BootID:  string(v[recordHeader:]),
		},
	}
}

func (r record) encode() []byte {
	buf := make([]byte, recordHeader, recordHeader+len(r.last.BootID))
	binary.BigEndian.PutUint64(buf[0:8], r.cycles)
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.monotonic))
	binary.BigEndian.PutUint64(buf[16:24], uint64(r.last.Elapsed))
	return append(buf, r.last.BootID...)
}

// Reset forgets every counter and the high-water mark. The watchdog calls it
// once a session has been released and whenever no session is active.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCycles, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
