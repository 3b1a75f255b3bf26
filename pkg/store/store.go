// Package store implements a persistent key-value store backed by
// append-only log segments. Writes append JSON-line records to the
// active segment; an in-memory index maps each key to the location of
// its latest live record; crossing a size threshold rewrites all live
// records into a fresh segment and reclaims the superseded files.
//
// A Store assumes a single owner: it is not safe for concurrent use,
// and a directory lock rejects a second instance opening the same
// storage directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"kvlog/pkg/config"
	"kvlog/pkg/kverrors"
)

const defaultCompactionThreshold = 1 << 20

// Store is a handle to one storage directory.
type Store struct {
	path      string
	threshold uint64

	index   *keyIndex
	readers map[uint64]*segmentReader
	writer  *segmentWriter
	lock    *dirLock
	closed  bool
}

// Open prepares the storage directory, creating it if absent, and
// rebuilds the in-memory index by replaying every existing segment in
// ascending generation order. A fresh active segment is created with
// generation max(existing)+1, or 0 for an empty directory.
func Open(path string, cfg config.StorageConfig) (*Store, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return nil, kverrors.ErrInvalidPath
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat storage directory: %w", err)
	}
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	threshold := uint64(defaultCompactionThreshold)
	if cfg.CompactionThresholdBytes > 0 {
		threshold = uint64(cfg.CompactionThresholdBytes)
	}

	s := &Store{
		path:      path,
		threshold: threshold,
		index:     newKeyIndex(),
		readers:   make(map[uint64]*segmentReader),
		lock:      lock,
	}

	gens, err := listGenerations(path)
	if err != nil {
		s.abandon()
		return nil, err
	}

	for _, gen := range gens {
		reader, err := openSegment(segmentPath(path, gen))
		if err != nil {
			s.abandon()
			return nil, err
		}
		s.readers[gen] = reader
	}

	if err := s.replay(gens); err != nil {
		s.abandon()
		return nil, err
	}

	active := uint64(0)
	if len(gens) > 0 {
		active = gens[len(gens)-1] + 1
	}
	if s.writer, err = s.newSegment(active); err != nil {
		s.abandon()
		return nil, err
	}

	slog.Info("store opened",
		"path", path,
		"segments", len(gens),
		"keys", s.index.len(),
		"active_generation", active,
	)

	return s, nil
}

// replay rebuilds the index from the discovered segments. Generations
// are applied in ascending order, records in file order, so the last
// writer wins across arbitrarily many historical segments.
func (s *Store) replay(gens []uint64) error {
	for _, gen := range gens {
		torn, err := s.readers[gen].replay(func(offset uint64, line []byte) error {
			rec, err := decodeRecord(line)
			if err != nil {
				return err
			}
			switch rec.Op {
			case opSet:
				s.index.put(rec.Key, indexEntry{gen: gen, offset: offset})
			case opRemove:
				s.index.delete(rec.Key)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("replay of segment %d failed: %w", gen, err)
		}
		if torn {
			slog.Warn("ignored torn record at end of segment", "generation", gen)
		}
	}
	return nil
}

// newSegment creates the segment file for gen and registers a cached
// read handle for it.
func (s *Store) newSegment(gen uint64) (*segmentWriter, error) {
	writer, err := createSegment(s.path, gen)
	if err != nil {
		return nil, err
	}
	reader, err := openSegment(segmentPath(s.path, gen))
	if err != nil {
		writer.close()
		return nil, err
	}
	s.readers[gen] = reader
	return writer, nil
}

// Get returns the value stored under key. A missing key is reported
// via the bool, not an error.
func (s *Store) Get(key string) (string, bool, error) {
	if s.closed {
		return "", false, kverrors.ErrClosed
	}

	entry, ok := s.index.get(key)
	if !ok {
		return "", false, nil
	}

	line, err := s.lineAt(entry)
	if err != nil {
		return "", false, err
	}
	rec, err := decodeRecord(line)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", kverrors.ErrCorruption, err)
	}
	if rec.Op != opSet {
		return "", false, fmt.Errorf("%w: index points at %q record for key %q",
			kverrors.ErrCorruption, rec.Op, key)
	}

	return rec.Value, true, nil
}

// lineAt reads the raw record line an index entry points at.
func (s *Store) lineAt(entry indexEntry) ([]byte, error) {
	reader, ok := s.readers[entry.gen]
	if !ok {
		return nil, fmt.Errorf("%w: no open handle for generation %d",
			kverrors.ErrCorruption, entry.gen)
	}
	return reader.readLineAt(entry.offset)
}

// Set stores value under key, overwriting any previous value. The
// record is durable once Set returns.
func (s *Store) Set(key, value string) error {
	if s.closed {
		return kverrors.ErrClosed
	}

	line, err := encodeRecord(record{Op: opSet, Key: key, Value: value})
	if err != nil {
		return err
	}

	offset, err := s.writer.append(line)
	if err != nil {
		return err
	}
	s.index.put(key, indexEntry{gen: s.writer.gen, offset: offset})

	return s.maybeCompact()
}

// Remove deletes key. It fails with ErrKeyNotFound, writing nothing,
// if the key is absent.
func (s *Store) Remove(key string) error {
	if s.closed {
		return kverrors.ErrClosed
	}

	if _, ok := s.index.get(key); !ok {
		return kverrors.ErrKeyNotFound
	}

	line, err := encodeRecord(record{Op: opRemove, Key: key})
	if err != nil {
		return err
	}

	if _, err := s.writer.append(line); err != nil {
		return err
	}
	s.index.delete(key)

	return s.maybeCompact()
}

func (s *Store) maybeCompact() error {
	if s.writer.cursor > s.threshold {
		return s.Compact()
	}
	return nil
}

// Keys returns all live keys in ascending order.
func (s *Store) Keys() []string {
	if s.closed {
		return nil
	}
	return s.index.keys()
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	if s.closed {
		return 0
	}
	return s.index.len()
}

// Close flushes the active segment, closes every cached read handle
// and releases the directory lock. The store is unusable afterwards.
func (s *Store) Close() error {
	if s.closed {
		return kverrors.ErrClosed
	}
	s.closed = true

	var errs []error
	if err := s.writer.close(); err != nil {
		errs = append(errs, err)
	}
	for gen, reader := range s.readers {
		if err := reader.close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close segment %d: %w", gen, err))
		}
	}
	if err := s.lock.release(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// abandon tears down a partially opened store.
func (s *Store) abandon() {
	for _, reader := range s.readers {
		reader.close()
	}
	if s.writer != nil {
		s.writer.close()
	}
	if err := s.lock.release(); err != nil {
		slog.Warn("failed to release directory lock", "error", err)
	}
}
