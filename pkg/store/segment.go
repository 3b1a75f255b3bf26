package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const segmentExt = ".log"

// segmentPath returns the file path of one generation's segment.
func segmentPath(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+segmentExt)
}

// listGenerations enumerates the segment files in dir, ascending.
// Files whose name is not "<uint64>.log" are ignored.
func listGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	var gens []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), segmentExt)
		if !ok {
			continue
		}
		gen, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })

	return gens, nil
}

// segmentWriter appends records to the active segment. Every append
// is flushed and synced before it returns.
type segmentWriter struct {
	gen    uint64
	file   *os.File
	writer *bufio.Writer
	cursor uint64
}

func createSegment(dir string, gen uint64) (*segmentWriter, error) {
	// Generations are never reused, so the file must not exist yet.
	file, err := os.OpenFile(segmentPath(dir, gen), os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment %d: %w", gen, err)
	}

	return &segmentWriter{
		gen:    gen,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// append writes one encoded record and returns the offset it was
// written at.
func (w *segmentWriter) append(line []byte) (uint64, error) {
	offset := w.cursor

	if _, err := w.writer.Write(line); err != nil {
		return 0, fmt.Errorf("failed to append to segment %d: %w", w.gen, err)
	}
	if err := w.sync(); err != nil {
		return 0, err
	}

	w.cursor += uint64(len(line))

	return offset, nil
}

func (w *segmentWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush segment %d: %w", w.gen, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync segment %d: %w", w.gen, err)
	}
	return nil
}

func (w *segmentWriter) close() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush segment %d on close: %w", w.gen, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close segment %d: %w", w.gen, err)
	}
	return nil
}

// segmentReader is a cached read handle over one segment file. It
// lives for as long as any index entry references its generation.
type segmentReader struct {
	file   *os.File
	reader *bufio.Reader
}

func openSegment(path string) (*segmentReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment: %w", err)
	}

	return &segmentReader{
		file:   file,
		reader: bufio.NewReader(file),
	}, nil
}

// readLineAt seeks to offset and reads exactly one record line.
func (r *segmentReader) readLineAt(offset uint64) ([]byte, error) {
	if _, err := r.file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek segment: %w", err)
	}
	r.reader.Reset(r.file)

	line, err := r.reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	return line, nil
}

// replay streams every complete record line in file order, invoking
// fn with the offset the line starts at. A trailing line without a
// newline is treated as a torn append and skipped; torn reports
// whether such a line was seen.
func (r *segmentReader) replay(fn func(offset uint64, line []byte) error) (torn bool, err error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to rewind segment: %w", err)
	}
	r.reader.Reset(r.file)

	var offset uint64
	for {
		line, err := r.reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A non-empty remainder has no terminating newline:
			// a torn append from an interrupted writer.
			return len(line) > 0, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read segment: %w", err)
		}

		if err := fn(offset, line); err != nil {
			return false, err
		}
		offset += uint64(len(line))
	}
}

func (r *segmentReader) close() error {
	return r.file.Close()
}
