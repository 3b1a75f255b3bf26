package store

import (
	"fmt"
	"log/slog"
	"os"

	"kvlog/pkg/kverrors"
)

// Compact rewrites every live record into a fresh archive segment and
// deletes all segments it supersedes. Two generations are allocated
// in one step: the lower becomes the archive holding the rewritten
// data, the higher becomes the new active segment, so compaction
// output and incoming writes never share a file and every generation
// below the archive is fully superseded.
func (s *Store) Compact() error {
	if s.closed {
		return kverrors.ErrClosed
	}

	archiveGen := s.writer.gen + 1
	activeGen := s.writer.gen + 2

	// Advance the writer to the new active generation before any
	// rewriting. Both ids are thereby claimed up front: an aborted
	// attempt is never retried under the same generations, keeping
	// them strictly increasing even across failed compactions.
	if err := s.writer.close(); err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	writer, err := s.newSegment(activeGen)
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	s.writer = writer

	archive, err := s.newSegment(archiveGen)
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}

	// Rewrite live records one at a time, moving each index entry to
	// its archive location immediately. A failure mid-rewrite leaves
	// every entry pointing at valid bytes: processed keys at the
	// archive, the rest at their old, not yet deleted segments.
	var rewriteErr error
	s.index.walk(func(key string, entry indexEntry) bool {
		line, err := s.lineAt(entry)
		if err != nil {
			rewriteErr = err
			return false
		}
		offset, err := archive.append(line)
		if err != nil {
			rewriteErr = err
			return false
		}
		s.index.put(key, indexEntry{gen: archiveGen, offset: offset})
		return true
	})
	if rewriteErr != nil {
		archive.close()
		return fmt.Errorf("compaction failed: %w", rewriteErr)
	}

	liveBytes := archive.cursor
	if err := archive.close(); err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}

	// Everything below the archive is superseded. Close each handle
	// before unlinking its file.
	removed := 0
	for gen, reader := range s.readers {
		if gen >= archiveGen {
			continue
		}
		if err := reader.close(); err != nil {
			return fmt.Errorf("compaction failed to close segment %d: %w", gen, err)
		}
		delete(s.readers, gen)
		if err := os.Remove(segmentPath(s.path, gen)); err != nil {
			return fmt.Errorf("compaction failed to delete segment %d: %w", gen, err)
		}
		removed++
	}

	slog.Info("compaction finished",
		"archive_generation", archiveGen,
		"active_generation", activeGen,
		"live_bytes", liveBytes,
		"keys", s.index.len(),
		"segments_removed", removed,
	)

	return nil
}
