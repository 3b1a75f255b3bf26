package store

import (
	"encoding/json"
	"fmt"

	"kvlog/pkg/kverrors"
)

// Record operations as stored on disk.
const (
	opSet    = "set"
	opRemove = "remove"
)

// record is one log entry, serialized as a single JSON line.
// json.Marshal escapes control characters, so a record never spans
// more than one line regardless of key or value contents.
type record struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// encodeRecord serializes a record as one newline-terminated line.
func encodeRecord(rec record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeRecord parses one log line. A trailing newline is accepted.
func decodeRecord(line []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", kverrors.ErrBadRecord, err)
	}
	if rec.Op != opSet && rec.Op != opRemove {
		return rec, fmt.Errorf("%w: unknown op %q", kverrors.ErrBadRecord, rec.Op)
	}
	return rec, nil
}
