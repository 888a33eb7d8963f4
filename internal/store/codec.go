package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/chunkr/internal/domain"
)

// Encode serializes a record for backends that store bytes. Timestamps are
// written as RFC 3339 with nanoseconds, so decoding yields the same instants.
func Encode(rec *domain.TaskRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task %s: %w", rec.ID, err)
	}
	return data, nil
}

// Decode parses bytes produced by Encode. Truncated or otherwise invalid data
// yields an error wrapping ErrCorruptRecord.
func Decode(data []byte) (*domain.TaskRecord, error) {
	var rec domain.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}

// ValidateID rejects IDs that are unusable as keys in file names or
// key-value namespaces.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if strings.ContainsAny(id, `/\*?`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// NormalizeResult converts result into the form every backend returns after
// a round trip: JSON objects, arrays, strings, bools, float64 numbers and
// nil. Saving normalized results keeps Get identical across backends.
func NormalizeResult(result map[string]any) (map[string]any, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: result is not serializable: %v", ErrInvalidRecord, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: result is not serializable: %v", ErrInvalidRecord, err)
	}
	return out, nil
}
