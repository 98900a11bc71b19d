package snapshotstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gradewatch/internal/grades"
)

// encodeSnapshot renders the on-disk layout: an indented UTF-8 json array
// of {subject, grade, status} objects.
func encodeSnapshot(snapshot grades.Snapshot) ([]byte, error) {
	if snapshot == nil {
		snapshot = grades.Snapshot{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(snapshot)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (grades.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a json array", ErrCorrupt)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var snapshot grades.Snapshot
	err := dec.Decode(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after snapshot", ErrCorrupt)
	}

	err = snapshot.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if snapshot == nil {
		snapshot = grades.Snapshot{}
	}
	return snapshot, nil
}
