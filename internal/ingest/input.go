// Package ingest handles the data boundary of the refinery: decoding raw
// extraction batches, reading source documents, and mining recruiting
// filenames for context hints. Everything past this boundary works on typed
// values; the two precondition violations the pipeline refuses to guess
// around (a batch that is not a list, a missing source text) surface here as
// sentinel errors.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hurttlocker/refinery/internal/refine"
)

// ErrNotArray reports an input batch that is neither a JSON array nor an
// object wrapping one under "extractions".
var ErrNotArray = errors.New("input batch must be a JSON array or an object with an \"extractions\" key")

// ErrNoSource reports an empty source document.
var ErrNoSource = errors.New("source text is empty")

// batchEnvelope is the wrapped input form produced by earlier pipeline runs.
type batchEnvelope struct {
	Extractions []*refine.Item `json:"extractions"`
}

// DecodeBatch parses a raw extraction batch. Both a bare array and the
// {"extractions": [...]} envelope are accepted.
func DecodeBatch(data []byte) ([]*refine.Item, error) {
	var items []*refine.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var envelope batchEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Extractions == nil {
		return nil, ErrNotArray
	}
	return envelope.Extractions, nil
}

// LoadBatch reads and decodes an extraction batch file.
func LoadBatch(path string) ([]*refine.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch %s: %w", path, err)
	}
	items, err := DecodeBatch(data)
	if err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", path, err)
	}
	return items, nil
}

// ReadSource reads the plain-text source document the batch was extracted
// from. Binary formats are out of scope: whatever rendered the document to
// text runs before the refinery.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNoSource)
	}
	return string(data), nil
}
