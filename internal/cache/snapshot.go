package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

const timestampField = "timestamp"

// Snapshot is a decoded cache document.
type Snapshot[T any] struct {
	Records   []T
	Timestamp time.Time
}

// Encode renders {"<field>": records, "timestamp": <unix ms>}.
func Encode[T any](field string, records []T, ts time.Time) ([]byte, error) {
	if field == "" || field == timestampField {
		return nil, fmt.Errorf("%w: field %q", ErrInvalidKey, field)
	}
	if records == nil {
		records = []T{}
	}
	return json.Marshal(map[string]interface{}{
		field:          records,
		timestampField: ts.UnixMilli(),
	})
}

// Decode parses a document written by Encode.
func Decode[T any](field string, data []byte) (*Snapshot[T], error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cache document: %w", err)
	}
	rawRecords, ok := doc[field]
	if !ok {
		return nil, fmt.Errorf("decode cache document: missing %q", field)
	}

	snap := &Snapshot[T]{}
	if err := json.Unmarshal(rawRecords, &snap.Records); err != nil {
		return nil, fmt.Errorf("decode cache records: %w", err)
	}
	if rawTS, ok := doc[timestampField]; ok {
		var ms int64
		if err := json.Unmarshal(rawTS, &ms); err == nil {
			snap.Timestamp = time.UnixMilli(ms).UTC()
		}
	}
	return snap, nil
}

// Load reads and decodes key from store. A missing key returns ErrNotFound.
func Load[T any](ctx context.Context, store Store, key, field string) (*Snapshot[T], error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Decode[T](field, data)
}

// Save encodes records and writes them under key.
func Save[T any](ctx context.Context, store Store, key, field string, records []T, ts time.Time) error {
	data, err := Encode(field, records, ts)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
