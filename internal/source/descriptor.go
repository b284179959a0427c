// Package source resolves a logical resource by trying an ordered list of sources
// (remote API, durable cache, bundled file, hardcoded list) and keeping the last
// remote result in memory for a TTL.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/models"
)

type Kind int

const (
	RemoteAPI Kind = iota
	LocalCache
	BundledStatic
	Hardcoded
)

func (k Kind) String() string {
	switch k {
	case RemoteAPI:
		return "remote_api"
	case LocalCache:
		return "local_cache"
	case BundledStatic:
		return "bundled_static"
	case Hardcoded:
		return "hardcoded"
	default:
		return "unknown"
	}
}

// LoadFunc produces the raw records of one source for key.
type LoadFunc func(ctx context.Context, key string) ([]models.RawRecord, error)

// Descriptor is one entry of a chain. Lower Priority is tried first. Load is not
// used for LocalCache descriptors: those read the chain's own store.
type Descriptor struct {
	Name     string
	Kind     Kind
	Enabled  bool
	Priority int
	Load     LoadFunc
}

// Attempt records how one source fared during a resolve.
type Attempt struct {
	Source  string
	Kind    Kind
	Records int
	Err     error
}

// ErrAllSourcesExhausted matches every *ExhaustedError.
var ErrAllSourcesExhausted = errors.New("ALL_SOURCES_EXHAUSTED")

// ExhaustedError is returned when no enabled source produced usable records.
type ExhaustedError struct {
	Resource string
	Key      string
	Attempts []Attempt
	std      *apperrors.StandardError
}

func newExhaustedError(resource, key string, attempts []Attempt) *ExhaustedError {
	tried := make([]string, 0, len(attempts))
	for _, a := range attempts {
		tried = append(tried, a.Source)
	}
	return &ExhaustedError{
		Resource: resource,
		Key:      key,
		Attempts: attempts,
		std:      apperrors.NewAllSourcesExhaustedError(resource, tried),
	}
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s %q: no enabled sources", e.Resource, e.Key)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
	}
	return fmt.Sprintf("%s %q: all sources failed (%s)", e.Resource, e.Key, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllSourcesExhausted }

// Unwrap exposes the StandardError so HTTP surfaces can render it.
func (e *ExhaustedError) Unwrap() error { return e.std }
