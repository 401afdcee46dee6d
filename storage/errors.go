package storage

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a session or case record is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKey is returned for an empty user or case identifier.
	ErrInvalidKey = errors.New("invalid key")
)

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	return strings.Contains(err.Error(), "key not found")
}
