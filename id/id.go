// Package id generates the opaque identifiers handed out by the engine.
//
// Identifiers are TypeIDs of the form "prefix_suffix": the suffix is a
// base32 UUIDv7, so ids sort by creation time and are URL-safe. Callers
// must treat them as opaque strings; the job store is free to look up any
// string and report it as not found.
package id

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.jetify.com/typeid"
)

// Prefix identifies the entity type encoded in an id.
type Prefix string

// Prefix constants.
const (
	PrefixJob    Prefix = "job"
	PrefixWorker Prefix = "wkr"
	PrefixExport Prefix = "exp"
)

// ErrInvalid is returned by Parse for malformed ids.
var ErrInvalid = errors.New("id: invalid identifier")

// New returns a fresh id with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(p Prefix) string {
	tid, err := typeid.WithPrefix(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", p, err))
	}
	return tid.String()
}

// NewJobID generates a new unique job id.
func NewJobID() string { return New(PrefixJob) }

// NewWorkerID generates a new unique worker id.
func NewWorkerID() string { return New(PrefixWorker) }

// NewExportID generates a new unique export artifact id.
func NewExportID() string { return New(PrefixExport) }

// Parse validates s against the expected prefix and returns the UUID it
// encodes.
func Parse(s string, expected Prefix) (uuid.UUID, error) {
	tid, err := typeid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %w", ErrInvalid, s, err)
	}
	if Prefix(tid.Prefix()) != expected {
		return uuid.Nil, fmt.Errorf("%w: %q does not have prefix %q", ErrInvalid, s, expected)
	}
	u, err := uuid.Parse(tid.UUID())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %w", ErrInvalid, s, err)
	}
	return u, nil
}
