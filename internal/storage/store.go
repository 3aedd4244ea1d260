// internal/storage/store.go

// Package storage persists library snapshots. A snapshot is the whole
// catalog plus the member list; loading one replaces the in-memory state.
package storage

import (
	"context"
	"errors"
)

var (
	ErrSourceNotFound   = errors.New("data source not found")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrDelimiterInField = errors.New("field contains the record delimiter")
)

// BookRecord is the persisted shape of a catalog entry. BorrowerID is the
// member holding the book, empty when available or unknown.
type BookRecord struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn"`
	Available  bool   `json:"available"`
	BorrowerID string `json:"borrower,omitempty"`
}

// MemberRecord is the persisted shape of a member.
type MemberRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Snapshot is everything a save writes and a load reads back.
type Snapshot struct {
	Books   []BookRecord
	Members []MemberRecord
}

// Store saves and loads snapshots. target and source name the dataset:
// a file path for FileStore, a dataset key for PostgresStore. An empty name
// selects the store's default.
type Store interface {
	Save(ctx context.Context, target string, snap Snapshot) error
	Load(ctx context.Context, source string) (Snapshot, error)
}
