package sidestore

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/starmirror/internal/nodeid"
)

// Origin tells how an entry reached the table.
type Origin int

const (
	OriginJSON Origin = iota // carried inline by an update
	OriginFile               // fetched after a `file` payload
)

// Entry is one stored payload.
type Entry struct {
	Value  any
	Origin Origin
	// New is set on fetched entries until a consumer acknowledges them.
	New bool
}

// Store is an in-memory side table using sync.Map.
type Store struct {
	entries sync.Map // Key: node identifier string, Value: Entry
}

// New creates a new, empty side table.
func New() *Store {
	return &Store{}
}

// SetJSON records an inline json payload for a node.
func (s *Store) SetJSON(ctx context.Context, id nodeid.ID, value any) {
	s.entries.Store(id.String(), Entry{Value: value, Origin: OriginJSON})
}

// SetFile records the parsed content of a fetched file for a node and marks
// it new.
func (s *Store) SetFile(ctx context.Context, id nodeid.ID, value any) {
	s.entries.Store(id.String(), Entry{Value: value, Origin: OriginFile, New: true})
}

// Get retrieves the entry stored for a node identifier.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool) {
	e, ok := s.entries.Load(id)
	if !ok {
		return Entry{}, false
	}
	return e.(Entry), true
}

// Ack clears the new marker of an entry and returns it.
func (s *Store) Ack(ctx context.Context, id string) (Entry, bool) {
	e, ok := s.Get(ctx, id)
	if !ok {
		return Entry{}, false
	}
	e.New = false
	s.entries.Store(id, e)
	return e, true
}

// Keys returns the stored identifiers in sorted order.
func (s *Store) Keys() []string {
	var keys []string
	s.entries.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
