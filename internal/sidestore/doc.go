// Package sidestore provides a thread-safe, in-memory side table for payloads
// the surface cannot render: raw `json` values and parsed `file` contents,
// keyed by the identifier of the node they were addressed to.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each process, not persistent
//   - **Thread-Safe:** The engine writes from its event loop while file
//     fetches complete on their own goroutines and consumers read from theirs
//   - **Fast Lookups:** O(1) average case retrieval by node identifier
//
// sync.Map fits this pattern: the key space is small and stable while values
// are replaced whenever the device pushes a new payload.
package sidestore
