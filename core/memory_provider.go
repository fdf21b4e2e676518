package core

import "context"

// MemoryProvider defines the storage contract behind a Memory facade.
// Implementations keep one ordered, append-only sequence of messages per
// user id and must never let one user's records leak into another's.
//
// Contract:
//   - Store appends msg for userID. Backend failures are reported with the
//     Storage kind (see StorageError).
//   - Retrieve returns every message for userID in insertion order when query
//     is empty. A non-empty query is a free-form filter hint whose meaning is
//     provider specific. Unknown users yield an empty slice and a nil error.
//     Retrieve never mutates state.
//   - Clear removes all messages for userID. Clearing an unknown or empty
//     user is a no-op.
type MemoryProvider interface {
	Store(ctx context.Context, userID string, msg Message) error
	Retrieve(ctx context.Context, userID string, query string) ([]Message, error)
	Clear(ctx context.Context, userID string) error
}

// BatchStorer is an optional MemoryProvider capability. StoreBatch appends
// all msgs for userID atomically: either every message becomes visible to a
// later Retrieve or none does.
type BatchStorer interface {
	StoreBatch(ctx context.Context, userID string, msgs []Message) error
}
