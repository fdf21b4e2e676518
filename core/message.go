package core

import (
	"time"

	"github.com/google/uuid"
)

// Role tags the author of a stored message.
type Role string

const (
	// RoleUser marks a message written by the end user.
	RoleUser Role = "user"
	// RoleAgent marks a response produced by an agent.
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAgent }

// Message is the unit of conversational memory. Messages are treated as
// immutable once created; providers copy Metadata on the way in and out so a
// caller can never mutate stored state through a shared map.
//
// Identity within one user's memory is insertion order. ID is an additional
// stable handle for providers that want to address single records.
type Message struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Role      Role           `json:"role"`
}

// NewMessage builds a message with a fresh ID. Metadata is copied.
func NewMessage(role Role, content string, metadata map[string]any, ts time.Time) Message {
	return Message{
		ID:        NewID(),
		Content:   content,
		Metadata:  CopyMetadata(metadata),
		Timestamp: ts,
		Role:      role,
	}
}

// Clone returns a copy of the message with its own metadata map.
func (m Message) Clone() Message {
	m.Metadata = CopyMetadata(m.Metadata)
	return m
}

// CopyMetadata returns a shallow copy of md, or nil when md is empty.
func CopyMetadata(md map[string]any) map[string]any {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// CloneMessages copies a slice of messages including their metadata maps.
// The result is never nil.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// NewID generates a new unique identifier for messages.
func NewID() string { return uuid.NewString() }
