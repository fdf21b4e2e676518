package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/agentmem/core"
)

// userLog is the ordered message sequence of a single user. It carries its
// own lock so writers for different users never contend.
type userLog struct {
	mu       sync.RWMutex
	messages []core.Message
	// removed is set once Clear has dropped the log from the users map.
	// Writers holding a removed log start over with a fresh one.
	removed bool
}

// InMemoryProvider is a process-local MemoryProvider. Its state is owned by
// the instance: two providers never share data.
//
// Concurrency: the users map is protected by an RWMutex that is held only to
// look up, create or remove a user's log; appends and reads then lock that
// log alone (per-key synchronization). Clear removes the user's entry, so the
// map only holds users written since their last clear.
//
// Retrieve ignores the query filter and always returns the full history in
// insertion order. Free-text filtering is left to other providers.
type InMemoryProvider struct {
	mu    sync.RWMutex
	users map[string]*userLog // userID -> ordered messages
}

// NewInMemoryProvider creates an empty in-memory provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{users: make(map[string]*userLog)}
}

var (
	_ core.MemoryProvider = (*InMemoryProvider)(nil)
	_ core.BatchStorer    = (*InMemoryProvider)(nil)
)

// lookup returns the log for userID, or nil when the user was never written.
func (p *InMemoryProvider) lookup(userID string) *userLog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[userID]
}

// getOrCreate returns the log for userID, creating it on first use.
func (p *InMemoryProvider) getOrCreate(userID string) *userLog {
	if l := p.lookup(userID); l != nil {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := p.users[userID]; ok {
		return l
	}
	l := &userLog{}
	p.users[userID] = l
	return l
}

// Store appends a copy of msg to the user's history.
func (p *InMemoryProvider) Store(ctx context.Context, userID string, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return core.StorageError("inmemory.Store", err)
	}
	p.append(userID, []core.Message{msg})
	return nil
}

// StoreBatch appends copies of msgs under a single lock acquisition so a
// concurrent Retrieve observes either none or all of them.
func (p *InMemoryProvider) StoreBatch(ctx context.Context, userID string, msgs []core.Message) error {
	if err := ctx.Err(); err != nil {
		return core.StorageError("inmemory.StoreBatch", err)
	}
	if len(msgs) == 0 {
		return nil
	}
	p.append(userID, msgs)
	return nil
}

func (p *InMemoryProvider) append(userID string, msgs []core.Message) {
	for {
		l := p.getOrCreate(userID)
		l.mu.Lock()
		if l.removed {
			l.mu.Unlock()
			continue
		}
		for _, m := range msgs {
			l.messages = append(l.messages, m.Clone())
		}
		l.mu.Unlock()
		return
	}
}

// Retrieve returns a copy of the user's history in insertion order. The
// query argument is accepted for interface compliance and ignored.
func (p *InMemoryProvider) Retrieve(ctx context.Context, userID string, _ string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.StorageError("inmemory.Retrieve", err)
	}
	l := p.lookup(userID)
	if l == nil {
		return []core.Message{}, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.CloneMessages(l.messages), nil
}

// Clear drops the user's history and forgets the user. Unknown users are a
// no-op.
func (p *InMemoryProvider) Clear(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return core.StorageError("inmemory.Clear", err)
	}

	p.mu.Lock()
	l, ok := p.users[userID]
	if ok {
		delete(p.users, userID)
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}

	l.mu.Lock()
	l.messages = nil
	l.removed = true
	l.mu.Unlock()
	return nil
}

// Len returns the number of messages stored for userID.
func (p *InMemoryProvider) Len(userID string) int {
	l := p.lookup(userID)
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Users returns the sorted ids of users that currently hold messages.
func (p *InMemoryProvider) Users() []string {
	p.mu.RLock()
	logs := make(map[string]*userLog, len(p.users))
	for id, l := range p.users {
		logs[id] = l
	}
	p.mu.RUnlock()

	ids := make([]string, 0, len(logs))
	for id, l := range logs {
		l.mu.RLock()
		n := len(l.messages)
		l.mu.RUnlock()
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
