package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentmem/core"
)

// FailingProvider is a MemoryProvider whose operations return the configured
// errors. A nil error lets the call through to an internal slice store.
// Failing calls never change state. It deliberately does not implement
// core.BatchStorer.
type FailingProvider struct {
	StoreErr    error
	RetrieveErr error
	ClearErr    error
	// FailStoreAfter, when positive, lets that many Store calls succeed
	// before StoreErr is returned.
	FailStoreAfter int

	mu       sync.Mutex
	stores   int
	messages map[string][]core.Message
}

// Store implements core.MemoryProvider.
func (p *FailingProvider) Store(_ context.Context, userID string, msg core.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stores++
	if p.StoreErr != nil && p.stores > p.FailStoreAfter {
		return core.StorageError("failing.Store", p.StoreErr)
	}
	if p.messages == nil {
		p.messages = map[string][]core.Message{}
	}
	p.messages[userID] = append(p.messages[userID], msg.Clone())
	return nil
}

// Retrieve implements core.MemoryProvider.
func (p *FailingProvider) Retrieve(_ context.Context, userID string, _ string) ([]core.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RetrieveErr != nil {
		return nil, core.StorageError("failing.Retrieve", p.RetrieveErr)
	}
	return core.CloneMessages(p.messages[userID]), nil
}

// Clear implements core.MemoryProvider.
func (p *FailingProvider) Clear(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ClearErr != nil {
		return core.StorageError("failing.Clear", p.ClearErr)
	}
	delete(p.messages, userID)
	return nil
}

// StoreCalls returns how many times Store was invoked.
func (p *FailingProvider) StoreCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stores
}

// Messages returns a copy of what was stored for userID.
func (p *FailingProvider) Messages(userID string) []core.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return core.CloneMessages(p.messages[userID])
}
