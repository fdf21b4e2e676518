package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/internal/testutil"
)

func msg(role core.Role, content string, md map[string]any) core.Message {
	return core.NewMessage(role, content, md, time.Unix(1700000000, 0))
}

func TestInMemoryProvider_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, fmt.Sprintf("m%d", i), map[string]any{"idx": i})))
	}

	got, err := p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		assert.Equal(t, i, m.Metadata["idx"])
	}
}

func TestInMemoryProvider_QueryIgnored(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()
	require.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, "alpha", nil)))
	require.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, "beta", nil)))

	got, err := p.Retrieve(ctx, "u1", "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, testutil.Contents(got))
}

func TestInMemoryProvider_UnknownUserAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()

	got, err := p.Retrieve(ctx, "nobody", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, p.Clear(ctx, "nobody"))

	require.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, "hi", nil)))
	require.NoError(t, p.Clear(ctx, "u1"))
	require.NoError(t, p.Clear(ctx, "u1"))
	got, err = p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, p.Len("u1"))
}

func TestInMemoryProvider_CopyIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()
	md := map[string]any{"k": "v"}
	in := msg(core.RoleUser, "hi", md)
	require.NoError(t, p.Store(ctx, "u1", in))
	in.Metadata["k"] = "mutated-input"

	out, _ := p.Retrieve(ctx, "u1", "")
	out[0].Metadata["k"] = "mutated-output"
	out[0].Content = "changed"

	again, _ := p.Retrieve(ctx, "u1", "")
	assert.Equal(t, "v", again[0].Metadata["k"])
	assert.Equal(t, "hi", again[0].Content)
}

func TestInMemoryProvider_StoreBatch(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()
	require.NoError(t, p.StoreBatch(ctx, "u1", nil))
	require.NoError(t, p.StoreBatch(ctx, "u1", []core.Message{
		msg(core.RoleUser, "q", nil),
		msg(core.RoleAgent, "a", nil),
	}))
	got, _ := p.Retrieve(ctx, "u1", "")
	assert.Equal(t, []core.Role{core.RoleUser, core.RoleAgent}, testutil.Roles(got))
}

func TestInMemoryProvider_InstancesDoNotShareState(t *testing.T) {
	ctx := context.Background()
	a, b := NewInMemoryProvider(), NewInMemoryProvider()
	require.NoError(t, a.Store(ctx, "u1", msg(core.RoleUser, "only-a", nil)))
	got, _ := b.Retrieve(ctx, "u1", "")
	assert.Empty(t, got)
}

func TestInMemoryProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewInMemoryProvider()
	err := p.Store(ctx, "u1", msg(core.RoleUser, "hi", nil))
	assert.True(t, core.IsStorage(err))
	assert.Zero(t, p.Len("u1"))
}

func TestInMemoryProvider_ConcurrentIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()
	users := []string{"A", "B", "C"}
	const perUser = 200

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				if err := p.Store(ctx, u, msg(core.RoleUser, fmt.Sprintf("%s-%d", u, i), nil)); err != nil {
					t.Errorf("store: %v", err)
				}
				if _, err := p.Retrieve(ctx, u, ""); err != nil {
					t.Errorf("retrieve: %v", err)
				}
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		got, err := p.Retrieve(ctx, u, "")
		require.NoError(t, err)
		require.Len(t, got, perUser)
		for i, m := range got {
			assert.Equal(t, fmt.Sprintf("%s-%d", u, i), m.Content)
		}
	}
	assert.Equal(t, users, p.Users())
}

func TestInMemoryProvider_ClearForgetsUser(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("request-%d", i)
		require.NoError(t, p.Store(ctx, id, msg(core.RoleUser, "hi", nil)))
		require.NoError(t, p.Clear(ctx, id))
	}

	p.mu.RLock()
	n := len(p.users)
	p.mu.RUnlock()
	assert.Zero(t, n)
	assert.Empty(t, p.Users())
}

func TestInMemoryProvider_StoreRacingClear(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, "x", nil)))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Clear(ctx, "u1"))
		}()
	}
	wg.Wait()

	require.NoError(t, p.Clear(ctx, "u1"))
	require.NoError(t, p.Store(ctx, "u1", msg(core.RoleUser, "after", nil)))
	got, err := p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"after"}, testutil.Contents(got))
}
