package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
)

// setupTestRedis creates a miniredis instance and a client pointing at it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func message(role core.Role, content string, md map[string]any) core.Message {
	return core.NewMessage(role, content, md, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestProvider_RoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewFromClient(client)
	ctx := context.Background()

	in := []core.Message{
		message(core.RoleUser, "hi", map[string]any{"lang": "en"}),
		message(core.RoleAgent, "there", nil),
	}
	for _, m := range in {
		require.NoError(t, p.Store(ctx, "u1", m))
	}

	got, err := p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, got[i].ID)
		assert.Equal(t, in[i].Content, got[i].Content)
		assert.Equal(t, in[i].Role, got[i].Role)
		assert.True(t, in[i].Timestamp.Equal(got[i].Timestamp))
	}
	assert.Equal(t, "en", got[0].Metadata["lang"])
}

func TestProvider_UnknownUserAndClear(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewFromClient(client, func(o *Options) { o.Namespace = "ns" })
	ctx := context.Background()

	got, err := p.Retrieve(ctx, "ghost", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, p.Clear(ctx, "ghost"))
	require.NoError(t, p.Store(ctx, "u1", message(core.RoleUser, "hi", nil)))
	assert.True(t, mr.Exists("ns:u1"))
	require.NoError(t, p.Clear(ctx, "u1"))
	assert.False(t, mr.Exists("ns:u1"))

	got, err = p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProvider_Isolation(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, p.Store(ctx, "A", message(core.RoleUser, "from A", nil)))
	require.NoError(t, p.Store(ctx, "B", message(core.RoleUser, "from B", nil)))
	require.NoError(t, p.Clear(ctx, "B"))

	got, err := p.Retrieve(ctx, "A", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "from A", got[0].Content)
}

func TestProvider_QueryFilter(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewFromClient(client)
	ctx := context.Background()

	for _, c := range []string{"Weather in Paris", "stock prices", "paris hotels"} {
		require.NoError(t, p.Store(ctx, "u1", message(core.RoleUser, c, nil)))
	}
	got, err := p.Retrieve(ctx, "u1", "PARIS")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Weather in Paris", got[0].Content)
	assert.Equal(t, "paris hotels", got[1].Content)
}

func TestProvider_StoreBatchAndTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewFromClient(client, func(o *Options) { o.TTL = time.Hour })
	ctx := context.Background()

	require.NoError(t, p.StoreBatch(ctx, "u1", []core.Message{
		message(core.RoleUser, "q", nil),
		message(core.RoleAgent, "a", nil),
	}))
	require.NoError(t, p.StoreBatch(ctx, "u1", nil))

	got, err := p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.RoleAgent, got[1].Role)
	assert.Equal(t, time.Hour, mr.TTL(p.Key("u1")))
}

func TestProvider_BackendFailure(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewFromClient(client)
	ctx := context.Background()
	mr.Close()

	err := p.Store(ctx, "u1", message(core.RoleUser, "hi", nil))
	assert.True(t, core.IsStorage(err))
	_, err = p.Retrieve(ctx, "u1", "")
	assert.True(t, core.IsStorage(err))
	assert.True(t, core.IsStorage(p.Clear(ctx, "u1")))
}

func TestProvider_CorruptEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewFromClient(client)
	_, err := mr.Push(p.Key("u1"), "not-json")
	require.NoError(t, err)

	_, err = p.Retrieve(context.Background(), "u1", "")
	assert.True(t, core.IsStorage(err))
}

func TestProvider_MetadataTypes(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewFromClient(client)
	ctx := context.Background()

	at := time.Unix(0, 0)
	md := map[string]any{
		"total_tokens": 42,
		"big":          int64(1) << 40,
		"ratio":        0.25,
		"ok":           true,
		"lang":         "en",
		"elapsed":      1500 * time.Millisecond,
		"at":           at,
		"missing":      nil,
		"tags":         []string{"a", "b"},
		"nested":       map[string]any{"n": 7},
	}
	require.NoError(t, p.Store(ctx, "u1", message(core.RoleAgent, "ok", md)))

	got, err := p.Retrieve(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	out := got[0].Metadata

	assert.Equal(t, 42, out["total_tokens"])
	assert.Equal(t, int64(1)<<40, out["big"])
	assert.Equal(t, 0.25, out["ratio"])
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "en", out["lang"])
	assert.Equal(t, 1500*time.Millisecond, out["elapsed"])
	require.IsType(t, time.Time{}, out["at"])
	assert.True(t, at.Equal(out["at"].(time.Time)))
	assert.Contains(t, out, "missing")
	assert.Nil(t, out["missing"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Equal(t, map[string]any{"n": json.Number("7")}, out["nested"])
}

func TestProvider_UnknownRole(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewFromClient(client)
	_, err := mr.Push(p.Key("u1"), `{"id":"1","content":"x","timestamp":"2024-01-01T00:00:00Z","role":"system"}`)
	require.NoError(t, err)

	_, err = p.Retrieve(context.Background(), "u1", "")
	assert.True(t, core.IsStorage(err))
}

func TestProvider_LoggerComponent(t *testing.T) {
	mr, client := setupTestRedis(t)
	buf := &bytes.Buffer{}
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = buf
	p := NewFromClient(client, func(o *Options) {
		o.Namespace = "ns"
		o.Logger = logging.NewLogger(cfg)
	})
	mr.Close()

	require.Error(t, p.Store(context.Background(), "u1", message(core.RoleUser, "hi", nil)))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "memory.redis", entry["component"])
	assert.Equal(t, "ns", entry["namespace"])
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	_, err := New(ctx, "")
	assert.True(t, core.IsConfiguration(err))

	_, err = New(ctx, "http://not-redis")
	assert.True(t, core.IsConfiguration(err))

	p, err := New(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, p.Store(ctx, "u1", message(core.RoleUser, "hi", nil)))
	assert.True(t, mr.Exists(DefaultNamespace+":u1"))
	require.NoError(t, p.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = New(ctx, "redis://"+addr, func(o *Options) { o.PingTimeout = 200 * time.Millisecond })
	assert.True(t, core.IsStorage(err))
}
