// Package redis provides a MemoryProvider backed by Redis lists.
//
// Each user owns one list at "<namespace>:<userID>" holding JSON encoded
// messages in insertion order. Writes use RPUSH, reads LRANGE and Clear DEL;
// StoreBatch wraps the pushes in MULTI/EXEC so an exchange is recorded
// atomically. Every go-redis error is reported with the storage kind.
//
// Retrieve interprets a non-empty query as a case-insensitive substring
// filter over message content.
//
// Metadata values are stored with a type tag and read back with the same
// Go type for strings, bools, int, int32, int64, uint, uint64, float32,
// float64, time.Duration and time.Time (the instant is kept, the location
// and monotonic reading are not). Other values, such as maps, slices and
// structs, come back as their generic JSON form with numbers as json.Number.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
)

// DefaultNamespace prefixes every key written by the provider.
const DefaultNamespace = "agentmem:memory"

// Options configures the Redis provider.
type Options struct {
	// Namespace is the key prefix. Defaults to DefaultNamespace.
	Namespace string
	// TTL, when positive, is refreshed on every write so idle histories expire.
	TTL time.Duration
	// PingTimeout bounds the connectivity check performed by New.
	PingTimeout time.Duration
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Provider implements core.MemoryProvider and core.BatchStorer on Redis.
// Scalar metadata keeps its Go type across a round trip; see the package
// documentation for the exact set.
type Provider struct {
	client    goredis.UniversalClient
	namespace string
	ttl       time.Duration
	logger    logging.Logger
	owned     bool
}

var (
	_ core.MemoryProvider = (*Provider)(nil)
	_ core.BatchStorer    = (*Provider)(nil)
)

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Namespace:   DefaultNamespace,
		PingTimeout: 5 * time.Second,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if sl, ok := opts.Logger.(*logging.StructuredLogger); ok {
		opts.Logger = sl.WithComponent("memory.redis").WithContext("namespace", opts.Namespace)
	}
	return opts
}

// New parses redisURL, connects and verifies the connection with PING.
// The returned provider owns the client; call Close to release it.
func New(ctx context.Context, redisURL string, optFns ...func(o *Options)) (*Provider, error) {
	opts := defaultOptions(optFns)

	if redisURL == "" {
		return nil, core.ConfigurationError("redis.New", "redis URL is required")
	}
	redisOpt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, core.ConfigurationError("redis.New", fmt.Sprintf("invalid redis URL: %v", err))
	}

	client := goredis.NewClient(redisOpt)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		opts.Logger.Error("failed to connect to redis", "error", err.Error(), "db", redisOpt.DB)
		return nil, core.StorageError("redis.New", fmt.Errorf("connect to redis db %d: %w", redisOpt.DB, err))
	}

	p := newProvider(client, opts)
	p.owned = true
	opts.Logger.Info("redis memory provider connected", "db", redisOpt.DB, "namespace", opts.Namespace)
	return p, nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of the
// client; Close on the provider is then a no-op.
func NewFromClient(client goredis.UniversalClient, optFns ...func(o *Options)) *Provider {
	return newProvider(client, defaultOptions(optFns))
}

func newProvider(client goredis.UniversalClient, opts Options) *Provider {
	return &Provider{
		client:    client,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
		logger:    opts.Logger,
	}
}

// Close releases the client when the provider created it.
func (p *Provider) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}

// Key returns the list key for userID.
func (p *Provider) Key(userID string) string {
	return p.namespace + ":" + userID
}

// Store appends msg to the user's list.
func (p *Provider) Store(ctx context.Context, userID string, msg core.Message) error {
	return p.push(ctx, "redis.Store", userID, []core.Message{msg})
}

// StoreBatch appends msgs inside a MULTI/EXEC transaction.
func (p *Provider) StoreBatch(ctx context.Context, userID string, msgs []core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return p.push(ctx, "redis.StoreBatch", userID, msgs)
}

func (p *Provider) push(ctx context.Context, op, userID string, msgs []core.Message) error {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := encodeMessage(m)
		if err != nil {
			return core.StorageError(op, fmt.Errorf("encode message: %w", err))
		}
		values = append(values, data)
	}

	key := p.Key(userID)
	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if p.ttl > 0 {
			pipe.Expire(ctx, key, p.ttl)
		}
		return nil
	})
	if err != nil {
		p.logger.Warn("redis push failed", "key", key, "error", err.Error())
		return core.StorageError(op, err)
	}
	return nil
}

// Retrieve returns the user's messages in insertion order, optionally
// filtered by a case-insensitive substring match on content.
func (p *Provider) Retrieve(ctx context.Context, userID string, query string) ([]core.Message, error) {
	key := p.Key(userID)
	raw, err := p.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, core.StorageError("redis.Retrieve", err)
	}

	needle := strings.ToLower(query)
	msgs := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		m, err := decodeMessage([]byte(item))
		if err != nil {
			return nil, core.StorageError("redis.Retrieve", fmt.Errorf("decode message in %s: %w", key, err))
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Content), needle) {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear deletes the user's list. Deleting a missing key is not an error.
func (p *Provider) Clear(ctx context.Context, userID string) error {
	if err := p.client.Del(ctx, p.Key(userID)).Err(); err != nil {
		return core.StorageError("redis.Clear", err)
	}
	return nil
}
