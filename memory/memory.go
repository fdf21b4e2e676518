package memory

import (
	"context"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
)

const tracerName = "github.com/hupe1980/agentmem/memory"

// Options configures a Memory facade.
type Options struct {
	// Logger receives debug records for every provider call.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger
	// Clock stamps new messages. Defaults to time.Now.
	Clock func() time.Time
	// Tracer opens a span per operation. Defaults to the global provider.
	Tracer trace.Tracer
}

// Memory binds a MemoryProvider to one user id. It adds identity binding and
// message construction; it does not retry, cache or swallow provider errors.
//
// A *Memory is safe for concurrent use and may be shared by several agents
// and by direct callers.
type Memory struct {
	provider core.MemoryProvider
	userID   string
	logger   logging.Logger
	clock    func() time.Time
	tracer   trace.Tracer
}

// New creates a Memory for userID backed by provider.
func New(provider core.MemoryProvider, userID string, optFns ...func(o *Options)) (*Memory, error) {
	if provider == nil {
		return nil, core.InvalidInputError("memory.New", "provider must not be nil")
	}
	if err := checkUserID("memory.New", userID); err != nil {
		return nil, err
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent("memory").WithUser(userID)
	}

	return &Memory{
		provider: provider,
		userID:   userID,
		logger:   logger,
		clock:    opts.Clock,
		tracer:   opts.Tracer,
	}, nil
}

func checkUserID(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.InvalidInputError(op, "user id must not be empty")
	}
	return nil
}

// UserID returns the bound user id.
func (m *Memory) UserID() string { return m.userID }

// Provider returns the bound provider.
func (m *Memory) Provider() core.MemoryProvider { return m.provider }

// Add records a user message.
func (m *Memory) Add(ctx context.Context, content string, metadata map[string]any) error {
	return m.add(ctx, core.RoleUser, content, metadata)
}

// AddAgent records an agent response.
func (m *Memory) AddAgent(ctx context.Context, content string, metadata map[string]any) error {
	return m.add(ctx, core.RoleAgent, content, metadata)
}

func (m *Memory) add(ctx context.Context, role core.Role, content string, metadata map[string]any) error {
	if content == "" {
		return core.InvalidInputError("memory.Add", "message must not be empty")
	}

	ctx, span := m.tracer.Start(ctx, "memory.add", trace.WithAttributes(
		attribute.String("memory.user_id", m.userID),
		attribute.String("memory.role", string(role)),
	))
	defer span.End()

	err := m.provider.Store(ctx, m.userID, core.NewMessage(role, content, metadata, m.clock()))
	logging.LogMemoryOp(m.logger, "store", m.userID, 1, err)
	endSpan(span, err)
	return err
}

// AddExchange records a user query followed by the agent's response. When
// the provider implements core.BatchStorer both messages are written
// atomically; otherwise they are stored one after the other.
func (m *Memory) AddExchange(ctx context.Context, query, response string, metadata map[string]any) error {
	if query == "" {
		return core.InvalidInputError("memory.AddExchange", "query must not be empty")
	}

	ctx, span := m.tracer.Start(ctx, "memory.add_exchange", trace.WithAttributes(
		attribute.String("memory.user_id", m.userID),
	))
	defer span.End()

	now := m.clock()
	msgs := []core.Message{
		core.NewMessage(core.RoleUser, query, nil, now),
		core.NewMessage(core.RoleAgent, response, metadata, now),
	}

	var err error
	if bs, ok := m.provider.(core.BatchStorer); ok {
		err = bs.StoreBatch(ctx, m.userID, msgs)
	} else {
		for _, msg := range msgs {
			if err = m.provider.Store(ctx, m.userID, msg); err != nil {
				break
			}
		}
	}
	logging.LogMemoryOp(m.logger, "store_exchange", m.userID, len(msgs), err)
	endSpan(span, err)
	return err
}

// Get returns the stored history. query is passed to the provider as a
// filter hint; an empty query selects everything.
func (m *Memory) Get(ctx context.Context, query string) ([]core.Message, error) {
	ctx, span := m.tracer.Start(ctx, "memory.get", trace.WithAttributes(
		attribute.String("memory.user_id", m.userID),
		attribute.Bool("memory.filtered", query != ""),
	))
	defer span.End()

	msgs, err := m.provider.Retrieve(ctx, m.userID, query)
	logging.LogMemoryOp(m.logger, "retrieve", m.userID, len(msgs), err)
	if err == nil {
		span.SetAttributes(attribute.Int("memory.count", len(msgs)))
		if msgs == nil {
			msgs = []core.Message{}
		}
	}
	endSpan(span, err)
	return msgs, err
}

// Clear removes the user's history.
func (m *Memory) Clear(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "memory.clear", trace.WithAttributes(
		attribute.String("memory.user_id", m.userID),
	))
	defer span.End()

	err := m.provider.Clear(ctx, m.userID)
	logging.LogMemoryOp(m.logger, "clear", m.userID, 0, err)
	endSpan(span, err)
	return err
}

// Close releases the provider when it implements io.Closer, such as a Redis
// provider opened by name. Do not close a Memory whose provider is shared.
func (m *Memory) Close() error {
	if c, ok := m.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
