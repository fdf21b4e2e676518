package redis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentmem/core"
)

// record is the stored form of a message. Metadata values carry their Go
// type so they decode to the type they were stored with.
type record struct {
	ID        string                `json:"id"`
	Content   string                `json:"content"`
	Metadata  map[string]typedValue `json:"metadata,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
	Role      core.Role             `json:"role"`
}

type typedValue struct {
	Type string          `json:"t"`
	Data json.RawMessage `json:"v"`
}

// Type tags. Values of any other type are stored as "json".
const (
	typeNull     = "null"
	typeString   = "string"
	typeBool     = "bool"
	typeInt      = "int"
	typeInt32    = "int32"
	typeInt64    = "int64"
	typeUint     = "uint"
	typeUint64   = "uint64"
	typeFloat32  = "float32"
	typeFloat64  = "float64"
	typeTime     = "time"
	typeDuration = "duration"
	typeJSON     = "json"
)

var decoders = map[string]func([]byte) (any, error){
	typeString:   decodeAs[string],
	typeBool:     decodeAs[bool],
	typeInt:      decodeAs[int],
	typeInt32:    decodeAs[int32],
	typeInt64:    decodeAs[int64],
	typeUint:     decodeAs[uint],
	typeUint64:   decodeAs[uint64],
	typeFloat32:  decodeAs[float32],
	typeFloat64:  decodeAs[float64],
	typeTime:     decodeAs[time.Time],
	typeDuration: decodeAs[time.Duration],
	typeJSON:     decodeGeneric,
}

func decodeAs[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeGeneric keeps numbers inside composite values as json.Number.
func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return typeNull
	case string:
		return typeString
	case bool:
		return typeBool
	case int:
		return typeInt
	case int32:
		return typeInt32
	case int64:
		return typeInt64
	case uint:
		return typeUint
	case uint64:
		return typeUint64
	case float32:
		return typeFloat32
	case float64:
		return typeFloat64
	case time.Time:
		return typeTime
	case time.Duration:
		return typeDuration
	default:
		return typeJSON
	}
}

func encodeMessage(m core.Message) ([]byte, error) {
	rec := record{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Role:      m.Role,
	}
	if len(m.Metadata) > 0 {
		rec.Metadata = make(map[string]typedValue, len(m.Metadata))
		for k, v := range m.Metadata {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("metadata %q: %w", k, err)
			}
			rec.Metadata[k] = typedValue{Type: typeOf(v), Data: data}
		}
	}
	return json.Marshal(rec)
}

func decodeMessage(data []byte) (core.Message, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.Message{}, err
	}
	if !rec.Role.Valid() {
		return core.Message{}, fmt.Errorf("unknown role %q", rec.Role)
	}

	m := core.Message{
		ID:        rec.ID,
		Content:   rec.Content,
		Timestamp: rec.Timestamp,
		Role:      rec.Role,
	}
	if len(rec.Metadata) > 0 {
		m.Metadata = make(map[string]any, len(rec.Metadata))
		for k, tv := range rec.Metadata {
			if tv.Type == typeNull {
				m.Metadata[k] = nil
				continue
			}
			decode, ok := decoders[tv.Type]
			if !ok {
				return core.Message{}, fmt.Errorf("metadata %q: unknown type %q", k, tv.Type)
			}
			v, err := decode(tv.Data)
			if err != nil {
				return core.Message{}, fmt.Errorf("metadata %q: %w", k, err)
			}
			m.Metadata[k] = v
		}
	}
	return m, nil
}
