// Package codec provides the pluggable serialization boundary between
// component payloads and their byte representations. Codecs are invoked
// only inside task effects and archive operations; the scheduler never
// interprets component bytes.
package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/probst/tangle/internal/payload"
)

// Codec converts payload values to and from bytes. Implementations must
// be deterministic: encoding the same value twice yields the same bytes,
// or archive idempotency breaks.
type Codec interface {
	// Name identifies the codec in archive rows and scenario files.
	Name() string

	// Encode serializes a payload value.
	Encode(v payload.Value) ([]byte, error)

	// Decode parses bytes back into a payload value.
	Decode(data []byte) (payload.Value, error)
}

// JSON encodes canonical JSON (RFC 8785). The archive default: canonical
// bytes make row content digest-stable.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Encode implements Codec.
func (JSON) Encode(v payload.Value) ([]byte, error) {
	return payload.MarshalCanonical(v)
}

// Decode implements Codec.
func (JSON) Decode(data []byte) (payload.Value, error) {
	return payload.UnmarshalValue(data)
}

// YAML encodes YAML via yaml.v3. Not canonical; use it for human-edited
// payloads, never for digested ones.
type YAML struct{}

// Name implements Codec.
func (YAML) Name() string { return "yaml" }

// Encode implements Codec.
func (YAML) Encode(v payload.Value) ([]byte, error) {
	plain, err := toPlain(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(plain)
}

// Decode implements Codec.
func (YAML) Decode(data []byte) (payload.Value, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}
	return payload.FromAny(normalizeYAML(raw))
}

// toPlain lowers a payload value to the any-tree yaml.Marshal understands.
func toPlain(v payload.Value) (any, error) {
	switch val := v.(type) {
	case payload.Null:
		return nil, nil
	case payload.String:
		return string(val), nil
	case payload.Int:
		return int64(val), nil
	case payload.Bool:
		return bool(val), nil
	case payload.List:
		out := make([]any, len(val))
		for i, elem := range val {
			p, err := toPlain(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = p
		}
		return out, nil
	case payload.Map:
		out := make(map[string]any, len(val))
		for _, k := range val.SortedKeys() {
			p, err := toPlain(val[k])
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = p
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown payload value type: %T", v)
	}
}

// normalizeYAML rewrites map[any]any nodes to map[string]any so FromAny
// can consume the tree. yaml.v3 produces map[string]any for string keys,
// but non-string keys and documents from older emitters still arrive as
// map[any]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a codec by its wire name. Schema-wrapped codecs decode
// under their inner codec's name, so only the base codecs are registered.
func Lookup(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "yaml":
		return YAML{}, true
	default:
		return nil, false
	}
}
