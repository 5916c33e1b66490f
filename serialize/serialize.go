// Package serialize turns typed call parameters into wire requests by
// walking the operation's resolved input shape. One [Serializer] exists
// per wire protocol; all of them are pure transforms that perform no
// I/O and never mutate the caller's parameters.
package serialize

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// Serializer serializes call parameters for one wire protocol.
type Serializer interface {
	// SerializeToRequest produces the transport request for invoking
	// the given operation with the given parameters. The parameters
	// map is never mutated.
	SerializeToRequest(params map[string]any, op *model.OperationModel) (*wire.Request, error)
}

// maxTraversalDepth caps shape-graph recursion so that cyclic shape
// graphs fail with a diagnosable error instead of overflowing the stack.
const maxTraversalDepth = 100

// defaultMethod is the HTTP method used when the schema declares none.
const defaultMethod = "POST"

// ErrUnknownProtocol indicates that no serializer exists for the
// requested protocol name.
type ErrUnknownProtocol struct {
	// Protocol is the unrecognized protocol name.
	Protocol string
}

var _ error = &ErrUnknownProtocol{}

// Error implements error.
func (err *ErrUnknownProtocol) Error() string {
	return fmt.Sprintf("serialize: unknown protocol %q", err.Protocol)
}

// SerializationError indicates that the supplied parameters cannot be
// serialized under the operation's input shape.
type SerializationError struct {
	// Operation is the wire name of the operation being serialized.
	Operation string

	// Field is the offending parameter field, when known.
	Field string

	// Reason describes why serialization failed.
	Reason string
}

var _ error = &SerializationError{}

// Error implements error.
func (err *SerializationError) Error() string {
	return fmt.Sprintf(
		"serialize: operation %q field %q: %s",
		err.Operation, err.Field, err.Reason,
	)
}

// protocolSerializers is the immutable protocol-to-constructor map. We
// deliberately pass loggers at construction time rather than keeping a
// process-wide mutable registry.
var protocolSerializers = map[string]func(logger model.Logger) Serializer{
	"query": func(logger model.Logger) Serializer {
		return &querySerializer{legacyStyle: false, logger: logger}
	},
	"query-legacy": func(logger model.Logger) Serializer {
		return &querySerializer{legacyStyle: true, logger: logger}
	},
	"json": func(logger model.Logger) Serializer {
		return &jsonSerializer{logger: logger}
	},
	"rest-json": func(logger model.Logger) Serializer {
		return &restJSONSerializer{logger: logger}
	},
	"rest-xml": func(logger model.Logger) Serializer {
		return &restXMLSerializer{logger: logger}
	},
}

// ForProtocol returns the [Serializer] for the given protocol name
// using a logger that discards its input.
func ForProtocol(protocol string) (Serializer, error) {
	return ForProtocolWithLogger(protocol, model.DiscardLogger)
}

// ForProtocolWithLogger is like [ForProtocol] but uses the given
// logger for debug messages.
func ForProtocolWithLogger(protocol string, logger model.Logger) (Serializer, error) {
	constructor, found := protocolSerializers[protocol]
	if !found {
		return nil, &ErrUnknownProtocol{Protocol: protocol}
	}
	return constructor(model.ValidLoggerOrDefault(logger)), nil
}

// newUUID mints idempotency token values; replaced by tests.
var newUUID = uuid.NewString

// injectIdempotencyTokens returns a copy of params where every
// top-level member flagged idempotencyToken that the caller omitted is
// filled with a fresh token. The caller's map is never mutated.
func injectIdempotencyTokens(params map[string]any, input *model.Shape) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = value
	}
	if input == nil || input.Type() != model.TypeStructure {
		return out, nil
	}
	members, err := input.Members()
	if err != nil {
		return nil, err
	}
	for _, name := range members.Names() {
		member, _ := members.Get(name)
		flagged, _ := member.Metadata()["idempotencyToken"].(bool)
		if !flagged {
			continue
		}
		if _, present := out[name]; !present {
			out[name] = newUUID()
		}
	}
	return out, nil
}

// memberWireName returns the name a member uses on the wire: its
// locationName trait when declared, the member name otherwise.
func memberWireName(member *model.Shape, memberName string) string {
	if name, good := member.Serialization()["name"].(string); good && name != "" {
		return name
	}
	return memberName
}

// timestampFormatFor returns the member's explicit timestampFormat
// trait or the given protocol default.
func timestampFormatFor(shape *model.Shape, fallback string) string {
	if format, good := shape.Serialization()["timestampFormat"].(string); good && format != "" {
		return format
	}
	return fallback
}

// scalarString renders a scalar parameter value as its wire string.
func scalarString(value any, shape *model.Shape, tsFormat string) (string, error) {
	switch shape.Type() {
	case model.TypeString:
		str, good := value.(string)
		if !good {
			return "", fmt.Errorf("expected string, got %T", value)
		}
		return str, nil
	case model.TypeInteger, model.TypeLong:
		number, good := toInt64(value)
		if !good {
			return "", fmt.Errorf("expected integer, got %T", value)
		}
		return fmt.Sprintf("%d", number), nil
	case model.TypeFloat, model.TypeDouble:
		number, good := toFloat64(value)
		if !good {
			return "", fmt.Errorf("expected number, got %T", value)
		}
		return trimFloat(number), nil
	case model.TypeBoolean:
		flag, good := value.(bool)
		if !good {
			return "", fmt.Errorf("expected boolean, got %T", value)
		}
		if flag {
			return "true", nil
		}
		return "false", nil
	case model.TypeTimestamp:
		instant, err := timefmt.Parse(value)
		if err != nil {
			return "", err
		}
		return timefmt.Format(instant, timestampFormatFor(shape, tsFormat))
	case model.TypeBlob:
		raw, good := toBytes(value)
		if !good {
			return "", fmt.Errorf("expected bytes, got %T", value)
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return "", fmt.Errorf("cannot render %s as a scalar", shape.Type())
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toBytes(value any) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// sortedKeys returns the map's keys in lexical order so map-typed
// parameters serialize deterministically.
func sortedKeys(entries map[string]any) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// joinFieldPath extends a dotted field path used in error diagnostics.
func joinFieldPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// trimFloat renders floats without a trailing ".0" for integral values,
// matching the most compact wire form.
func trimFloat(value float64) string {
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}
