// Package parse turns wire responses back into typed result trees by
// walking the operation's resolved output shape. One [Parser] exists
// per wire protocol; all of them are pure transforms that perform no
// I/O. Parsed trees are plain maps keyed by member name.
package parse

import (
	"encoding/base64"
	"fmt"

	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// Parser parses wire responses for one wire protocol.
type Parser interface {
	// Parse produces the result tree for the given operation from the
	// given response. The response body is fully buffered; no I/O
	// happens here.
	Parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error)
}

// Override is a per-operation post-parse hook for responses whose
// success payload cannot be expressed as a normal output shape. It
// receives the raw response alongside the generically parsed tree and
// may rewrite the tree in place.
type Override func(resp *wire.Response, result map[string]any) error

// maxTraversalDepth caps shape-graph recursion so that cyclic shape
// graphs fail with a diagnosable error instead of overflowing the stack.
const maxTraversalDepth = 100

// requestIDHeader carries the service request id on JSON-protocol
// responses.
const requestIDHeader = "X-Request-Id"

// responseMetadataKey is the envelope key under which the request id
// surfaces in parsed trees.
const responseMetadataKey = "ResponseMetadata"

// ErrUnknownProtocol indicates that no parser exists for the requested
// protocol name.
type ErrUnknownProtocol struct {
	// Protocol is the unrecognized protocol name.
	Protocol string
}

var _ error = &ErrUnknownProtocol{}

func (err *ErrUnknownProtocol) Error() string {
	return fmt.Sprintf("parse: no parser for protocol %q", err.Protocol)
}

// MalformedResponseError indicates that a response body could not be
// decoded under the declared wire protocol.
type MalformedResponseError struct {
	// Protocol is the wire protocol we were parsing for.
	Protocol string

	// Operation is the wire name of the operation being parsed.
	Operation string

	// Reason explains what was malformed.
	Reason string
}

var _ error = &MalformedResponseError{}

func (err *MalformedResponseError) Error() string {
	return fmt.Sprintf(
		"parse: malformed %s response for %s: %s",
		err.Protocol, err.Operation, err.Reason)
}

// options bundles the cross-protocol parser knobs.
type options struct {
	logger    model.Logger
	overrides map[string]Override
}

// protocolParsers maps each protocol name to its parser constructor.
// The map is never mutated after initialization.
var protocolParsers = map[string]func(opts *options) Parser{
	"query": func(opts *options) Parser {
		return &queryParser{opts: opts}
	},
	"query-legacy": func(opts *options) Parser {
		return &queryParser{legacyStyle: true, opts: opts}
	},
	"json": func(opts *options) Parser {
		return &jsonParser{opts: opts}
	},
	"rest-json": func(opts *options) Parser {
		return &restJSONParser{opts: opts}
	},
	"rest-xml": func(opts *options) Parser {
		return &restXMLParser{opts: opts}
	},
}

// ForProtocol returns the parser for the given protocol name with a
// discard logger and no overrides.
func ForProtocol(protocol string) (Parser, error) {
	return ForProtocolWithOptions(protocol, nil, nil)
}

// ForProtocolWithOptions is like [ForProtocol] but uses the given
// logger and installs the given post-parse overrides, keyed by wire
// operation name. The overrides map is copied.
func ForProtocolWithOptions(
	protocol string, logger model.Logger, overrides map[string]Override) (Parser, error) {
	constructor, found := protocolParsers[protocol]
	if !found {
		return nil, &ErrUnknownProtocol{Protocol: protocol}
	}
	opts := &options{
		logger:    model.ValidLoggerOrDefault(logger),
		overrides: make(map[string]Override, len(overrides)),
	}
	for name, override := range overrides {
		opts.overrides[name] = override
	}
	return constructor(opts), nil
}

// applyOverride runs the operation's post-parse override, when one is
// registered.
func (opts *options) applyOverride(
	resp *wire.Response, op *model.OperationModel, result map[string]any) error {
	override, found := opts.overrides[op.WireName()]
	if !found {
		return nil
	}
	opts.logger.Debugf("parse: applying post-parse override for %s", op.WireName())
	return override(resp, result)
}

// parseScalarString converts the wire text of a scalar member into its
// typed value.
func parseScalarString(text string, shape *model.Shape, protocol, opName string) (any, error) {
	switch shape.Type() {
	case model.TypeString:
		return text, nil
	case model.TypeInteger, model.TypeLong:
		var value int64
		if _, err := fmt.Sscanf(text, "%d", &value); err != nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    fmt.Sprintf("invalid integer %q for %s", text, shape.Name()),
			}
		}
		return value, nil
	case model.TypeFloat, model.TypeDouble:
		var value float64
		if _, err := fmt.Sscanf(text, "%g", &value); err != nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    fmt.Sprintf("invalid number %q for %s", text, shape.Name()),
			}
		}
		return value, nil
	case model.TypeBoolean:
		switch text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    fmt.Sprintf("invalid boolean %q for %s", text, shape.Name()),
			}
		}
	case model.TypeBlob:
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    fmt.Sprintf("invalid base64 for %s: %s", shape.Name(), err.Error()),
			}
		}
		return raw, nil
	case model.TypeTimestamp:
		when, err := timefmt.Parse(text)
		if err != nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    fmt.Sprintf("invalid timestamp %q for %s", text, shape.Name()),
			}
		}
		return when, nil
	default:
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: opName,
			Reason:    fmt.Sprintf("unexpected %s value on the wire", shape.Type()),
		}
	}
}

// memberWireName returns the name a member uses on the wire: its
// locationName trait when declared, the member name otherwise.
func memberWireName(member *model.Shape, memberName string) string {
	if name, good := member.Serialization()["name"].(string); good && name != "" {
		return name
	}
	return memberName
}

// withRequestID stores the request id under the response-metadata
// envelope when one is present.
func withRequestID(result map[string]any, requestID string) {
	if requestID == "" {
		return
	}
	result[responseMetadataKey] = map[string]any{"RequestId": requestID}
}
