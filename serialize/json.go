package serialize

//
// Structured RPC-JSON serialization
//

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// rpcTargetHeader carries the target operation of an RPC-JSON call;
// the body contains only the parameter document.
const rpcTargetHeader = "X-Rpc-Target"

// jsonSerializer serializes the whole parameter tree as one JSON
// document and identifies the operation via a header.
type jsonSerializer struct {
	logger model.Logger
}

var _ Serializer = &jsonSerializer{}

// SerializeToRequest implements [Serializer].
func (js *jsonSerializer) SerializeToRequest(
	params map[string]any, op *model.OperationModel) (*wire.Request, error) {
	input, err := op.InputShape()
	if err != nil {
		return nil, err
	}
	params, err = injectIdempotencyTokens(params, input)
	if err != nil {
		return nil, err
	}
	httpInfo := op.HTTP()
	req := wire.NewRequest()
	req.Method = stringOr(httpInfo.Method, defaultMethod)
	req.URLPath = stringOr(httpInfo.RequestURI, "/")
	target := op.WireName()
	if prefix := op.Service().MetadataValue("targetPrefix"); prefix != "" {
		target = prefix + "." + target
	}
	version := stringOr(op.Service().MetadataValue("jsonVersion"), "1.0")
	req.Headers.Set(rpcTargetHeader, target)
	req.Headers.Set("Content-Type", "application/x-json-rpc-"+version)
	body := []byte("{}")
	if input != nil {
		document, err := jsonEncodeValue(params, input, "", op, 0)
		if err != nil {
			return nil, err
		}
		body, err = json.Marshal(document)
		if err != nil {
			return nil, &SerializationError{
				Operation: op.WireName(),
				Reason:    err.Error(),
			}
		}
	}
	req.Body = body
	js.logger.Debugf("serialize: %s %s: %d body bytes", req.Method, req.URLPath, len(req.Body))
	return req, nil
}

// jsonEncodeValue renders a parameter value as a JSON-marshalable
// document under the given shape. Objects are built as ordered maps so
// that member declaration order survives marshaling.
func jsonEncodeValue(
	value any, shape *model.Shape, field string,
	op *model.OperationModel, depth int) (any, error) {
	if depth > maxTraversalDepth {
		return nil, &SerializationError{
			Operation: op.WireName(),
			Field:     field,
			Reason:    "maximum nesting depth exceeded",
		}
	}
	switch shape.Type() {
	case model.TypeStructure:
		return jsonEncodeStructure(value, shape, field, op, depth)
	case model.TypeList:
		items, good := value.([]any)
		if !good {
			return nil, jsonTypeError(op, field, "list", value)
		}
		member, err := shape.Member()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for idx, item := range items {
			encoded, err := jsonEncodeValue(item, member, fmt.Sprintf("%s[%d]", field, idx), op, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded)
		}
		return out, nil
	case model.TypeMap:
		entries, good := value.(map[string]any)
		if !good {
			return nil, jsonTypeError(op, field, "map", value)
		}
		valueShape, err := shape.Value()
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := ordered.NewMap()
		for _, key := range keys {
			encoded, err := jsonEncodeValue(entries[key], valueShape, field+"."+key, op, depth+1)
			if err != nil {
				return nil, err
			}
			out.Set(key, encoded)
		}
		return out, nil
	case model.TypeString:
		str, good := value.(string)
		if !good {
			return nil, jsonTypeError(op, field, "string", value)
		}
		return str, nil
	case model.TypeInteger, model.TypeLong:
		number, good := toInt64(value)
		if !good {
			return nil, jsonTypeError(op, field, "integer", value)
		}
		return number, nil
	case model.TypeFloat, model.TypeDouble:
		number, good := toFloat64(value)
		if !good {
			return nil, jsonTypeError(op, field, "number", value)
		}
		return number, nil
	case model.TypeBoolean:
		flag, good := value.(bool)
		if !good {
			return nil, jsonTypeError(op, field, "boolean", value)
		}
		return flag, nil
	case model.TypeTimestamp:
		instant, err := timefmt.Parse(value)
		if err != nil {
			return nil, &SerializationError{
				Operation: op.WireName(), Field: field, Reason: err.Error(),
			}
		}
		rendered, err := timefmt.Format(instant, timestampFormatFor(shape, timefmt.ISO8601))
		if err != nil {
			return nil, &SerializationError{
				Operation: op.WireName(), Field: field, Reason: err.Error(),
			}
		}
		return rendered, nil
	case model.TypeBlob:
		raw, good := toBytes(value)
		if !good {
			return nil, jsonTypeError(op, field, "bytes", value)
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return nil, jsonTypeError(op, field, "value", value)
	}
}

func jsonEncodeStructure(
	value any, shape *model.Shape, field string,
	op *model.OperationModel, depth int) (any, error) {
	fields, good := value.(map[string]any)
	if !good {
		return nil, jsonTypeError(op, field, "structure", value)
	}
	members, err := shape.Members()
	if err != nil {
		return nil, err
	}
	for name := range fields {
		if _, found := members.Get(name); !found {
			return nil, &SerializationError{
				Operation: op.WireName(),
				Field:     joinPrefix(field, name),
				Reason:    "unknown parameter",
			}
		}
	}
	out := ordered.NewMap()
	for _, memberName := range members.Names() {
		fieldValue, present := fields[memberName]
		if !present {
			continue
		}
		member, _ := members.Get(memberName)
		encoded, err := jsonEncodeValue(
			fieldValue, member, joinPrefix(field, memberName), op, depth+1)
		if err != nil {
			return nil, err
		}
		out.Set(memberWireName(member, memberName), encoded)
	}
	return out, nil
}

func jsonTypeError(op *model.OperationModel, field, expected string, value any) error {
	return &SerializationError{
		Operation: op.WireName(),
		Field:     field,
		Reason:    fmt.Sprintf("expected %s, got %T", expected, value),
	}
}
