package parse

//
// JSON-RPC response parsing, plus the JSON document walk shared with
// the REST-JSON parser.
//

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// jsonParser parses JSON-RPC responses: one JSON document in the body
// and the request id in the [requestIDHeader] header.
type jsonParser struct {
	opts *options
}

var _ Parser = &jsonParser{}

// Parse implements [Parser].
func (jp *jsonParser) Parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error) {
	output, err := op.OutputShape()
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if output != nil {
		document, err := decodeJSONDocument(resp.Body, "json", op.WireName())
		if err != nil {
			return nil, err
		}
		parsed, err := jsonParseValue(document, output, "json", op, 0)
		if err != nil {
			return nil, err
		}
		fields, good := parsed.(map[string]any)
		if !good {
			return nil, &MalformedResponseError{
				Protocol:  "json",
				Operation: op.WireName(),
				Reason:    fmt.Sprintf("expected object at document root, got %T", parsed),
			}
		}
		result = fields
	}
	withRequestID(result, resp.Headers.Get(requestIDHeader))
	if err := jp.opts.applyOverride(resp, op, result); err != nil {
		return nil, err
	}
	return result, nil
}

// decodeJSONDocument decodes a response body into generic JSON values,
// keeping numbers as [json.Number] so integral and floating members
// convert losslessly. An empty body decodes as an empty object.
func decodeJSONDocument(body []byte, protocol, opName string) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var document any
	if err := dec.Decode(&document); err != nil {
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: opName,
			Reason:    err.Error(),
		}
	}
	return document, nil
}

// jsonParseValue converts one decoded JSON value into its typed form
// under the given shape. Wire fields not present in the shape are
// ignored.
func jsonParseValue(
	value any, shape *model.Shape, protocol string,
	op *model.OperationModel, depth int) (any, error) {
	if depth > maxTraversalDepth {
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: op.WireName(),
			Reason:    "maximum nesting depth exceeded",
		}
	}
	if value == nil {
		return nil, nil
	}
	switch shape.Type() {
	case model.TypeStructure:
		fields, good := value.(map[string]any)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "object", value)
		}
		members, err := shape.Members()
		if err != nil {
			return nil, err
		}
		result := map[string]any{}
		for _, memberName := range members.Names() {
			member, _ := members.Get(memberName)
			raw, present := fields[memberWireName(member, memberName)]
			if !present || raw == nil {
				continue
			}
			parsed, err := jsonParseValue(raw, member, protocol, op, depth+1)
			if err != nil {
				return nil, err
			}
			result[memberName] = parsed
		}
		return result, nil
	case model.TypeList:
		items, good := value.([]any)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "array", value)
		}
		member, err := shape.Member()
		if err != nil {
			return nil, err
		}
		result := make([]any, 0, len(items))
		for _, item := range items {
			parsed, err := jsonParseValue(item, member, protocol, op, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, parsed)
		}
		return result, nil
	case model.TypeMap:
		entries, good := value.(map[string]any)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "object", value)
		}
		valueShape, err := shape.Value()
		if err != nil {
			return nil, err
		}
		result := map[string]any{}
		for key, item := range entries {
			parsed, err := jsonParseValue(item, valueShape, protocol, op, depth+1)
			if err != nil {
				return nil, err
			}
			result[key] = parsed
		}
		return result, nil
	case model.TypeString:
		str, good := value.(string)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "string", value)
		}
		return str, nil
	case model.TypeInteger, model.TypeLong:
		num, good := value.(json.Number)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "number", value)
		}
		parsed, err := num.Int64()
		if err != nil {
			return nil, jsonShapeError(protocol, op, shape, "integer", value)
		}
		return parsed, nil
	case model.TypeFloat, model.TypeDouble:
		num, good := value.(json.Number)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "number", value)
		}
		parsed, err := num.Float64()
		if err != nil {
			return nil, jsonShapeError(protocol, op, shape, "number", value)
		}
		return parsed, nil
	case model.TypeBoolean:
		truth, good := value.(bool)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "boolean", value)
		}
		return truth, nil
	case model.TypeBlob:
		encoded, good := value.(string)
		if !good {
			return nil, jsonShapeError(protocol, op, shape, "base64 string", value)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, jsonShapeError(protocol, op, shape, "base64 string", value)
		}
		return raw, nil
	case model.TypeTimestamp:
		when, err := timefmt.Parse(normalizeJSONNumber(value))
		if err != nil {
			return nil, jsonShapeError(protocol, op, shape, "timestamp", value)
		}
		return when, nil
	default:
		return nil, jsonShapeError(protocol, op, shape, "supported type", value)
	}
}

// normalizeJSONNumber lowers [json.Number] values to float64 so that
// downstream converters only see ordinary numeric types.
func normalizeJSONNumber(value any) any {
	num, good := value.(json.Number)
	if !good {
		return value
	}
	if parsed, err := num.Int64(); err == nil {
		return parsed
	}
	if parsed, err := num.Float64(); err == nil {
		return parsed
	}
	return value
}

func jsonShapeError(
	protocol string, op *model.OperationModel,
	shape *model.Shape, want string, got any) error {
	return &MalformedResponseError{
		Protocol:  protocol,
		Operation: op.WireName(),
		Reason:    fmt.Sprintf("expected %s for %s, got %T", want, shape.Name(), got),
	}
}
