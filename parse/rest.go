package parse

//
// Shared REST-style response parsing: extracting status-code, header,
// and prefix-header members before handing the body to the protocol's
// structured decoding, with raw payload passthrough for binary shapes.
//

import (
	"fmt"
	"strings"

	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// bodyFieldsDecoder decodes a structured response body under the given
// shape into a parsed tree.
type bodyFieldsDecoder func(body []byte, shape *model.Shape, op *model.OperationModel) (map[string]any, error)

// restParser implements the location-trait extraction shared by the
// REST-JSON and REST-XML parsers.
type restParser struct {
	protocol   string
	decodeBody bodyFieldsDecoder
	opts       *options
}

func (rp *restParser) parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error) {
	output, err := op.OutputShape()
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if output != nil {
		result, err = rp.parseBody(resp, output, op)
		if err != nil {
			return nil, err
		}
		if err := rp.extractNonBodyMembers(resp, output, op, result); err != nil {
			return nil, err
		}
	}
	withRequestID(result, resp.Headers.Get(requestIDHeader))
	if err := rp.opts.applyOverride(resp, op, result); err != nil {
		return nil, err
	}
	return result, nil
}

// parseBody decodes the body members. A binary or string payload member
// receives the raw body verbatim; a structure payload member becomes
// the decoded document; otherwise the body decodes under the output
// shape itself.
func (rp *restParser) parseBody(
	resp *wire.Response, output *model.Shape, op *model.OperationModel) (map[string]any, error) {
	payloadName, _ := output.Serialization()["payload"].(string)
	if payloadName != "" {
		members, err := output.Members()
		if err != nil {
			return nil, err
		}
		payload, found := members.Get(payloadName)
		if !found {
			return nil, &MalformedResponseError{
				Protocol:  rp.protocol,
				Operation: op.WireName(),
				Reason:    fmt.Sprintf("payload trait names unknown member %q", payloadName),
			}
		}
		result := map[string]any{}
		switch payload.Type() {
		case model.TypeBlob:
			result[payloadName] = resp.Body
		case model.TypeString:
			result[payloadName] = string(resp.Body)
		case model.TypeStructure:
			if len(resp.Body) == 0 {
				return result, nil
			}
			fields, err := rp.decodeBody(resp.Body, payload, op)
			if err != nil {
				return nil, err
			}
			result[payloadName] = fields
		default:
			return nil, &MalformedResponseError{
				Protocol:  rp.protocol,
				Operation: op.WireName(),
				Reason:    fmt.Sprintf("unsupported payload type %s", payload.Type()),
			}
		}
		return result, nil
	}
	if len(resp.Body) == 0 {
		return map[string]any{}, nil
	}
	return rp.decodeBody(resp.Body, output, op)
}

// extractNonBodyMembers reads status-code, header, and prefix-header
// members out of the response envelope, overriding any same-named
// fields from the body.
func (rp *restParser) extractNonBodyMembers(
	resp *wire.Response, output *model.Shape,
	op *model.OperationModel, result map[string]any) error {
	members, err := output.Members()
	if err != nil {
		return err
	}
	for _, memberName := range members.Names() {
		member, _ := members.Get(memberName)
		location, _ := member.Serialization()["location"].(string)
		switch location {
		case "statusCode":
			result[memberName] = int64(resp.StatusCode)
		case "header":
			text := resp.Headers.Get(memberWireName(member, memberName))
			if text == "" {
				continue
			}
			parsed, err := parseScalarString(text, member, rp.protocol, op.WireName())
			if err != nil {
				return err
			}
			result[memberName] = parsed
		case "headers":
			prefix := memberWireName(member, memberName)
			collected := map[string]any{}
			for name, values := range resp.Headers {
				if len(values) == 0 {
					continue
				}
				if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
					continue
				}
				collected[strings.ToLower(name[len(prefix):])] = values[0]
			}
			if len(collected) > 0 {
				result[memberName] = collected
			}
		}
	}
	return nil
}

// restJSONParser parses REST-JSON responses: location-trait extraction
// plus a JSON body document.
type restJSONParser struct {
	opts *options
}

var _ Parser = &restJSONParser{}

// Parse implements [Parser].
func (rj *restJSONParser) Parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error) {
	inner := &restParser{
		protocol:   "rest-json",
		decodeBody: decodeRESTJSONBody,
		opts:       rj.opts,
	}
	return inner.parse(resp, op)
}

func decodeRESTJSONBody(body []byte, shape *model.Shape, op *model.OperationModel) (map[string]any, error) {
	document, err := decodeJSONDocument(body, "rest-json", op.WireName())
	if err != nil {
		return nil, err
	}
	parsed, err := jsonParseValue(document, shape, "rest-json", op, 0)
	if err != nil {
		return nil, err
	}
	fields, good := parsed.(map[string]any)
	if !good {
		return nil, &MalformedResponseError{
			Protocol:  "rest-json",
			Operation: op.WireName(),
			Reason:    fmt.Sprintf("expected object at document root, got %T", parsed),
		}
	}
	return fields, nil
}

// restXMLParser parses REST-XML responses: location-trait extraction
// plus an XML body document.
type restXMLParser struct {
	opts *options
}

var _ Parser = &restXMLParser{}

// Parse implements [Parser].
func (rx *restXMLParser) Parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error) {
	inner := &restParser{
		protocol:   "rest-xml",
		decodeBody: decodeRESTXMLBody,
		opts:       rx.opts,
	}
	return inner.parse(resp, op)
}

func decodeRESTXMLBody(body []byte, shape *model.Shape, op *model.OperationModel) (map[string]any, error) {
	root, err := decodeXMLDocument(body, "rest-xml", op.WireName())
	if err != nil {
		return nil, err
	}
	return xmlParseStructure(root, shape, "rest-xml", op, 0)
}
