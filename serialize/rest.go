package serialize

//
// Shared REST-style serialization: distributing parameters across URI
// path, query string, headers, and body per each member's location trait.
//

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// bodyEncoder renders the body members (or the payload member subtree)
// of a REST request into final bytes plus a content type.
type bodyEncoder func(fields map[string]any, shape *model.Shape, op *model.OperationModel) ([]byte, string, error)

// restSerializer implements the location-trait partitioning shared by
// the REST-JSON and REST-XML protocols.
type restSerializer struct {
	encodeBody bodyEncoder
	logger     model.Logger
}

func (rs *restSerializer) serializeToRequest(
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
	uriParams := map[string]string{}
	bodyFields := map[string]any{}
	if input != nil {
		if err := rs.partitionParams(req, params, input, op, uriParams, bodyFields); err != nil {
			return nil, err
		}
	}
	path, err := fillURITemplate(stringOr(httpInfo.RequestURI, "/"), uriParams, req.Query, op)
	if err != nil {
		return nil, err
	}
	req.URLPath = path
	if input != nil {
		if err := rs.serializeBody(req, input, op, bodyFields); err != nil {
			return nil, err
		}
	}
	rs.logger.Debugf("serialize: %s %s: %d body bytes", req.Method, req.URLPath, len(req.Body))
	return req, nil
}

func (rs *restSerializer) partitionParams(
	req *wire.Request, params map[string]any, input *model.Shape,
	op *model.OperationModel, uriParams map[string]string, bodyFields map[string]any) error {
	members, err := input.Members()
	if err != nil {
		return err
	}
	for field := range params {
		if _, found := members.Get(field); !found {
			return &SerializationError{
				Operation: op.WireName(),
				Field:     field,
				Reason:    "unknown parameter",
			}
		}
	}
	for _, memberName := range members.Names() {
		value, present := params[memberName]
		if !present {
			continue
		}
		member, _ := members.Get(memberName)
		name := memberWireName(member, memberName)
		location, _ := member.Serialization()["location"].(string)
		switch location {
		case "uri":
			rendered, err := scalarString(value, member, timefmt.ISO8601)
			if err != nil {
				return &SerializationError{Operation: op.WireName(), Field: memberName, Reason: err.Error()}
			}
			uriParams[name] = rendered
		case "querystring":
			if err := rs.serializeQuerystring(req, value, member, name, op, memberName); err != nil {
				return err
			}
		case "header":
			rendered, err := scalarString(value, member, timefmt.RFC822)
			if err != nil {
				return &SerializationError{Operation: op.WireName(), Field: memberName, Reason: err.Error()}
			}
			req.Headers.Set(name, rendered)
		case "headers":
			if err := rs.serializeHeaderMap(req, value, name, op, memberName); err != nil {
				return err
			}
		default:
			bodyFields[memberName] = value
		}
	}
	return nil
}

func (rs *restSerializer) serializeQuerystring(
	req *wire.Request, value any, member *model.Shape,
	name string, op *model.OperationModel, field string) error {
	switch concrete := value.(type) {
	case []any:
		for _, item := range concrete {
			str, good := item.(string)
			if !good {
				return &SerializationError{
					Operation: op.WireName(), Field: field,
					Reason: fmt.Sprintf("expected string list in querystring, got %T", item),
				}
			}
			req.Query.Add(name, str)
		}
	case map[string]any:
		// an unmodeled query map contributes its own keys
		for key, item := range concrete {
			str, good := item.(string)
			if !good {
				return &SerializationError{
					Operation: op.WireName(), Field: field,
					Reason: fmt.Sprintf("expected string map in querystring, got %T", item),
				}
			}
			req.Query.Set(key, str)
		}
	default:
		rendered, err := scalarString(value, member, timefmt.UnixTime)
		if err != nil {
			return &SerializationError{Operation: op.WireName(), Field: field, Reason: err.Error()}
		}
		req.Query.Set(name, rendered)
	}
	return nil
}

func (rs *restSerializer) serializeHeaderMap(
	req *wire.Request, value any, prefix string,
	op *model.OperationModel, field string) error {
	entries, good := value.(map[string]any)
	if !good {
		return &SerializationError{
			Operation: op.WireName(), Field: field,
			Reason: fmt.Sprintf("expected map for header prefix, got %T", value),
		}
	}
	for key, item := range entries {
		str, good := item.(string)
		if !good {
			return &SerializationError{
				Operation: op.WireName(), Field: field,
				Reason: fmt.Sprintf("expected string header value, got %T", item),
			}
		}
		req.Headers.Set(prefix+key, str)
	}
	return nil
}

// serializeBody finalizes the request body: a payload member becomes
// the entire body verbatim when binary, or the body document root when
// structured; otherwise the remaining body members serialize under the
// protocol's structured encoding.
func (rs *restSerializer) serializeBody(
	req *wire.Request, input *model.Shape,
	op *model.OperationModel, bodyFields map[string]any) error {
	payloadName, _ := input.Serialization()["payload"].(string)
	if payloadName != "" {
		members, err := input.Members()
		if err != nil {
			return err
		}
		payload, found := members.Get(payloadName)
		if !found {
			return &SerializationError{
				Operation: op.WireName(), Field: payloadName,
				Reason: "payload trait names a member that does not exist",
			}
		}
		value, present := bodyFields[payloadName]
		if !present {
			return nil
		}
		switch payload.Type() {
		case model.TypeBlob, model.TypeString:
			raw, good := toBytes(value)
			if !good {
				return &SerializationError{
					Operation: op.WireName(), Field: payloadName,
					Reason: fmt.Sprintf("expected raw payload bytes, got %T", value),
				}
			}
			// raw payloads bypass the structured encoding entirely
			req.Body = raw
			if req.Headers.Get("Content-Type") == "" {
				req.Headers.Set("Content-Type", "application/octet-stream")
			}
			return nil
		default:
			fields, good := value.(map[string]any)
			if !good {
				return &SerializationError{
					Operation: op.WireName(), Field: payloadName,
					Reason: fmt.Sprintf("expected structure payload, got %T", value),
				}
			}
			body, contentType, err := rs.encodeBody(fields, payload, op)
			if err != nil {
				return err
			}
			req.Body = body
			if req.Headers.Get("Content-Type") == "" && contentType != "" {
				req.Headers.Set("Content-Type", contentType)
			}
			return nil
		}
	}
	if len(bodyFields) == 0 {
		return nil
	}
	body, contentType, err := rs.encodeBody(bodyFields, input, op)
	if err != nil {
		return err
	}
	req.Body = body
	if req.Headers.Get("Content-Type") == "" && contentType != "" {
		req.Headers.Set("Content-Type", contentType)
	}
	return nil
}

// fillURITemplate substitutes {label} and greedy {label+} placeholders
// in the request URI template using the uri-located parameters, and
// folds any query part baked into the template into the query map.
func fillURITemplate(
	template string, uriParams map[string]string,
	query url.Values, op *model.OperationModel) (string, error) {
	path := template
	if idx := strings.Index(template, "?"); idx >= 0 {
		path = template[:idx]
		for _, entry := range strings.Split(template[idx+1:], "&") {
			if entry == "" {
				continue
			}
			key, value, _ := strings.Cut(entry, "=")
			query.Add(key, value)
		}
	}
	var out strings.Builder
	for {
		open := strings.Index(path, "{")
		if open < 0 {
			out.WriteString(path)
			break
		}
		out.WriteString(path[:open])
		closing := strings.Index(path, "}")
		if closing < open {
			return "", &SerializationError{
				Operation: op.WireName(),
				Reason:    fmt.Sprintf("malformed URI template %q", template),
			}
		}
		label := path[open+1 : closing]
		greedy := strings.HasSuffix(label, "+")
		label = strings.TrimSuffix(label, "+")
		value, found := uriParams[label]
		if !found {
			return "", &SerializationError{
				Operation: op.WireName(),
				Field:     label,
				Reason:    "missing required URI parameter",
			}
		}
		out.WriteString(escapePathValue(value, greedy))
		path = path[closing+1:]
	}
	return out.String(), nil
}

// escapePathValue percent-encodes a path parameter. Greedy labels keep
// literal slashes so multi-segment values survive.
func escapePathValue(value string, greedy bool) string {
	if !greedy {
		return url.PathEscape(value)
	}
	segments := strings.Split(value, "/")
	for idx, segment := range segments {
		segments[idx] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// restJSONSerializer distributes parameters per location traits and
// encodes the body members as one JSON document.
type restJSONSerializer struct {
	logger model.Logger
}

var _ Serializer = &restJSONSerializer{}

// SerializeToRequest implements [Serializer].
func (rj *restJSONSerializer) SerializeToRequest(
	params map[string]any, op *model.OperationModel) (*wire.Request, error) {
	inner := &restSerializer{
		encodeBody: encodeJSONBody,
		logger:     rj.logger,
	}
	return inner.serializeToRequest(params, op)
}

func encodeJSONBody(fields map[string]any, shape *model.Shape, op *model.OperationModel) ([]byte, string, error) {
	document, err := jsonEncodeValue(fields, shape, "", op, 0)
	if err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(document)
	if err != nil {
		return nil, "", &SerializationError{Operation: op.WireName(), Reason: err.Error()}
	}
	return body, "application/json", nil
}
