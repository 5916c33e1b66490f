package serialize

//
// Form-encoded RPC serialization ("query" and the legacy variant)
//

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// querySerializer flattens the parameter tree into an ordered set of
// form-encoded key=value pairs. The legacy style differs in member
// naming (queryName trait, capitalized fallback) and always produces
// indexed list keys without a "member" wrapper.
type querySerializer struct {
	legacyStyle bool
	logger      model.Logger
}

var _ Serializer = &querySerializer{}

// SerializeToRequest implements [Serializer].
func (qs *querySerializer) SerializeToRequest(
	params map[string]any, op *model.OperationModel) (*wire.Request, error) {
	input, err := op.InputShape()
	if err != nil {
		return nil, err
	}
	params, err = injectIdempotencyTokens(params, input)
	if err != nil {
		return nil, err
	}
	version, err := op.Service().APIVersion()
	if err != nil {
		return nil, err
	}
	httpInfo := op.HTTP()
	req := wire.NewRequest()
	req.Method = stringOr(httpInfo.Method, defaultMethod)
	req.URLPath = stringOr(httpInfo.RequestURI, "/")
	req.Headers.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	pairs := &formPairs{}
	pairs.add("Action", op.WireName())
	pairs.add("Version", version)
	if input != nil {
		if err := qs.serializeValue(pairs, params, input, "", op, 0); err != nil {
			return nil, err
		}
	}
	req.Body = pairs.encode()
	qs.logger.Debugf("serialize: %s %s: %d form fields", req.Method, req.URLPath, pairs.len())
	return req, nil
}

func (qs *querySerializer) serializeValue(
	pairs *formPairs, value any, shape *model.Shape,
	prefix string, op *model.OperationModel, depth int) error {
	if depth > maxTraversalDepth {
		return &SerializationError{
			Operation: op.WireName(),
			Field:     prefix,
			Reason:    "maximum nesting depth exceeded",
		}
	}
	switch shape.Type() {
	case model.TypeStructure:
		return qs.serializeStructure(pairs, value, shape, prefix, op, depth)
	case model.TypeList:
		return qs.serializeList(pairs, value, shape, prefix, op, depth)
	case model.TypeMap:
		return qs.serializeMap(pairs, value, shape, prefix, op, depth)
	default:
		rendered, err := scalarString(value, shape, timefmt.UnixTime)
		if err != nil {
			return &SerializationError{
				Operation: op.WireName(),
				Field:     prefix,
				Reason:    err.Error(),
			}
		}
		pairs.add(prefix, rendered)
		return nil
	}
}

func (qs *querySerializer) serializeStructure(
	pairs *formPairs, value any, shape *model.Shape,
	prefix string, op *model.OperationModel, depth int) error {
	fields, good := value.(map[string]any)
	if !good {
		return &SerializationError{
			Operation: op.WireName(),
			Field:     prefix,
			Reason:    fmt.Sprintf("expected structure parameters, got %T", value),
		}
	}
	members, err := shape.Members()
	if err != nil {
		return err
	}
	for field := range fields {
		if _, found := members.Get(field); !found {
			return &SerializationError{
				Operation: op.WireName(),
				Field:     joinPrefix(prefix, field),
				Reason:    "unknown parameter",
			}
		}
	}
	for _, memberName := range members.Names() {
		fieldValue, present := fields[memberName]
		if !present {
			continue
		}
		member, _ := members.Get(memberName)
		name := qs.serializedName(member, memberName)
		if err := qs.serializeValue(pairs, fieldValue, member, joinPrefix(prefix, name), op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (qs *querySerializer) serializeList(
	pairs *formPairs, value any, shape *model.Shape,
	prefix string, op *model.OperationModel, depth int) error {
	items, good := value.([]any)
	if !good {
		return &SerializationError{
			Operation: op.WireName(),
			Field:     prefix,
			Reason:    fmt.Sprintf("expected list parameters, got %T", value),
		}
	}
	member, err := shape.Member()
	if err != nil {
		return err
	}
	// an empty list still serializes as an empty-valued field
	if len(items) == 0 {
		pairs.add(prefix, "")
		return nil
	}
	listPrefix := prefix
	switch {
	case qs.legacyStyle:
		// always prefix.N, regardless of flattening
	case isFlattened(shape):
		if name, good := member.Serialization()["name"].(string); good && name != "" {
			listPrefix = replaceLastSegment(prefix, name)
		}
	default:
		memberTag := "member"
		if name, good := member.Serialization()["name"].(string); good && name != "" {
			memberTag = name
		}
		listPrefix = prefix + "." + memberTag
	}
	for idx, item := range items {
		position := fmt.Sprintf("%s.%d", listPrefix, idx+1)
		if err := qs.serializeValue(pairs, item, member, position, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (qs *querySerializer) serializeMap(
	pairs *formPairs, value any, shape *model.Shape,
	prefix string, op *model.OperationModel, depth int) error {
	entries, good := value.(map[string]any)
	if !good {
		return &SerializationError{
			Operation: op.WireName(),
			Field:     prefix,
			Reason:    fmt.Sprintf("expected map parameters, got %T", value),
		}
	}
	keyShape, err := shape.Key()
	if err != nil {
		return err
	}
	valueShape, err := shape.Value()
	if err != nil {
		return err
	}
	keyTag := qs.serializedName(keyShape, "key")
	valueTag := qs.serializedName(valueShape, "value")
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for idx, key := range keys {
		base := fmt.Sprintf("%s.entry.%d", prefix, idx+1)
		if isFlattened(shape) {
			base = fmt.Sprintf("%s.%d", prefix, idx+1)
		}
		pairs.add(base+"."+keyTag, key)
		if err := qs.serializeValue(pairs, entries[key], valueShape, base+"."+valueTag, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// serializedName returns the form-field name of a member. The legacy
// style prefers the queryName trait and capitalizes the fallback.
func (qs *querySerializer) serializedName(member *model.Shape, memberName string) string {
	if qs.legacyStyle {
		if name, good := member.Serialization()["queryName"].(string); good && name != "" {
			return name
		}
		return capitalizeFirst(memberWireName(member, memberName))
	}
	return memberWireName(member, memberName)
}

func isFlattened(shape *model.Shape) bool {
	flattened, _ := shape.Serialization()["flattened"].(bool)
	return flattened
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func replaceLastSegment(prefix, name string) string {
	idx := strings.LastIndex(prefix, ".")
	if idx < 0 {
		return name
	}
	return prefix[:idx+1] + name
}

func capitalizeFirst(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// formPairs accumulates form fields preserving shape-walk order, which
// the sorted encoding of url.Values would destroy.
type formPairs struct {
	pairs [][2]string
}

func (fp *formPairs) add(key, value string) {
	fp.pairs = append(fp.pairs, [2]string{key, value})
}

func (fp *formPairs) len() int {
	return len(fp.pairs)
}

func (fp *formPairs) encode() []byte {
	var out strings.Builder
	for idx, pair := range fp.pairs {
		if idx > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(pair[0]))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(pair[1]))
	}
	return []byte(out.String())
}
