package serialize

//
// REST-XML serialization: location-trait partitioning shared with
// REST-JSON plus an XML body encoding.
//

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
	"github.com/nimbus-sdk/nimbus-go/internal/timefmt"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// restXMLSerializer distributes parameters per location traits and
// encodes the body members as one XML document.
type restXMLSerializer struct {
	logger model.Logger
}

var _ Serializer = &restXMLSerializer{}

// SerializeToRequest implements [Serializer].
func (rx *restXMLSerializer) SerializeToRequest(
	params map[string]any, op *model.OperationModel) (*wire.Request, error) {
	inner := &restSerializer{
		encodeBody: encodeXMLBody,
		logger:     rx.logger,
	}
	return inner.serializeToRequest(params, op)
}

// xmlNode is an in-memory element tree emitted through [xml.Encoder]
// so escaping stays correct without string assembly.
type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     string
	hasText  bool
}

func (n *xmlNode) addChild(name string) *xmlNode {
	child := &xmlNode{name: name}
	n.children = append(n.children, child)
	return child
}

func (n *xmlNode) setText(text string) {
	n.text = text
	n.hasText = true
}

func (n *xmlNode) encode(enc *xml.Encoder) error {
	start := xml.StartElement{
		Name: xml.Name{Local: n.name},
		Attr: n.attrs,
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.hasText {
		if err := enc.EncodeToken(xml.CharData(n.text)); err != nil {
			return err
		}
	}
	for _, child := range n.children {
		if err := child.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeXMLBody(fields map[string]any, shape *model.Shape, op *model.OperationModel) ([]byte, string, error) {
	rootName, _ := shape.Serialization()["name"].(string)
	root := &xmlNode{name: stringOr(rootName, shape.Name())}
	applyXMLNamespace(root, shape)
	if err := xmlEncodeStructure(root, fields, shape, "", op, 0); err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := root.encode(enc); err != nil {
		return nil, "", &SerializationError{Operation: op.WireName(), Reason: err.Error()}
	}
	if err := enc.Flush(); err != nil {
		return nil, "", &SerializationError{Operation: op.WireName(), Reason: err.Error()}
	}
	return buf.Bytes(), "application/xml", nil
}

// applyXMLNamespace attaches the shape's xmlNamespace trait, when
// present, as an xmlns attribute on the element.
func applyXMLNamespace(node *xmlNode, shape *model.Shape) {
	trait, found := shape.Serialization()["xmlNamespace"]
	if !found {
		return
	}
	name := "xmlns"
	var uri string
	switch concrete := trait.(type) {
	case string:
		uri = concrete
	case *ordered.Map:
		uri = concrete.GetString("uri")
		if prefix := concrete.GetString("prefix"); prefix != "" {
			name = "xmlns:" + prefix
		}
	default:
		return
	}
	if uri == "" {
		return
	}
	node.attrs = append(node.attrs, xml.Attr{
		Name:  xml.Name{Local: name},
		Value: uri,
	})
}

func xmlEncodeValue(
	parent *xmlNode, name string, value any, shape *model.Shape,
	field string, op *model.OperationModel, depth int) error {
	if depth > maxTraversalDepth {
		return &SerializationError{
			Operation: op.WireName(),
			Field:     field,
			Reason:    "maximum nesting depth exceeded",
		}
	}
	switch shape.Type() {
	case model.TypeStructure:
		fields, good := value.(map[string]any)
		if !good {
			return xmlTypeError(op, field, "structure", value)
		}
		node := parent.addChild(name)
		applyXMLNamespace(node, shape)
		return xmlEncodeStructure(node, fields, shape, field, op, depth)
	case model.TypeList:
		return xmlEncodeList(parent, name, value, shape, field, op, depth)
	case model.TypeMap:
		return xmlEncodeMap(parent, name, value, shape, field, op, depth)
	default:
		rendered, err := scalarString(value, shape, timefmt.ISO8601)
		if err != nil {
			return &SerializationError{Operation: op.WireName(), Field: field, Reason: err.Error()}
		}
		parent.addChild(name).setText(rendered)
		return nil
	}
}

func xmlEncodeStructure(
	node *xmlNode, fields map[string]any, shape *model.Shape,
	field string, op *model.OperationModel, depth int) error {
	members, err := shape.Members()
	if err != nil {
		return err
	}
	for name := range fields {
		if _, found := members.Get(name); !found {
			return &SerializationError{
				Operation: op.WireName(),
				Field:     joinFieldPath(field, name),
				Reason:    "unknown parameter",
			}
		}
	}
	for _, memberName := range members.Names() {
		value, present := fields[memberName]
		if !present {
			continue
		}
		member, _ := members.Get(memberName)
		name := memberWireName(member, memberName)
		path := joinFieldPath(field, memberName)
		if isXMLAttribute(member) {
			rendered, err := scalarString(value, member, timefmt.ISO8601)
			if err != nil {
				return &SerializationError{Operation: op.WireName(), Field: path, Reason: err.Error()}
			}
			node.attrs = append(node.attrs, xml.Attr{
				Name:  xml.Name{Local: name},
				Value: rendered,
			})
			continue
		}
		if err := xmlEncodeValue(node, name, value, member, path, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// xmlEncodeList emits flattened lists as repeated siblings named after
// the list member itself, and wrapped lists as a container holding one
// element per item (named "member" unless overridden).
func xmlEncodeList(
	parent *xmlNode, name string, value any, shape *model.Shape,
	field string, op *model.OperationModel, depth int) error {
	items, good := value.([]any)
	if !good {
		return xmlTypeError(op, field, "list", value)
	}
	member, err := shape.Member()
	if err != nil {
		return err
	}
	container := parent
	itemName := name
	wireName, _ := member.Serialization()["name"].(string)
	if isFlattened(shape) {
		itemName = stringOr(wireName, name)
	} else {
		container = parent.addChild(name)
		itemName = stringOr(wireName, "member")
	}
	for idx, item := range items {
		path := fmt.Sprintf("%s[%d]", field, idx)
		if err := xmlEncodeValue(container, itemName, item, member, path, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func xmlEncodeMap(
	parent *xmlNode, name string, value any, shape *model.Shape,
	field string, op *model.OperationModel, depth int) error {
	entries, good := value.(map[string]any)
	if !good {
		return xmlTypeError(op, field, "map", value)
	}
	key, err := shape.Key()
	if err != nil {
		return err
	}
	valueShape, err := shape.Value()
	if err != nil {
		return err
	}
	keyWireName, _ := key.Serialization()["name"].(string)
	valueWireName, _ := valueShape.Serialization()["name"].(string)
	keyName := stringOr(keyWireName, "key")
	valueName := stringOr(valueWireName, "value")
	flattened := isFlattened(shape)
	var container *xmlNode
	if !flattened {
		container = parent.addChild(name)
	}
	for _, mapKey := range sortedKeys(entries) {
		var entry *xmlNode
		if flattened {
			entry = parent.addChild(name)
		} else {
			entry = container.addChild("entry")
		}
		entry.addChild(keyName).setText(mapKey)
		path := joinFieldPath(field, mapKey)
		if err := xmlEncodeValue(entry, valueName, entries[mapKey], valueShape, path, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func isXMLAttribute(shape *model.Shape) bool {
	flag, _ := shape.Serialization()["xmlAttribute"].(bool)
	return flag
}

func xmlTypeError(op *model.OperationModel, field, want string, got any) error {
	return &SerializationError{
		Operation: op.WireName(),
		Field:     field,
		Reason:    fmt.Sprintf("expected %s, got %T", want, got),
	}
}
