package parse

//
// XML response body decoding shared by the query-style and REST-XML
// parsers: a generic element tree plus the shape-directed walk over it.
//

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nimbus-sdk/nimbus-go/model"
)

// xmlElement is one node of a decoded XML document.
type xmlElement struct {
	name     string
	attrs    map[string]string
	children []*xmlElement
	text     string
}

// firstChild returns the first child element with the given local name.
func (e *xmlElement) firstChild(name string) *xmlElement {
	for _, child := range e.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

// childrenNamed returns every child element with the given local name,
// in document order.
func (e *xmlElement) childrenNamed(name string) []*xmlElement {
	var out []*xmlElement
	for _, child := range e.children {
		if child.name == name {
			out = append(out, child)
		}
	}
	return out
}

// decodeXMLDocument decodes a response body into an element tree.
// Namespace prefixes are dropped; matching uses local names only.
func decodeXMLDocument(body []byte, protocol, opName string) (*xmlElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var root *xmlElement
	var stack []*xmlElement
	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: opName,
				Reason:    err.Error(),
			}
		}
		switch concrete := token.(type) {
		case xml.StartElement:
			elem := &xmlElement{
				name:  concrete.Name.Local,
				attrs: map[string]string{},
			}
			for _, attr := range concrete.Attr {
				elem.attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, elem)
			} else if root == nil {
				root = elem
			}
			stack = append(stack, elem)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(concrete)
			}
		}
	}
	if root == nil {
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: opName,
			Reason:    "empty XML document",
		}
	}
	return root, nil
}

// xmlParseStructure reads the members of a structure shape out of one
// element. Flattened lists and maps are collected from the repeated
// sibling elements at the member site; attribute-located members come
// from the element's attributes. Wire fields not present in the shape
// are ignored.
func xmlParseStructure(
	elem *xmlElement, shape *model.Shape, protocol string,
	op *model.OperationModel, depth int) (map[string]any, error) {
	if depth > maxTraversalDepth {
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: op.WireName(),
			Reason:    "maximum nesting depth exceeded",
		}
	}
	members, err := shape.Members()
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	for _, memberName := range members.Names() {
		member, _ := members.Get(memberName)
		wireName := memberWireName(member, memberName)
		if isXMLAttributeMember(member) {
			text, present := elem.attrs[wireName]
			if !present {
				continue
			}
			parsed, err := parseScalarString(text, member, protocol, op.WireName())
			if err != nil {
				return nil, err
			}
			result[memberName] = parsed
			continue
		}
		if member.Type() == model.TypeList && isFlattenedShape(member) {
			items := elem.childrenNamed(flattenedListElementName(member, wireName))
			if len(items) == 0 {
				continue
			}
			parsed, err := xmlParseListItems(items, member, protocol, op, depth+1)
			if err != nil {
				return nil, err
			}
			result[memberName] = parsed
			continue
		}
		if member.Type() == model.TypeMap && isFlattenedShape(member) {
			entries := elem.childrenNamed(wireName)
			if len(entries) == 0 {
				continue
			}
			parsed, err := xmlParseMapEntries(entries, member, protocol, op, depth+1)
			if err != nil {
				return nil, err
			}
			result[memberName] = parsed
			continue
		}
		child := elem.firstChild(wireName)
		if child == nil {
			continue
		}
		parsed, err := xmlParseValue(child, member, protocol, op, depth+1)
		if err != nil {
			return nil, err
		}
		result[memberName] = parsed
	}
	return result, nil
}

func xmlParseValue(
	elem *xmlElement, shape *model.Shape, protocol string,
	op *model.OperationModel, depth int) (any, error) {
	if depth > maxTraversalDepth {
		return nil, &MalformedResponseError{
			Protocol:  protocol,
			Operation: op.WireName(),
			Reason:    "maximum nesting depth exceeded",
		}
	}
	switch shape.Type() {
	case model.TypeStructure:
		return xmlParseStructure(elem, shape, protocol, op, depth)
	case model.TypeList:
		member, err := shape.Member()
		if err != nil {
			return nil, err
		}
		itemName := "member"
		if name, good := member.Serialization()["name"].(string); good && name != "" {
			itemName = name
		}
		return xmlParseListItems(elem.childrenNamed(itemName), shape, protocol, op, depth)
	case model.TypeMap:
		return xmlParseMapEntries(elem.childrenNamed("entry"), shape, protocol, op, depth)
	default:
		return parseScalarString(strings.TrimSpace(elem.text), shape, protocol, op.WireName())
	}
}

func xmlParseListItems(
	items []*xmlElement, shape *model.Shape, protocol string,
	op *model.OperationModel, depth int) ([]any, error) {
	member, err := shape.Member()
	if err != nil {
		return nil, err
	}
	result := make([]any, 0, len(items))
	for _, item := range items {
		parsed, err := xmlParseValue(item, member, protocol, op, depth+1)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

func xmlParseMapEntries(
	entries []*xmlElement, shape *model.Shape, protocol string,
	op *model.OperationModel, depth int) (map[string]any, error) {
	key, err := shape.Key()
	if err != nil {
		return nil, err
	}
	valueShape, err := shape.Value()
	if err != nil {
		return nil, err
	}
	keyName := "key"
	if name, good := key.Serialization()["name"].(string); good && name != "" {
		keyName = name
	}
	valueName := "value"
	if name, good := valueShape.Serialization()["name"].(string); good && name != "" {
		valueName = name
	}
	result := map[string]any{}
	for _, entry := range entries {
		keyElem := entry.firstChild(keyName)
		valueElem := entry.firstChild(valueName)
		if keyElem == nil || valueElem == nil {
			return nil, &MalformedResponseError{
				Protocol:  protocol,
				Operation: op.WireName(),
				Reason:    fmt.Sprintf("map entry for %s missing key or value element", shape.Name()),
			}
		}
		parsed, err := xmlParseValue(valueElem, valueShape, protocol, op, depth+1)
		if err != nil {
			return nil, err
		}
		result[strings.TrimSpace(keyElem.text)] = parsed
	}
	return result, nil
}

// flattenedListElementName returns the element name that a flattened
// list repeats at its member site: the list member's locationName when
// declared, the structure member's wire name otherwise.
func flattenedListElementName(list *model.Shape, fallback string) string {
	member, err := list.Member()
	if err != nil {
		return fallback
	}
	if name, good := member.Serialization()["name"].(string); good && name != "" {
		return name
	}
	return fallback
}

func isFlattenedShape(shape *model.Shape) bool {
	flattened, _ := shape.Serialization()["flattened"].(bool)
	return flattened
}

func isXMLAttributeMember(shape *model.Shape) bool {
	flag, _ := shape.Serialization()["xmlAttribute"].(bool)
	return flag
}
