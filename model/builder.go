package model

//
// Builder for denormalized, inline shape definitions
//

import (
	"fmt"
	"strings"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
)

// DenormalizedStructureBuilder constructs a [Shape] directly from an
// already-denormalized, inline nested definition, where members carry a
// "type" tag instead of referencing named shapes. This is useful for
// synthesizing shapes, e.g. in fixtures, without a schema document.
//
// Usage:
//
//	builder := NewDenormalizedStructureBuilder()
//	shape, err := builder.WithMembers(members).Build()
type DenormalizedStructureBuilder struct {
	name      string
	members   *ordered.Map
	generator *shapeNameGenerator
}

// NewDenormalizedStructureBuilder creates a new builder.
func NewDenormalizedStructureBuilder() *DenormalizedStructureBuilder {
	return &DenormalizedStructureBuilder{
		members:   ordered.NewMap(),
		generator: &shapeNameGenerator{counts: map[string]int{}},
	}
}

// WithName overrides the generated name of the root structure shape.
func (b *DenormalizedStructureBuilder) WithName(name string) *DenormalizedStructureBuilder {
	b.name = name
	return b
}

// WithMembers sets the inline member definitions of the root structure.
// Member declaration order is preserved at every nesting level.
func (b *DenormalizedStructureBuilder) WithMembers(members *ordered.Map) *DenormalizedStructureBuilder {
	b.members = members
	return b
}

// Build normalizes the inline definition into a shape table and resolves
// the root structure shape. It fails with [InvalidShapeError] when an
// inline definition carries an unrecognized type tag.
func (b *DenormalizedStructureBuilder) Build() (*Shape, error) {
	root := ordered.NewMap()
	root.Set("type", "structure")
	root.Set("members", b.members)
	name := b.name
	if name == "" {
		name = b.generator.next("structure")
	}
	shapes := ordered.NewMap()
	if err := b.buildModel(root, shapes, name); err != nil {
		return nil, err
	}
	return NewShapeResolver(shapes).GetShapeByName(name)
}

// buildModel normalizes the inline definition named shapeName into the
// shapes table, recursing into nested definitions.
func (b *DenormalizedStructureBuilder) buildModel(def *ordered.Map, shapes *ordered.Map, shapeName string) error {
	tag := def.GetString("type")
	typ, err := ParseShapeType(tag)
	if err != nil {
		return &InvalidShapeError{
			ShapeName: shapeName,
			Reason:    fmt.Sprintf("unrecognized inline type tag %q", tag),
		}
	}
	shape := b.initialShape(def)
	switch typ {
	case TypeStructure:
		members := ordered.NewMap()
		if rawAny, found := def.Get("members"); found {
			raw, good := rawAny.(*ordered.Map)
			if !good {
				return &InvalidShapeError{ShapeName: shapeName, Reason: "members is not an object"}
			}
			for _, memberName := range raw.Keys() {
				subAny, _ := raw.Get(memberName)
				sub, good := subAny.(*ordered.Map)
				if !good {
					return &InvalidShapeError{
						ShapeName: shapeName,
						Reason:    fmt.Sprintf("member %q is not an object", memberName),
					}
				}
				ref, err := b.buildSubShape(sub, shapes)
				if err != nil {
					return err
				}
				members.Set(memberName, ref)
			}
		}
		shape.Set("members", members)
	case TypeList:
		ref, err := b.buildSubShapeAt(def, "member", shapes, shapeName)
		if err != nil {
			return err
		}
		shape.Set("member", ref)
	case TypeMap:
		for _, field := range []string{"key", "value"} {
			ref, err := b.buildSubShapeAt(def, field, shapes, shapeName)
			if err != nil {
				return err
			}
			shape.Set(field, ref)
		}
	default:
		// scalar types carry no structural keys
	}
	shapes.Set(shapeName, shape)
	return nil
}

func (b *DenormalizedStructureBuilder) buildSubShapeAt(
	def *ordered.Map, field string, shapes *ordered.Map, shapeName string) (*ordered.Map, error) {
	subAny, found := def.Get(field)
	if !found {
		return nil, &InvalidShapeError{
			ShapeName: shapeName,
			Reason:    fmt.Sprintf("missing %q definition", field),
		}
	}
	sub, good := subAny.(*ordered.Map)
	if !good {
		return nil, &InvalidShapeError{
			ShapeName: shapeName,
			Reason:    fmt.Sprintf("%q is not an object", field),
		}
	}
	return b.buildSubShape(sub, shapes)
}

// buildSubShape normalizes a nested inline definition and returns the
// reference to insert at its reference site.
func (b *DenormalizedStructureBuilder) buildSubShape(def *ordered.Map, shapes *ordered.Map) (*ordered.Map, error) {
	name := def.GetString("shape_name")
	if name == "" {
		name = b.generator.next(def.GetString("type"))
	}
	if err := b.buildModel(def, shapes, name); err != nil {
		return nil, err
	}
	ref := ordered.NewMap()
	ref.Set("shape", name)
	return ref, nil
}

// initialShape copies the type tag, documentation, and metadata traits
// of an inline definition into a fresh normalized definition.
func (b *DenormalizedStructureBuilder) initialShape(def *ordered.Map) *ordered.Map {
	shape := ordered.NewMap()
	shape.Set("type", def.GetString("type"))
	if doc, found := def.Get("documentation"); found {
		shape.Set("documentation", doc)
	}
	for _, attr := range metadataAttrs {
		if value, found := def.Get(attr); found {
			shape.Set(attr, value)
		}
	}
	for _, attr := range serializationAttrs {
		if value, found := def.Get(attr); found {
			shape.Set(attr, value)
		}
	}
	return shape
}

// shapeNameGenerator mints unique synthetic shape names per type tag,
// e.g. StringType1, StructureType1, StringType2.
type shapeNameGenerator struct {
	counts map[string]int
}

func (g *shapeNameGenerator) next(tag string) string {
	if tag == "" {
		tag = "unknown"
	}
	g.counts[tag]++
	capitalized := strings.ToUpper(tag[:1]) + tag[1:]
	return fmt.Sprintf("%sType%d", capitalized, g.counts[tag])
}
