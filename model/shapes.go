package model

//
// Shapes and the shape resolver
//

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
	"github.com/nimbus-sdk/nimbus-go/internal/runtimex"
)

// serializationAttrs are the traits that feed a shape's serialization bag.
var serializationAttrs = []string{
	"locationName",
	"queryName",
	"flattened",
	"location",
	"payload",
	"streaming",
	"timestampFormat",
	"xmlNamespace",
	"xmlAttribute",
	"resultWrapper",
}

// metadataAttrs are the traits that feed a shape's metadata bag.
var metadataAttrs = []string{
	"required",
	"min",
	"max",
	"sensitive",
	"enum",
	"idempotencyToken",
}

// Shape is a typed node in the service data model. The same named shape
// may be referenced from many sites, each reference yielding a [Shape]
// whose serialization bag merges the definition-level traits with the
// reference-site traits, the latter taking precedence.
//
// A [Shape] is immutable after construction except for internal caches
// populated on first access. Concurrent readers are safe: any two
// computations of the same cache entry are equal, so redundant work is
// the worst possible outcome.
type Shape struct {
	name      string
	typ       ShapeType
	def       *ordered.Map
	refTraits *ordered.Map // nil without a reference site
	resolver  *ShapeResolver

	mergedOnce sync.Once
	mergedMap  *ordered.Map

	serializationOnce sync.Once
	serialization     map[string]any

	metadataOnce sync.Once
	metadata     map[string]any

	membersOnce sync.Once
	members     *Members
	membersErr  error

	elementOnce sync.Once
	element     *Shape
	elementErr  error

	keyOnce sync.Once
	key     *Shape
	keyErr  error

	valueOnce sync.Once
	value     *Shape
	valueErr  error
}

// Name returns the shape name as declared in the schema shape table.
func (s *Shape) Name() string {
	return s.name
}

// Type returns the shape's type discriminator.
func (s *Shape) Type() ShapeType {
	return s.typ
}

// String implements fmt.Stringer.
func (s *Shape) String() string {
	return fmt.Sprintf("%s(%s)", s.typ, s.name)
}

// merged lazily combines the definition-level document with the
// reference-site traits. Both sources are copied, never mutated, and
// reference-site traits take precedence.
func (s *Shape) merged() *ordered.Map {
	s.mergedOnce.Do(func() {
		if s.refTraits == nil || s.refTraits.Len() == 0 {
			s.mergedMap = s.def
			return
		}
		merged := s.def.Copy()
		for _, key := range s.refTraits.Keys() {
			value, _ := s.refTraits.Get(key)
			merged.Set(key, value)
		}
		s.mergedMap = merged
	})
	return s.mergedMap
}

// Documentation returns the shape documentation, honoring a
// reference-site override.
func (s *Shape) Documentation() string {
	return s.merged().GetString("documentation")
}

// Serialization returns the merged serialization trait bag. The
// "locationName" trait surfaces under the "name" key. The bag is
// computed once and the identical value is returned on every access;
// callers must not mutate it.
func (s *Shape) Serialization() map[string]any {
	s.serializationOnce.Do(func() {
		bag := map[string]any{}
		merged := s.merged()
		for _, attr := range serializationAttrs {
			if value, found := merged.Get(attr); found {
				bag[attr] = value
			}
		}
		if location, found := bag["locationName"]; found {
			delete(bag, "locationName")
			bag["name"] = location
		}
		s.serialization = bag
	})
	return s.serialization
}

// Metadata returns the shape's constraint trait bag (min, max, enum,
// sensitive, required, ...). Callers must not mutate it.
func (s *Shape) Metadata() map[string]any {
	s.metadataOnce.Do(func() {
		bag := map[string]any{}
		merged := s.merged()
		for _, attr := range metadataAttrs {
			if value, found := merged.Get(attr); found {
				bag[attr] = value
			}
		}
		s.metadata = bag
	})
	return s.metadata
}

// Sensitive returns whether the shape carries the sensitive trait.
func (s *Shape) Sensitive() bool {
	sensitive, _ := s.Metadata()["sensitive"].(bool)
	return sensitive
}

// Members returns the structure members in declaration order, resolving
// every member reference exactly once. Calling Members on a shape whose
// type is not structure is a programming error.
func (s *Shape) Members() (*Members, error) {
	runtimex.PanicIfFalse(s.typ == TypeStructure, "model: Members requires a structure shape")
	s.membersOnce.Do(func() {
		s.members, s.membersErr = s.resolveMembers()
	})
	return s.members, s.membersErr
}

func (s *Shape) resolveMembers() (*Members, error) {
	out := &Members{
		names:  []string{},
		shapes: map[string]*Shape{},
	}
	rawAny, found := s.merged().Get("members")
	if !found {
		return out, nil
	}
	raw, good := rawAny.(*ordered.Map)
	if !good {
		return nil, &InvalidShapeError{
			ShapeName: s.name,
			Reason:    "members is not an object",
		}
	}
	for _, name := range raw.Keys() {
		refAny, _ := raw.Get(name)
		ref, good := refAny.(*ordered.Map)
		if !good {
			return nil, &InvalidShapeError{
				ShapeName: s.name,
				Reason:    fmt.Sprintf("member %q is not an object", name),
			}
		}
		member, err := s.resolver.ResolveShapeRef(ref)
		if err != nil {
			return nil, err
		}
		out.names = append(out.names, name)
		out.shapes[name] = member
	}
	return out, nil
}

// RequiredMembers returns the names the structure declares as required.
func (s *Shape) RequiredMembers() []string {
	out := []string{}
	required, _ := s.Metadata()["required"].([]any)
	for _, name := range required {
		if str, good := name.(string); good {
			out = append(out, str)
		}
	}
	return out
}

// Member returns the resolved element shape of a list. Calling Member
// on a shape whose type is not list is a programming error.
func (s *Shape) Member() (*Shape, error) {
	runtimex.PanicIfFalse(s.typ == TypeList, "model: Member requires a list shape")
	s.elementOnce.Do(func() {
		s.element, s.elementErr = s.resolveRefAt("member")
	})
	return s.element, s.elementErr
}

// Key returns the resolved key shape of a map. Calling Key on a shape
// whose type is not map is a programming error.
func (s *Shape) Key() (*Shape, error) {
	runtimex.PanicIfFalse(s.typ == TypeMap, "model: Key requires a map shape")
	s.keyOnce.Do(func() {
		s.key, s.keyErr = s.resolveRefAt("key")
	})
	return s.key, s.keyErr
}

// Value returns the resolved value shape of a map. Calling Value on a
// shape whose type is not map is a programming error.
func (s *Shape) Value() (*Shape, error) {
	runtimex.PanicIfFalse(s.typ == TypeMap, "model: Value requires a map shape")
	s.valueOnce.Do(func() {
		s.value, s.valueErr = s.resolveRefAt("value")
	})
	return s.value, s.valueErr
}

func (s *Shape) resolveRefAt(field string) (*Shape, error) {
	refAny, found := s.merged().Get(field)
	if !found {
		return nil, &InvalidShapeError{
			ShapeName: s.name,
			Reason:    fmt.Sprintf("missing %q definition", field),
		}
	}
	ref, good := refAny.(*ordered.Map)
	if !good {
		return nil, &InvalidShapeError{
			ShapeName: s.name,
			Reason:    fmt.Sprintf("%q is not an object", field),
		}
	}
	return s.resolver.ResolveShapeRef(ref)
}

// Members is an ordered view of a structure's resolved members.
type Members struct {
	names  []string
	shapes map[string]*Shape
}

// Names returns the member names in declaration order. The caller
// must not mutate the returned slice.
func (m *Members) Names() []string {
	return m.names
}

// Get returns the member shape under name and whether it is present.
func (m *Members) Get(name string) (*Shape, bool) {
	shape, found := m.shapes[name]
	return shape, found
}

// Len returns the number of members.
func (m *Members) Len() int {
	return len(m.names)
}

// ShapeResolver turns shape references in a schema shape table into
// concrete, trait-merged [Shape] values.
//
// Trait-free lookups are memoized by name with write-wins semantics:
// concurrent resolution of the same name may do redundant work but
// always yields equal results.
type ShapeResolver struct {
	shapeMap *ordered.Map
	cache    sync.Map // shape name -> *Shape
}

// NewShapeResolver creates a resolver over the given shape table. A nil
// shape table behaves like an empty one.
func NewShapeResolver(shapeMap *ordered.Map) *ShapeResolver {
	if shapeMap == nil {
		shapeMap = ordered.NewMap()
	}
	return &ShapeResolver{shapeMap: shapeMap}
}

// ShapeNames returns every declared shape name in document order.
func (r *ShapeResolver) ShapeNames() []string {
	return r.shapeMap.Keys()
}

// GetShapeByName returns the shape declared under name in the shape
// table. It fails with [NoShapeFoundError] when the name is undeclared
// and with [InvalidShapeError] when the definition lacks a recognized
// type discriminator.
func (r *ShapeResolver) GetShapeByName(name string) (*Shape, error) {
	if cached, found := r.cache.Load(name); found {
		return cached.(*Shape), nil
	}
	shape, err := r.newShape(name, nil)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(name, shape)
	return actual.(*Shape), nil
}

// ResolveShapeRef resolves a member definition that references a named
// shape, merging any reference-site traits over the definition-level
// traits. It fails with [InvalidShapeReferenceError] when the definition
// is not a reference (e.g. it inlines a "type" with no "shape" key).
func (r *ShapeResolver) ResolveShapeRef(ref *ordered.Map) (*Shape, error) {
	if ref == nil {
		return nil, &InvalidShapeReferenceError{Ref: "empty definition"}
	}
	nameAny, found := ref.Get("shape")
	if !found {
		return nil, &InvalidShapeReferenceError{Ref: describeRef(ref)}
	}
	name, good := nameAny.(string)
	if !good {
		return nil, &InvalidShapeReferenceError{Ref: describeRef(ref)}
	}
	refTraits := ref.Copy()
	refTraits.Delete("shape")
	if refTraits.Len() == 0 {
		return r.GetShapeByName(name)
	}
	return r.newShape(name, refTraits)
}

func (r *ShapeResolver) newShape(name string, refTraits *ordered.Map) (*Shape, error) {
	defAny, found := r.shapeMap.Get(name)
	if !found {
		return nil, &NoShapeFoundError{ShapeName: name}
	}
	def, good := defAny.(*ordered.Map)
	if !good {
		return nil, &InvalidShapeError{
			ShapeName: name,
			Reason:    "definition is not an object",
		}
	}
	tagAny, found := def.Get("type")
	if !found {
		return nil, &InvalidShapeError{
			ShapeName: name,
			Reason:    "missing type discriminator",
		}
	}
	tag, good := tagAny.(string)
	if !good {
		return nil, &InvalidShapeError{
			ShapeName: name,
			Reason:    "type discriminator is not a string",
		}
	}
	typ, err := ParseShapeType(tag)
	if err != nil {
		return nil, &InvalidShapeError{
			ShapeName: name,
			Reason:    "unrecognized type tag " + tag,
		}
	}
	return &Shape{
		name:      name,
		typ:       typ,
		def:       def,
		refTraits: refTraits,
		resolver:  r,
	}, nil
}

func describeRef(ref *ordered.Map) string {
	return fmt.Sprintf(
		"definition with keys [%s] is not a shape reference",
		strings.Join(ref.Keys(), " "),
	)
}
