package model

//
// Shape type discriminator
//

// ShapeType is the closed set of types a shape may have.
type ShapeType int

const (
	// TypeInvalid is the zero, invalid shape type.
	TypeInvalid = ShapeType(iota)

	// TypeString is a string shape.
	TypeString

	// TypeInteger is a 32-bit integer shape.
	TypeInteger

	// TypeLong is a 64-bit integer shape.
	TypeLong

	// TypeFloat is a 32-bit floating point shape.
	TypeFloat

	// TypeDouble is a 64-bit floating point shape.
	TypeDouble

	// TypeBoolean is a boolean shape.
	TypeBoolean

	// TypeBlob is a binary shape.
	TypeBlob

	// TypeTimestamp is an instant-in-time shape.
	TypeTimestamp

	// TypeStructure is an ordered named-members shape.
	TypeStructure

	// TypeList is a homogeneous sequence shape.
	TypeList

	// TypeMap is a key/value shape.
	TypeMap
)

// shapeTypeNames maps each valid [ShapeType] to its schema-document tag.
var shapeTypeNames = map[ShapeType]string{
	TypeString:    "string",
	TypeInteger:   "integer",
	TypeLong:      "long",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeBoolean:   "boolean",
	TypeBlob:      "blob",
	TypeTimestamp: "timestamp",
	TypeStructure: "structure",
	TypeList:      "list",
	TypeMap:       "map",
}

// String implements fmt.Stringer.
func (st ShapeType) String() string {
	if name, found := shapeTypeNames[st]; found {
		return name
	}
	return "invalid"
}

// ParseShapeType maps a schema-document type tag onto the
// corresponding [ShapeType].
func ParseShapeType(tag string) (ShapeType, error) {
	for st, name := range shapeTypeNames {
		if name == tag {
			return st, nil
		}
	}
	return TypeInvalid, &InvalidShapeError{
		ShapeName: "",
		Reason:    "unrecognized type tag " + tag,
	}
}

// IsScalar returns whether the type is not a structure, list, or map.
func (st ShapeType) IsScalar() bool {
	switch st {
	case TypeStructure, TypeList, TypeMap:
		return false
	default:
		return true
	}
}
