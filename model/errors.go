package model

//
// Model errors
//

import "fmt"

// NoShapeFoundError indicates that the resolver was asked for a
// shape name that the schema does not declare.
type NoShapeFoundError struct {
	// ShapeName is the undeclared shape name.
	ShapeName string
}

var _ error = &NoShapeFoundError{}

// Error implements error.
func (err *NoShapeFoundError) Error() string {
	return fmt.Sprintf("model: no shape named %q", err.ShapeName)
}

// InvalidShapeError indicates that a shape definition lacks a type
// discriminator or carries an unrecognized one.
type InvalidShapeError struct {
	// ShapeName is the name of the offending shape, when known.
	ShapeName string

	// Reason describes what is wrong with the definition.
	Reason string
}

var _ error = &InvalidShapeError{}

// Error implements error.
func (err *InvalidShapeError) Error() string {
	return fmt.Sprintf("model: invalid shape %q: %s", err.ShapeName, err.Reason)
}

// InvalidShapeReferenceError indicates that a member definition that
// should reference a named shape contains an inline definition instead,
// which marks a denormalized (hence invalid) schema.
type InvalidShapeReferenceError struct {
	// Ref describes the offending reference.
	Ref string
}

var _ error = &InvalidShapeReferenceError{}

// Error implements error.
func (err *InvalidShapeReferenceError) Error() string {
	return fmt.Sprintf("model: invalid shape reference: %s", err.Ref)
}

// OperationNotFoundError indicates that the service model was asked
// for an operation that the schema does not declare.
type OperationNotFoundError struct {
	// OperationName is the undeclared operation name.
	OperationName string
}

var _ error = &OperationNotFoundError{}

// Error implements error.
func (err *OperationNotFoundError) Error() string {
	return fmt.Sprintf("model: no operation named %q", err.OperationName)
}

// UndefinedModelAttributeError indicates that a required metadata
// attribute is absent from the schema document.
type UndefinedModelAttributeError struct {
	// Attribute is the missing metadata attribute.
	Attribute string
}

var _ error = &UndefinedModelAttributeError{}

// Error implements error.
func (err *UndefinedModelAttributeError) Error() string {
	return fmt.Sprintf("model: metadata attribute %q is not defined", err.Attribute)
}
