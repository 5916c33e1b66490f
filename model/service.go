package model

//
// Service and operation models
//

import (
	"sync"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
)

// ServiceModel is the top-level container binding service metadata, the
// shape table, and the operation table of one schema document.
type ServiceModel struct {
	doc         *ordered.Map
	metadata    *ordered.Map
	operations  *ordered.Map
	resolver    *ShapeResolver
	serviceName string
}

// NewServiceModel creates a [ServiceModel] from a decoded schema
// document. The document is never mutated.
func NewServiceModel(doc *ordered.Map) *ServiceModel {
	if doc == nil {
		doc = ordered.NewMap()
	}
	metadata, _ := mapAt(doc, "metadata")
	operations, _ := mapAt(doc, "operations")
	shapes, _ := mapAt(doc, "shapes")
	return &ServiceModel{
		doc:        doc,
		metadata:   metadata,
		operations: operations,
		resolver:   NewShapeResolver(shapes),
	}
}

func mapAt(doc *ordered.Map, key string) (*ordered.Map, bool) {
	valueAny, found := doc.Get(key)
	if !found {
		return nil, false
	}
	value, good := valueAny.(*ordered.Map)
	return value, good
}

// WithServiceName returns a shallow copy of the model whose
// [ServiceModel.ServiceName] is overridden.
func (m *ServiceModel) WithServiceName(name string) *ServiceModel {
	out := &ServiceModel{}
	*out = *m
	out.serviceName = name
	return out
}

// metadataString returns the metadata attribute under key, failing
// with [UndefinedModelAttributeError] when absent.
func (m *ServiceModel) metadataString(key string) (string, error) {
	if m.metadata != nil {
		if value, found := m.metadata.Get(key); found {
			if str, good := value.(string); good {
				return str, nil
			}
		}
	}
	return "", &UndefinedModelAttributeError{Attribute: key}
}

// MetadataValue returns the metadata attribute under key or the empty
// string when absent. Use the named accessors for attributes whose
// absence is an error.
func (m *ServiceModel) MetadataValue(key string) string {
	if m.metadata == nil {
		return ""
	}
	return m.metadata.GetString(key)
}

// Protocol returns the wire protocol name.
func (m *ServiceModel) Protocol() (string, error) {
	return m.metadataString("protocol")
}

// APIVersion returns the API version string.
func (m *ServiceModel) APIVersion() (string, error) {
	return m.metadataString("apiVersion")
}

// EndpointPrefix returns the endpoint prefix.
func (m *ServiceModel) EndpointPrefix() (string, error) {
	return m.metadataString("endpointPrefix")
}

// SigningName returns the signing name, defaulting to the endpoint
// prefix when the schema does not declare one.
func (m *ServiceModel) SigningName() (string, error) {
	if name := m.MetadataValue("signingName"); name != "" {
		return name, nil
	}
	return m.EndpointPrefix()
}

// ServiceName returns the caller-facing service name: the explicit
// override when set, the endpoint prefix otherwise.
func (m *ServiceModel) ServiceName() (string, error) {
	if m.serviceName != "" {
		return m.serviceName, nil
	}
	return m.EndpointPrefix()
}

// Documentation returns the service documentation.
func (m *ServiceModel) Documentation() string {
	return m.doc.GetString("documentation")
}

// Resolver returns the shape resolver over the schema's shape table.
func (m *ServiceModel) Resolver() *ShapeResolver {
	return m.resolver
}

// OperationNames returns the wire names of the declared operations in
// declaration order.
func (m *ServiceModel) OperationNames() []string {
	if m.operations == nil {
		return []string{}
	}
	return m.operations.Keys()
}

// OperationModel returns the operation declared under name, failing
// with [OperationNotFoundError] when absent.
func (m *ServiceModel) OperationModel(name string) (*OperationModel, error) {
	if m.operations != nil {
		if def, good := mapAt(m.operations, name); good {
			return NewOperationModel(def, m, name), nil
		}
	}
	return nil, &OperationNotFoundError{OperationName: name}
}

// HTTPInfo describes how an operation binds to HTTP.
type HTTPInfo struct {
	// Method is the HTTP method.
	Method string

	// RequestURI is the URI template, possibly containing
	// path placeholders.
	RequestURI string
}

// OperationModel binds one operation's wire contract to its owning
// [ServiceModel].
type OperationModel struct {
	def     *ordered.Map
	service *ServiceModel
	apiName string

	inputOnce sync.Once
	input     *Shape
	inputErr  error

	outputOnce sync.Once
	output     *Shape
	outputErr  error
}

// NewOperationModel creates an [OperationModel] from an operation
// definition bound to service. The apiName is the caller-facing name
// override; pass the empty string to default to the wire name.
func NewOperationModel(def *ordered.Map, service *ServiceModel, apiName string) *OperationModel {
	if def == nil {
		def = ordered.NewMap()
	}
	return &OperationModel{
		def:     def,
		service: service,
		apiName: apiName,
	}
}

// Service returns the owning service model.
func (op *OperationModel) Service() *ServiceModel {
	return op.service
}

// WireName returns the name used on the wire, which is always the
// schema-declared operation name.
func (op *OperationModel) WireName() string {
	return op.def.GetString("name")
}

// Name returns the caller-facing operation name, which may be
// overridden independently of the wire name.
func (op *OperationModel) Name() string {
	if op.apiName != "" {
		return op.apiName
	}
	return op.WireName()
}

// Documentation returns the operation documentation.
func (op *OperationModel) Documentation() string {
	return op.def.GetString("documentation")
}

// HTTP returns the operation's HTTP binding. Fields are empty when the
// schema does not declare them.
func (op *OperationModel) HTTP() HTTPInfo {
	info := HTTPInfo{}
	if http, good := mapAt(op.def, "http"); good {
		info.Method = http.GetString("method")
		info.RequestURI = http.GetString("requestUri")
	}
	return info
}

// InputShape resolves the operation input shape. It returns a nil shape
// and a nil error when the operation declares no input.
func (op *OperationModel) InputShape() (*Shape, error) {
	op.inputOnce.Do(func() {
		op.input, op.inputErr = op.resolveShapeAt("input")
	})
	return op.input, op.inputErr
}

// OutputShape resolves the operation output shape. It returns a nil
// shape and a nil error when the operation declares no output: absence
// of an output shape is valid, not an error.
func (op *OperationModel) OutputShape() (*Shape, error) {
	op.outputOnce.Do(func() {
		op.output, op.outputErr = op.resolveShapeAt("output")
	})
	return op.output, op.outputErr
}

func (op *OperationModel) resolveShapeAt(field string) (*Shape, error) {
	ref, good := mapAt(op.def, field)
	if !good {
		return nil, nil
	}
	return op.service.resolver.ResolveShapeRef(ref)
}

// ErrorShapes resolves the error shapes the operation declares.
func (op *OperationModel) ErrorShapes() ([]*Shape, error) {
	out := []*Shape{}
	refsAny, found := op.def.Get("errors")
	if !found {
		return out, nil
	}
	refs, good := refsAny.([]any)
	if !good {
		return out, nil
	}
	for _, refAny := range refs {
		ref, good := refAny.(*ordered.Map)
		if !good {
			continue
		}
		shape, err := op.service.resolver.ResolveShapeRef(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, shape)
	}
	return out, nil
}

// HasStreamingOutput returns true iff the output structure declares a
// payload member whose shape type is binary.
func (op *OperationModel) HasStreamingOutput() bool {
	output, err := op.OutputShape()
	if err != nil || output == nil || output.Type() != TypeStructure {
		return false
	}
	payload, good := output.Serialization()["payload"].(string)
	if !good {
		return false
	}
	members, err := output.Members()
	if err != nil {
		return false
	}
	member, found := members.Get(payload)
	return found && member.Type() == TypeBlob
}
