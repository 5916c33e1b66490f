package parse

//
// Query-style response parsing: an XML body with an optional result
// wrapper and a request-id envelope, in standard and legacy flavors.
//

import (
	"strings"

	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

// queryParser parses the form-RPC and legacy-query protocols. Standard
// responses carry a ResponseMetadata/RequestId element and may wrap the
// result members in a resultWrapper element; legacy responses carry a
// root-level requestId element and no wrapper.
type queryParser struct {
	legacyStyle bool
	opts        *options
}

var _ Parser = &queryParser{}

func (qp *queryParser) protocol() string {
	if qp.legacyStyle {
		return "query-legacy"
	}
	return "query"
}

// Parse implements [Parser].
func (qp *queryParser) Parse(resp *wire.Response, op *model.OperationModel) (map[string]any, error) {
	output, err := op.OutputShape()
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	var root *xmlElement
	if output != nil || len(resp.Body) > 0 {
		root, err = decodeXMLDocument(resp.Body, qp.protocol(), op.WireName())
		if err != nil {
			return nil, err
		}
	}
	if output != nil && root != nil {
		start := root
		if wrapper, good := output.Serialization()["resultWrapper"].(string); good && wrapper != "" {
			if inner := root.firstChild(wrapper); inner != nil {
				start = inner
			}
		}
		result, err = xmlParseStructure(start, output, qp.protocol(), op, 0)
		if err != nil {
			return nil, err
		}
	}
	if root != nil {
		withRequestID(result, qp.extractRequestID(root))
	}
	if err := qp.opts.applyOverride(resp, op, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (qp *queryParser) extractRequestID(root *xmlElement) string {
	if qp.legacyStyle {
		if elem := root.firstChild("requestId"); elem != nil {
			return strings.TrimSpace(elem.text)
		}
		return ""
	}
	envelope := root.firstChild("ResponseMetadata")
	if envelope == nil {
		return ""
	}
	if elem := envelope.firstChild("RequestId"); elem != nil {
		return strings.TrimSpace(elem.text)
	}
	return ""
}
