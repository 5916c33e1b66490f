// Package schemaload reads schema and pagination documents from disk.
// Documents may carry comments and trailing commas; they are
// standardized with hujson before the order-preserving decode.
package schemaload

import (
	"os"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/paginate"
)

// ReadDocument loads one JSON document preserving object key order.
func ReadDocument(path string) (*ordered.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "schemaload: cannot read document")
	}
	return DecodeDocument(path, data)
}

// DecodeDocument is like [ReadDocument] for bytes already in memory.
// The path only labels errors.
func DecodeDocument(path string, data []byte) (*ordered.Map, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schemaload: %s is not valid JSON", path)
	}
	decoded, err := ordered.Decode(standardized)
	if err != nil {
		return nil, errors.Wrapf(err, "schemaload: cannot decode %s", path)
	}
	doc, good := decoded.(*ordered.Map)
	if !good {
		return nil, errors.Errorf("schemaload: %s: top-level value is not an object", path)
	}
	return doc, nil
}

// ReadServiceModel loads a service schema document into a service model.
func ReadServiceModel(path string) (*model.ServiceModel, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return model.NewServiceModel(doc), nil
}

// ReadPaginationModel loads a pagination schema document.
func ReadPaginationModel(path string) (*paginate.Model, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	pm, err := paginate.NewModel(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "schemaload: %s", path)
	}
	return pm, nil
}
