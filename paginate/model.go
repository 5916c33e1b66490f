package paginate

//
// Pagination schema documents: a `pagination` mapping from operation
// wire name to that operation's paginator configuration.
//

import (
	"fmt"

	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
)

// Model is a loaded pagination schema document.
type Model struct {
	pagination *ordered.Map
}

// NewModel wraps a decoded pagination document. The document must
// contain a top-level `pagination` mapping.
func NewModel(doc *ordered.Map) (*Model, error) {
	raw, found := doc.Get("pagination")
	if !found {
		return nil, &PaginationError{Reason: "document has no pagination key"}
	}
	pagination, good := raw.(*ordered.Map)
	if !good {
		return nil, &PaginationError{Reason: fmt.Sprintf("pagination key holds %T, expected a mapping", raw)}
	}
	return &Model{pagination: pagination}, nil
}

// OperationNames returns the wire names of every operation with a
// declared paginator, in document order.
func (m *Model) OperationNames() []string {
	return m.pagination.Keys()
}

// Config returns the paginator configuration declared for the given
// operation wire name.
func (m *Model) Config(opName string) (*Config, error) {
	raw, found := m.pagination.Get(opName)
	if !found {
		return nil, &PaginationError{
			Operation: opName,
			Reason:    "no paginator declared for operation",
		}
	}
	entry, good := raw.(*ordered.Map)
	if !good {
		return nil, &PaginationError{
			Operation: opName,
			Reason:    fmt.Sprintf("paginator entry holds %T, expected a mapping", raw),
		}
	}
	return newConfig(opName, entry)
}

// Config is one operation's paginator configuration.
type Config struct {
	// InputTokens are the request fields that carry continuation
	// tokens, in declaration order.
	InputTokens []string

	// OutputTokens are the path-or expressions that extract the next
	// continuation token values from a page, paired with InputTokens
	// by position.
	OutputTokens []string

	// ResultKeys are the path expressions selecting the collections to
	// aggregate across pages. The first one is the primary result key.
	ResultKeys []string

	// LimitKey, when non-empty, is the request field that carries the
	// caller's page size.
	LimitKey string

	// MoreResults, when non-empty, is a path expression that must
	// evaluate truthy for pagination to continue.
	MoreResults string

	// NonAggregateKeys are path expressions whose values are copied
	// once from the first page instead of being aggregated.
	NonAggregateKeys []string
}

func newConfig(opName string, entry *ordered.Map) (*Config, error) {
	inputTokens, err := stringOrList(opName, entry, "input_token", true)
	if err != nil {
		return nil, err
	}
	outputTokens, err := stringOrList(opName, entry, "output_token", true)
	if err != nil {
		return nil, err
	}
	if len(inputTokens) != len(outputTokens) {
		return nil, &PaginationError{
			Operation: opName,
			Reason: fmt.Sprintf(
				"%d input tokens but %d output tokens",
				len(inputTokens), len(outputTokens)),
		}
	}
	resultKeys, err := stringOrList(opName, entry, "result_key", true)
	if err != nil {
		return nil, err
	}
	nonAggregate, err := stringOrList(opName, entry, "non_aggregate_keys", false)
	if err != nil {
		return nil, err
	}
	return &Config{
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		ResultKeys:       resultKeys,
		LimitKey:         entry.GetString("limit_key"),
		MoreResults:      entry.GetString("more_results"),
		NonAggregateKeys: nonAggregate,
	}, nil
}

// stringOrList reads a configuration value that may be declared as a
// single string or as a list of strings.
func stringOrList(opName string, entry *ordered.Map, key string, required bool) ([]string, error) {
	raw, found := entry.Get(key)
	if !found {
		if required {
			return nil, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("paginator config missing %s", key),
			}
		}
		return nil, nil
	}
	switch concrete := raw.(type) {
	case string:
		return []string{concrete}, nil
	case []any:
		out := make([]string, 0, len(concrete))
		for _, item := range concrete {
			str, good := item.(string)
			if !good {
				return nil, &PaginationError{
					Operation: opName,
					Reason:    fmt.Sprintf("%s entry holds %T, expected a string", key, item),
				}
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, &PaginationError{
			Operation: opName,
			Reason:    fmt.Sprintf("%s holds %T, expected string or list", key, raw),
		}
	}
}
