package paginate

//
// Path expression helpers: compiled jmespath lookups plus the limited
// dotted-path setter used to write aggregated values back into trees.
//

import (
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// compiledPath pairs a path expression with its compiled form.
type compiledPath struct {
	expr string
	path *jmespath.JMESPath
}

func compilePath(opName, expr string) (*compiledPath, error) {
	path, err := jmespath.Compile(expr)
	if err != nil {
		return nil, &PaginationError{
			Operation: opName,
			Reason:    fmt.Sprintf("invalid path expression %q: %s", expr, err.Error()),
		}
	}
	return &compiledPath{expr: expr, path: path}, nil
}

func compilePaths(opName string, exprs []string) ([]*compiledPath, error) {
	out := make([]*compiledPath, 0, len(exprs))
	for _, expr := range exprs {
		compiled, err := compilePath(opName, expr)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

// search evaluates the path over a tree, mapping evaluation failures
// to an absent value.
func (cp *compiledPath) search(tree map[string]any) any {
	value, err := cp.path.Search(tree)
	if err != nil {
		return nil
	}
	return value
}

// setValueAtPath writes a value at a dotted identifier path, creating
// intermediate maps as needed. Only the plain `A.B.C` subset of path
// expressions is writable.
func setValueAtPath(target map[string]any, expression string, value any) {
	segments := strings.Split(expression, ".")
	current := target
	for _, segment := range segments[:len(segments)-1] {
		next, good := current[segment].(map[string]any)
		if !good {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// truthy reports whether a path result continues pagination: nil,
// false, empty strings, empty lists, and empty maps do not.
func truthy(value any) bool {
	switch concrete := value.(type) {
	case nil:
		return false
	case bool:
		return concrete
	case string:
		return concrete != ""
	case []any:
		return len(concrete) > 0
	case map[string]any:
		return len(concrete) > 0
	default:
		return true
	}
}
