package paginate

//
// Resume-token codec. A token is the current input-token values joined
// with a literal "___" in declared order, with an optional trailing
// integer meaning "skip this many items of the page the token reaches".
// An absent token value is encoded as the literal string "None".
//

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenSeparator joins the encoded token components.
const tokenSeparator = "___"

// noneToken stands in for an absent token value.
const noneToken = "None"

// encodeResumeToken renders the given input-token values, in declared
// order, as one opaque resume token. A negative skip means no in-page
// offset is encoded.
func encodeResumeToken(inputTokens []string, values map[string]any, skip int) string {
	parts := make([]string, 0, len(inputTokens)+1)
	for _, name := range inputTokens {
		value, present := values[name]
		if !present || value == nil {
			parts = append(parts, noneToken)
			continue
		}
		parts = append(parts, fmt.Sprintf("%v", value))
	}
	if skip >= 0 {
		parts = append(parts, strconv.Itoa(skip))
	}
	return strings.Join(parts, tokenSeparator)
}

// decodeResumeToken splits a resume token back into per-input-token
// values plus the in-page skip offset (zero when none was encoded).
func decodeResumeToken(opName string, inputTokens []string, token string) (map[string]any, int, error) {
	parts := strings.Split(token, tokenSeparator)
	skip := 0
	if len(parts) == len(inputTokens)+1 {
		parsed, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return nil, 0, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("bad starting token: %q", token),
			}
		}
		skip = parsed
		parts = parts[:len(parts)-1]
	}
	values := map[string]any{}
	for idx, name := range inputTokens {
		if idx >= len(parts) || parts[idx] == noneToken {
			continue
		}
		values[name] = parts[idx]
	}
	return values, skip, nil
}
