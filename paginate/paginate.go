// Package paginate drives repeated invocations of a paginated
// operation: it threads continuation tokens between calls, bounds the
// delivered item count, aggregates pages into one result tree, and
// encodes opaque resume tokens so an abandoned sequence can be picked
// up later, mid-page included.
//
// The actual operation call is an externally supplied [Operation]; this
// package performs no I/O of its own. Each [PageIterator] is a one-shot
// single-threaded pull sequence with at most one call in flight.
package paginate

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/nimbus-sdk/nimbus-go/internal/optional"
	"github.com/nimbus-sdk/nimbus-go/model"
)

// Operation invokes one page of a paginated operation and returns the
// parsed response tree.
type Operation func(ctx context.Context, params map[string]any) (map[string]any, error)

// PaginationError indicates that pagination cannot proceed: a malformed
// resume token, a continuation token that repeats across consecutive
// pages, or an invalid paginator configuration.
type PaginationError struct {
	// Operation is the wire name of the paginated operation, when known.
	Operation string

	// Reason explains the failure.
	Reason string
}

var _ error = &PaginationError{}

func (err *PaginationError) Error() string {
	if err.Operation == "" {
		return fmt.Sprintf("paginate: %s", err.Reason)
	}
	return fmt.Sprintf("paginate: %s: %s", err.Operation, err.Reason)
}

// Options bounds one pagination run. The zero value paginates from the
// beginning without any item cap.
type Options struct {
	// MaxItems caps the total number of primary-result items delivered.
	MaxItems optional.Value[int64]

	// PageSize is injected under the paginator's limit key on every
	// call. Setting it for an operation without a limit key fails.
	PageSize optional.Value[int64]

	// StartingToken resumes from a previously observed resume token.
	StartingToken string
}

// OptionsFromMap builds [Options] from a loosely typed configuration
// mapping with the keys MaxItems, PageSize, and StartingToken. The
// numeric values accept integers or decimal strings.
func OptionsFromMap(opName string, values map[string]any) (*Options, error) {
	opts := &Options{}
	if raw, present := values["MaxItems"]; present {
		parsed, err := coerceInt64(opName, "MaxItems", raw)
		if err != nil {
			return nil, err
		}
		opts.MaxItems = optional.Some(parsed)
	}
	if raw, present := values["PageSize"]; present {
		parsed, err := coerceInt64(opName, "PageSize", raw)
		if err != nil {
			return nil, err
		}
		opts.PageSize = optional.Some(parsed)
	}
	if raw, present := values["StartingToken"]; present {
		token, good := raw.(string)
		if !good {
			return nil, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("StartingToken holds %T, expected a string", raw),
			}
		}
		opts.StartingToken = token
	}
	return opts, nil
}

func coerceInt64(opName, key string, raw any) (int64, error) {
	switch concrete := raw.(type) {
	case int:
		return int64(concrete), nil
	case int64:
		return concrete, nil
	case float64:
		return int64(concrete), nil
	case string:
		parsed, err := strconv.ParseInt(concrete, 10, 64)
		if err != nil {
			return 0, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("%s value %q is not an integer", key, concrete),
			}
		}
		return parsed, nil
	default:
		return 0, &PaginationError{
			Operation: opName,
			Reason:    fmt.Sprintf("%s holds %T, expected an integer", key, raw),
		}
	}
}

// Paginator creates page iterators for one paginated operation.
type Paginator struct {
	config *Config
	logger model.Logger
	op     Operation
	opName string
}

// NewPaginator binds an operation invoker to its paginator
// configuration. The logger may be nil.
func NewPaginator(opName string, config *Config, op Operation, logger model.Logger) *Paginator {
	return &Paginator{
		config: config,
		logger: model.ValidLoggerOrDefault(logger),
		op:     op,
		opName: opName,
	}
}

// Paginate starts a new page sequence over the given call parameters.
// The parameters map is copied, never mutated. A nil opts paginates
// from the beginning without bounds.
func (p *Paginator) Paginate(params map[string]any, opts *Options) (*PageIterator, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(p.config.ResultKeys) == 0 {
		return nil, &PaginationError{
			Operation: p.opName,
			Reason:    "paginator configuration declares no result key",
		}
	}
	if !opts.PageSize.IsNone() && p.config.LimitKey == "" {
		return nil, &PaginationError{
			Operation: p.opName,
			Reason:    "PageSize is not supported by this operation's paginator",
		}
	}
	outputTokens, err := compilePaths(p.opName, p.config.OutputTokens)
	if err != nil {
		return nil, err
	}
	resultKeys, err := compilePaths(p.opName, p.config.ResultKeys)
	if err != nil {
		return nil, err
	}
	nonAggregate, err := compilePaths(p.opName, p.config.NonAggregateKeys)
	if err != nil {
		return nil, err
	}
	var moreResults *compiledPath
	if p.config.MoreResults != "" {
		moreResults, err = compilePath(p.opName, p.config.MoreResults)
		if err != nil {
			return nil, err
		}
	}
	kwargs := copyParams(params)
	reachedTokens := map[string]any{}
	startingSkip := 0
	if opts.StartingToken != "" {
		reachedTokens, startingSkip, err = decodeResumeToken(p.opName, p.config.InputTokens, opts.StartingToken)
		if err != nil {
			return nil, err
		}
		for name, value := range reachedTokens {
			kwargs[name] = value
		}
	}
	if !opts.PageSize.IsNone() {
		kwargs[p.config.LimitKey] = opts.PageSize.Unwrap()
	}
	return &PageIterator{
		firstRequest:  true,
		kwargs:        kwargs,
		maxItems:      opts.MaxItems,
		moreResults:   moreResults,
		nonAggregate:  nonAggregate,
		outputTokens:  outputTokens,
		pg:            p,
		reachedTokens: reachedTokens,
		resultKeys:    resultKeys,
		startingSkip:  startingSkip,
		startedToken:  opts.StartingToken != "",
	}, nil
}

// PageIterator walks the pages of one pagination sequence. Use it like
// a database cursor: call [PageIterator.Next] until it returns false,
// reading each page with [PageIterator.Page], then check
// [PageIterator.Err].
type PageIterator struct {
	done          bool
	err           error
	firstRequest  bool
	kwargs        map[string]any
	maxItems      optional.Value[int64]
	moreResults   *compiledPath
	nonAggregate  []*compiledPath
	nonAggPart    map[string]any
	outputTokens  []*compiledPath
	page          map[string]any
	pendingErr    error
	pg            *Paginator
	prevTokens    map[string]any
	reachedTokens map[string]any
	resumeToken   string
	resultKeys    []*compiledPath
	startedToken  bool
	startingSkip  int
	totalItems    int64
}

// Next fetches the next page. It returns false when the sequence is
// exhausted or failed; check [PageIterator.Err] afterwards.
func (it *PageIterator) Next(ctx context.Context) bool {
	if it.pendingErr != nil {
		it.err = it.pendingErr
		it.pendingErr = nil
		it.done = true
		return false
	}
	if it.done || it.err != nil {
		return false
	}
	page, err := it.pg.op(ctx, copyParams(it.kwargs))
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if page == nil {
		page = map[string]any{}
	}
	if it.firstRequest {
		it.firstRequest = false
		if it.startedToken {
			it.skipDeliveredItems(page)
		}
		it.recordNonAggregatePart(page)
	} else {
		// the resume skip offsets the resumed first page only
		it.startingSkip = 0
	}
	items := it.primaryItems(page)
	count := int64(len(items))
	if !it.maxItems.IsNone() {
		truncate := it.totalItems + count - it.maxItems.Unwrap()
		if truncate > 0 {
			it.truncatePage(page, items, truncate)
			it.page = page
			it.done = true
			return true
		}
	}
	it.page = page
	it.totalItems += count
	next := it.extractNextToken(page)
	if allAbsent(next) {
		it.pg.logger.Debugf("paginate: %s: exhausted after %d items", it.pg.opName, it.totalItems)
		it.done = true
		return true
	}
	if !it.maxItems.IsNone() && it.totalItems == it.maxItems.Unwrap() {
		// the cap landed exactly on a page boundary
		it.resumeToken = encodeResumeToken(it.pg.config.InputTokens, next, -1)
		it.done = true
		return true
	}
	if it.prevTokens != nil && reflect.DeepEqual(it.prevTokens, next) {
		it.pendingErr = &PaginationError{
			Operation: it.pg.opName,
			Reason:    fmt.Sprintf("identical continuation token %v on consecutive pages", next),
		}
		return true
	}
	it.pg.logger.Debugf("paginate: %s: continuing with token %v", it.pg.opName, next)
	it.prevTokens = next
	it.reachedTokens = next
	for name, value := range next {
		if value == nil {
			delete(it.kwargs, name)
			continue
		}
		it.kwargs[name] = value
	}
	return true
}

// Page returns the page fetched by the last successful
// [PageIterator.Next] call.
func (it *PageIterator) Page() map[string]any {
	return it.page
}

// Err returns the error that terminated the sequence, if any.
func (it *PageIterator) Err() error {
	return it.err
}

// ResumeToken returns the encoded token to resume an interrupted
// sequence, or the empty string when the sequence ran to natural
// exhaustion.
func (it *PageIterator) ResumeToken() string {
	return it.resumeToken
}

// NonAggregatePart returns the non-aggregate key values recorded from
// the first page.
func (it *PageIterator) NonAggregatePart() map[string]any {
	return it.nonAggPart
}

// BuildFullResult drives the sequence to completion and merges every
// page: collections selected by the result keys concatenate in page
// order, non-aggregate keys copy once from the first page, and a
// NextToken field carries the resume token when an item cap cut the
// sequence short.
func (it *PageIterator) BuildFullResult(ctx context.Context) (map[string]any, error) {
	complete := map[string]any{}
	for it.Next(ctx) {
		page := it.Page()
		for _, key := range it.resultKeys {
			value := key.search(page)
			if value == nil {
				continue
			}
			existing := key.search(complete)
			if existing == nil {
				setValueAtPath(complete, key.expr, value)
				continue
			}
			merged, err := mergeResultValue(it.pg.opName, existing, value)
			if err != nil {
				return nil, err
			}
			setValueAtPath(complete, key.expr, merged)
		}
	}
	if it.Err() != nil {
		return nil, it.Err()
	}
	for name, value := range it.nonAggPart {
		complete[name] = value
	}
	if it.resumeToken != "" {
		complete["NextToken"] = it.resumeToken
	}
	return complete, nil
}

// skipDeliveredItems drops the first startingSkip primary items of a
// resumed first page and empties the secondary result keys, whose
// values were already delivered before the resume point.
func (it *PageIterator) skipDeliveredItems(page map[string]any) {
	if it.startingSkip > 0 {
		items := it.primaryItems(page)
		skip := it.startingSkip
		if skip > len(items) {
			skip = len(items)
		}
		it.setPrimaryItems(page, items[skip:])
	}
	for _, key := range it.resultKeys[1:] {
		switch key.search(page).(type) {
		case []any:
			setValueAtPath(page, key.expr, []any{})
		case string:
			setValueAtPath(page, key.expr, "")
		}
	}
}

func (it *PageIterator) recordNonAggregatePart(page map[string]any) {
	part := map[string]any{}
	for _, key := range it.nonAggregate {
		setValueAtPath(part, key.expr, key.search(page))
	}
	it.nonAggPart = part
}

// primaryItems selects the collection at the primary result key, empty
// when absent.
func (it *PageIterator) primaryItems(page map[string]any) []any {
	items, _ := it.resultKeys[0].search(page).([]any)
	return items
}

func (it *PageIterator) setPrimaryItems(page map[string]any, items []any) {
	setValueAtPath(page, it.resultKeys[0].expr, items)
}

// truncatePage cuts the current page down to the remaining item budget
// and encodes a resume token pointing back into this page.
func (it *PageIterator) truncatePage(page map[string]any, items []any, truncate int64) {
	keep := int64(len(items)) - truncate
	it.setPrimaryItems(page, items[:keep])
	offset := int(keep) + it.startingSkip
	it.resumeToken = encodeResumeToken(it.pg.config.InputTokens, it.reachedTokens, offset)
}

// extractNextToken evaluates the output-token expressions against a
// page, pairing them with the input-token names by position. A false
// more-results indicator yields an all-absent token set.
func (it *PageIterator) extractNextToken(page map[string]any) map[string]any {
	next := map[string]any{}
	if it.moreResults != nil && !truthy(it.moreResults.search(page)) {
		for _, name := range it.pg.config.InputTokens {
			next[name] = nil
		}
		return next
	}
	for idx, name := range it.pg.config.InputTokens {
		value := it.outputTokens[idx].search(page)
		if str, good := value.(string); good && str == "" {
			value = nil
		}
		next[name] = value
	}
	return next
}

func allAbsent(tokens map[string]any) bool {
	for _, value := range tokens {
		if value != nil {
			return false
		}
	}
	return true
}

// mergeResultValue combines a page's result-key value with the already
// aggregated value.
func mergeResultValue(opName string, existing, value any) (any, error) {
	switch concrete := value.(type) {
	case []any:
		existingList, good := existing.([]any)
		if !good {
			return nil, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("cannot aggregate list into %T", existing),
			}
		}
		return append(existingList, concrete...), nil
	case string:
		existingStr, good := existing.(string)
		if !good {
			return nil, &PaginationError{
				Operation: opName,
				Reason:    fmt.Sprintf("cannot aggregate string into %T", existing),
			}
		}
		return existingStr + concrete, nil
	case int64:
		switch prior := existing.(type) {
		case int64:
			return prior + concrete, nil
		case float64:
			return prior + float64(concrete), nil
		}
	case float64:
		switch prior := existing.(type) {
		case int64:
			return float64(prior) + concrete, nil
		case float64:
			return prior + concrete, nil
		}
	}
	return nil, &PaginationError{
		Operation: opName,
		Reason:    fmt.Sprintf("cannot aggregate %T result values", value),
	}
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = value
	}
	return out
}
