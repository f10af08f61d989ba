package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

var (
	tooManyResultsRe = regexp.MustCompile(`(?i)(query returned more than \d+ results|block range (is )?too (large|wide)|exceed(s|ed)? (the )?maximum block range)`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError reports whether the provider rejected a log query because
// its range yields too many results. The returned string carries the provider's
// message, which may include a suggested block range.
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	msg := err.Error()

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		msg = fmt.Sprintf("%s %v", msg, dataErr.ErrorData())
	}

	return tooManyResultsRe.MatchString(msg), msg
}

// ParseSuggestedBlockRange extracts the block range suggested by the provider.
// Expected format: "... Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := suggestedRangeRe.FindStringSubmatch(msg)

	const expectedMatches = 3 // full match + 2 groups
	if len(matches) != expectedMatches {
		return 0, 0, false
	}

	from, err1 := common.ParseUint64orHex(&matches[1])
	to, err2 := common.ParseUint64orHex(&matches[2])
	if err1 != nil || err2 != nil || from > to {
		return 0, 0, false
	}

	return from, to, true
}

// classify marks errors that survived all retries but are still retryable as
// transient, so the synchronizer retries the window on the next tick.
func classify(err error) error {
	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return err
	}

	if retryableError(err) {
		return market.Transient(err)
	}

	return err
}

// errorType buckets an error for the rpc error metric.
func errorType(err error) string {
	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return "too_many_results"
	}

	if retryableError(err) {
		return "retryable"
	}

	return "fatal"
}
