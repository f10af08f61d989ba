package projector

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

// fields reads typed values out of a decoded log. The first failure is kept and
// every later read becomes a no-op, so a projector can extract all of its fields
// and check err once before touching the store.
type fields struct {
	entry market.LogEntry
	err   error
}

func newFields(entry market.LogEntry) *fields {
	return &fields{entry: entry}
}

func (f *fields) value(name string) (any, bool) {
	if f.err != nil {
		return nil, false
	}

	v, ok := f.entry.Fields[name]
	if !ok || v == nil {
		f.err = market.NewMalformedLogError(f.entry, fmt.Sprintf("missing field %s", name), nil)
		return nil, false
	}

	return v, true
}

func (f *fields) mistyped(name string, v any, want string) {
	f.err = market.NewMalformedLogError(f.entry, fmt.Sprintf("field %s is %T, want %s", name, v, want), nil)
}

// bigString returns an integer field as a base-10 string.
func (f *fields) bigString(name string) string {
	v, ok := f.value(name)
	if !ok {
		return ""
	}

	b, ok := v.(*big.Int)
	if !ok {
		f.mistyped(name, v, "*big.Int")
		return ""
	}

	return b.String()
}

// smallInt returns an integer field that must fit into a signed 64-bit
// column, like a timestamp.
func (f *fields) smallInt(name string) uint64 {
	v, ok := f.value(name)
	if !ok {
		return 0
	}

	b, ok := v.(*big.Int)
	if !ok {
		f.mistyped(name, v, "*big.Int")
		return 0
	}

	if !b.IsUint64() || !b.IsInt64() {
		f.err = market.NewMalformedLogError(f.entry, fmt.Sprintf("field %s out of range: %s", name, b), nil)
		return 0
	}

	return b.Uint64()
}

func (f *fields) address(name string) common.Address {
	v, ok := f.value(name)
	if !ok {
		return common.Address{}
	}

	a, ok := v.(common.Address)
	if !ok {
		f.mistyped(name, v, "common.Address")
		return common.Address{}
	}

	return a
}

func (f *fields) text(name string) string {
	v, ok := f.value(name)
	if !ok {
		return ""
	}

	s, ok := v.(string)
	if !ok {
		f.mistyped(name, v, "string")
		return ""
	}

	return s
}

func (f *fields) textList(name string) []string {
	v, ok := f.value(name)
	if !ok {
		return nil
	}

	s, ok := v.([]string)
	if !ok {
		f.mistyped(name, v, "[]string")
		return nil
	}

	return append([]string{}, s...)
}

// bigList returns an integer list field as base-10 strings.
func (f *fields) bigList(name string) []string {
	v, ok := f.value(name)
	if !ok {
		return nil
	}

	list, ok := v.([]*big.Int)
	if !ok {
		f.mistyped(name, v, "[]*big.Int")
		return nil
	}

	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.String())
	}

	return out
}

func (f *fields) flag(name string) bool {
	v, ok := f.value(name)
	if !ok {
		return false
	}

	b, ok := v.(bool)
	if !ok {
		f.mistyped(name, v, "bool")
		return false
	}

	return b
}
