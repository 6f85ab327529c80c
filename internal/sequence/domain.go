// Package sequence allocates sequential document numbers per series. A
// series pairs two three-digit prefixes with a running counter; the
// externally visible number is "prefixA-prefixB-" plus the zero-padded
// counter. Allocation is serialized by a row lock so concurrent callers
// never read the same counter value.
package sequence

import (
	"fmt"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Series identifies a document number sequence for one business scope.
type Series struct {
	Code    string
	Scope   string
	PrefixA string
	PrefixB string
	Counter int64
}

// Known series codes.
const (
	SeriesSaleNote       = "N"
	SeriesInvoice        = "F"
	SeriesSaleReturn     = "DN"
	SeriesPurchase       = "C"
	SeriesPurchaseReturn = "DF"
)

var defaultPrefixes = map[string][2]string{
	SeriesSaleNote:       {"001", "001"},
	SeriesInvoice:        {"002", "001"},
	SeriesSaleReturn:     {"003", "001"},
	SeriesPurchase:       {"004", "001"},
	SeriesPurchaseReturn: {"005", "001"},
}

var (
	// ErrUnknownSeries indicates a series code without registered defaults.
	ErrUnknownSeries = fmt.Errorf("%w: unknown series code", httpx.ErrValidation)
	// ErrInvalidPrefix indicates a prefix that is not three digits.
	ErrInvalidPrefix = fmt.Errorf("%w: prefix must be three digits", httpx.ErrValidation)
	// ErrNegativeCounter indicates an attempt to set a counter below zero.
	ErrNegativeCounter = fmt.Errorf("%w: counter must be non-negative", httpx.ErrValidation)
	// ErrSeriesNotFound indicates a missing series row.
	ErrSeriesNotFound = fmt.Errorf("%w: series", httpx.ErrNotFound)
)

// DefaultSeries returns the lazily-created row for a known series code.
func DefaultSeries(code, scope string) (Series, error) {
	prefixes, ok := defaultPrefixes[code]
	if !ok {
		return Series{}, fmt.Errorf("%w: %q", ErrUnknownSeries, code)
	}
	return Series{
		Code:    code,
		Scope:   scope,
		PrefixA: prefixes[0],
		PrefixB: prefixes[1],
	}, nil
}

// FormatNumber renders the externally visible document number for a
// counter value.
func FormatNumber(prefixA, prefixB string, counter int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefixA, prefixB, counter)
}

// ValidPrefix reports whether a prefix is exactly three digits.
func ValidPrefix(p string) bool {
	if len(p) != 3 {
		return false
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
