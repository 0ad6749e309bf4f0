package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrInvalidAmountFormat is returned when a textual amount is not of the form -?digits.XX
var ErrInvalidAmountFormat = errors.New("invalid amount format")

var amountPattern = regexp.MustCompile(`^(-?)(\d+)\.(\d{2})$`)

// Amount is a signed number of cents. Balances and operation amounts are
// always carried as Amount, never as floating point.
type Amount int64

// ParseAmount converts a literal such as "2000.00" or "-12.05" into cents.
// A leading minus on the dollar part makes the whole value negative.
func ParseAmount(s string) (Amount, error) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	dollars, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || dollars > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmountFormat, s)
	}
	cents, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	value := dollars*100 + cents
	if m[1] == "-" {
		value = -value
	}
	return Amount(value), nil
}

// Cents returns the raw cent count.
func (a Amount) Cents() int64 {
	return int64(a)
}

// String formats the amount as $dollars.cents, e.g. "$2000.00" or "$-1.50".
func (a Amount) String() string {
	return "$" + a.Literal()
}

// Literal formats the amount in the form accepted by ParseAmount.
func (a Amount) Literal() string {
	v := int64(a)
	if v < 0 {
		// -(MinInt64) overflows, so negate in unsigned space
		u := uint64(-(v + 1)) + 1
		return fmt.Sprintf("-%d.%02d", u/100, u%100)
	}
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
