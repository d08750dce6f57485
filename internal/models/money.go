package models

import "fmt"

// Money is an amount in cents. Ledger arithmetic must be exact, so amounts are
// never represented as floats.
type Money int64

// String renders the amount as a decimal string, e.g. 150 -> "1.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
