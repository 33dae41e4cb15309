// Package format renders the numbers and timestamps shown by dashboard panels.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// NA is printed for values an upstream API left null.
const NA = "N/A"

const lamportsPerSOL = 1e9

// USD formats v as a whole dollar amount with thousands separators, ie. $1,234,568.
func USD(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

// USDPtr is USD for nullable amounts.
func USDPtr(v *float64) string {
	if v == nil {
		return NA
	}

	return USD(*v)
}

// Price formats v with two decimals, ie. $1,234.50.
func Price(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Percent formats a nullable percentage with two decimals.
func Percent(v *float64) string {
	if v == nil {
		return NA
	}

	return fmt.Sprintf("%.2f%%", *v)
}

// Change formats a 24h change with an up or down arrow.
func Change(v float64) string {
	arrow := "▲"
	if v < 0 {
		arrow = "▼"
	}

	return fmt.Sprintf("%s %.2f%%", arrow, math.Abs(v))
}

// Compact formats large dollar amounts in billions or millions, ie. $1.2B or $300M.
func Compact(v float64) string {
	if v >= 1e9 {
		return fmt.Sprintf("$%.1fB", v/1e9)
	}

	return fmt.Sprintf("$%.0fM", v/1e6)
}

// Millions formats v in millions with two decimals, ie. $12.35M.
func Millions(v float64) string {
	return fmt.Sprintf("$%.2fM", v/1e6)
}

// Count formats an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// TruncateAddress keeps the first and last four characters of an address or signature.
func TruncateAddress(a string) string {
	if len(a) <= 8 {
		return a
	}

	return a[:4] + "..." + a[len(a)-4:]
}

// Ago returns how long before now t happened, ie. "3 minutes ago".
func Ago(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// BlockTime formats a block timestamp in UTC.
func BlockTime(t time.Time) string {
	return t.UTC().Format("January 02, 2006 15:04:05 UTC")
}

// SOL formats an amount of SOL with six decimals, enough for transaction fees.
func SOL(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64) + " SOL"
}

// Lamports formats an amount of lamports in SOL.
func Lamports(n uint64) string {
	return SOL(float64(n) / lamportsPerSOL)
}

// SOLCompact formats a large lamport amount in millions of SOL, ie. 459.2M SOL.
func SOLCompact(n uint64) string {
	return fmt.Sprintf("%.1fM SOL", float64(n)/lamportsPerSOL/1e6)
}
