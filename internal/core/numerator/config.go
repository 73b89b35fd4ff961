// Package numerator provides domain contracts for sequential numbering.
package numerator

// Config holds numbering configuration for one sequence.
type Config struct {
	// Prefix added to all numbers (e.g., "TRF", "TR")
	Prefix string

	// IncludeYear adds the year to the formatted number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns the yearly-reset defaults used by transfer numbers.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
