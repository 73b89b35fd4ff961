package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"almox/internal/core/numerator"
)

func TestBuildSequenceKey(t *testing.T) {
	period := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cfg      numerator.Config
		expected string
	}{
		{
			name:     "yearly reset",
			cfg:      numerator.Config{Prefix: "TRF", ResetPeriod: "year"},
			expected: "TRF_2026",
		},
		{
			name:     "monthly reset",
			cfg:      numerator.Config{Prefix: "TRF", ResetPeriod: "month"},
			expected: "TRF_2026_03",
		},
		{
			name:     "no reset",
			cfg:      numerator.Config{Prefix: "TR", ResetPeriod: "never"},
			expected: "TR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildSequenceKey(tt.cfg, period))
		})
	}
}

func TestFormatSequenceNumber(t *testing.T) {
	period := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cfg      numerator.Config
		num      int64
		expected string
	}{
		{
			name:     "default transfer pattern",
			cfg:      numerator.DefaultConfig("TRF"),
			num:      1,
			expected: "TRF-2026-00001",
		},
		{
			name:     "large value exceeds pad width",
			cfg:      numerator.DefaultConfig("TRF"),
			num:      123456,
			expected: "TRF-2026-123456",
		},
		{
			name:     "without year",
			cfg:      numerator.Config{Prefix: "TR", PadWidth: 3},
			num:      7,
			expected: "TR-007",
		},
		{
			name:     "zero pad width falls back to five",
			cfg:      numerator.Config{Prefix: "TR", IncludeYear: true},
			num:      42,
			expected: "TR-2026-00042",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatSequenceNumber(tt.cfg, period, tt.num))
		})
	}
}
