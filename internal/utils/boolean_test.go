package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBoolFlexible(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
		ok    bool
	}{
		{"bool true", true, true, true},
		{"bool false", false, false, true},
		{"float 1", float64(1), true, true},
		{"float 0", float64(0), false, true},
		{"string true", "true", true, true},
		{"string TRUE", "TRUE", true, true},
		{"string false", "false", false, true},
		{"string 1", "1", true, true},
		{"string 0", "0", false, true},
		{"float 2 rejected", float64(2), false, false},
		{"string yes rejected", "yes", false, false},
		{"empty string rejected", "", false, false},
		{"nil rejected", nil, false, false},
		{"slice rejected", []any{true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBoolFlexible(tt.value)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}
