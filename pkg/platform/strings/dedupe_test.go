package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  po_box_detected  ", "cod_order  "},
			expected: []string{"po_box_detected", "cod_order"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"cod_order", "po_box_detected", "cod_order"},
			expected: []string{"cod_order", "po_box_detected"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"rule:r-cod", "", "  ", "high_value_order"},
			expected: []string{"rule:r-cod", "high_value_order"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo", "FOO"},
			expected: []string{"Foo", "foo", "FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
