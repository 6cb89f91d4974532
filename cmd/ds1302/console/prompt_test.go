package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	constraints := []string{No, Yes}
	tests := []struct {
		response string
		expected string
	}{
		{"", No},
		{"y", Yes},
		{" Y ", Yes},
		{"n", No},
		{"maybe", No},
	}
	for _, test := range tests {
		t.Run(test.response, func(t *testing.T) {
			assert.Equal(t, test.expected, match(test.response, constraints))
		})
	}
}
