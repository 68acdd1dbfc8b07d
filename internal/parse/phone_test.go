package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "Ten digits", raw: "5551234567", expected: "+15551234567"},
		{name: "Eleven digits with leading 1", raw: "15551234567", expected: "+15551234567"},
		{name: "Already canonical", raw: "+15551234567", expected: "+15551234567"},
		{name: "Formatted US number", raw: "(555) 123-4567", expected: "+15551234567"},
		{name: "Dotted with country code", raw: "1.555.123.4567", expected: "+15551234567"},
		{name: "International with plus", raw: "+44 20 7946 0958", expected: "+442079460958"},
		{name: "Eleven digits not starting with 1", raw: "25551234567", expected: "+25551234567"},
		{name: "Too short", raw: "12345", expected: "+12345"},
		{name: "No digits", raw: "call me", expected: "+"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePhone(tc.raw))
		})
	}
}
