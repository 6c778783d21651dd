package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloor(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Bare number", raw: "3", expected: 3},
		{name: "Ordinal", raw: "3rd Floor", expected: 3},
		{name: "Level prefix", raw: "Level 2", expected: 2},
		{name: "Suffix F", raw: "12F", expected: 12},
		{name: "Padded", raw: "  floor   7 ", expected: 7},
		{name: "Ground", raw: "Ground Floor", expected: 0},
		{name: "Ground short", raw: "G", expected: 0},
		{name: "Basement numbered", raw: "B2", expected: -2},
		{name: "Basement bare", raw: "Basement", expected: -1},
		{name: "Parsing Failure", raw: "Rooftop", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			floor, err := Floor(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, floor)
			}
		})
	}
}

func TestStallID(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int64
		expectErr bool
	}{
		{name: "String", raw: `"42"`, expected: 42},
		{name: "Number", raw: `42`, expected: 42},
		{name: "Padded string", raw: `" 7 "`, expected: 7},
		{name: "Null", raw: `null`, expectErr: true},
		{name: "Missing", raw: ``, expectErr: true},
		{name: "Not a number", raw: `"abc"`, expectErr: true},
		{name: "Zero", raw: `0`, expectErr: true},
		{name: "Negative", raw: `"-3"`, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := StallID(json.RawMessage(tc.raw))
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, id)
			}
		})
	}
}
