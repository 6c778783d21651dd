package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StallID parses a stall identifier delivered in a push payload. Push data
// values usually arrive as strings, so both "42" and 42 are accepted.
func StallID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("stall id is missing")
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid stall id %s: %w", raw, err)
		}
	} else {
		s = string(raw)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid stall id %s", raw)
	}
	return id, nil
}
