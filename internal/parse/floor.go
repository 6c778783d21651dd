package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	floorNumRe  = regexp.MustCompile(`(?i)^(?:level|floor|lvl|l)?\s*(\d+)\s*(?:st|nd|rd|th)?\s*(?:f|floor|fl)?$`)
	basementRe  = regexp.MustCompile(`(?i)^(?:b|basement)\s*(\d*)$`)
	spaceRe     = regexp.MustCompile(`\s+`)
	groundWords = map[string]bool{"g": true, "gf": true, "ground": true, "ground floor": true, "lobby": true}
)

// Floor extracts a numeric level from a washroom's floor label, e.g. "3",
// "3rd Floor", "Level 2", "2F", "Ground", "B1". Basements are negative.
func Floor(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = spaceRe.ReplaceAllString(s, " ")

	if groundWords[s] {
		return 0, nil
	}

	if m := basementRe.FindStringSubmatch(s); m != nil {
		if m[1] == "" {
			return -1, nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("unable to parse basement level from %q: %w", raw, err)
		}
		return -n, nil
	}

	if m := floorNumRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("unable to parse floor from %q: %w", raw, err)
		}
		return n, nil
	}

	return 0, fmt.Errorf("unable to parse floor from %q", raw)
}
