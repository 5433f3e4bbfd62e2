package coerce

import (
	"strconv"
	"strings"
)

// ParseInt parses value as a base-10 integer after trimming surrounding
// whitespace. Anything unparsable yields fallback.
func ParseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// CollapseSpace trims value and folds every run of whitespace into one space.
func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
