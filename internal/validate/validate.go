package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Marketplace article codes: 5-20 alphanumeric characters.
	reArticle = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
	reID      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reRole    = regexp.MustCompile(`^(own|competitor|item)$`)
	reType    = regexp.MustCompile(`^(comparison|variants|similar)$`)
)

// Article validates an external product identifier.
func Article(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reArticle.MatchString(s)
}

// ID validates an internal resource identifier (product/group/owner ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Role validates a group membership role.
func Role(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reRole.MatchString(s)
}

// GroupType validates a comparison group type; empty defaults to comparison.
func GroupType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "comparison", true
	}
	return s, reType.MatchString(s)
}

// Days parses a window size in days, clamping to [1, max].
func Days(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Limit parses a result limit, clamping to [1, max].
func Limit(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Name validates an optional displayable group name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return "", false
	}
	return s, true
}
