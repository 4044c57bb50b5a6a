package utils

import (
	"regexp"
	"strings"
)

// supplementary matches characters outside the Basic Multilingual Plane
// (most emoji among them). utf8mb3 ticket stores reject them.
var supplementary = regexp.MustCompile(`[\x{10000}-\x{10FFFF}]`)

// FilterUnicode removes characters a utf8mb3 ticket store cannot hold.
func FilterUnicode(input string) string {
	return strings.TrimSpace(supplementary.ReplaceAllString(input, ""))
}
