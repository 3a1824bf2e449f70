// Package keywords holds the versioned pattern sets used to recognize
// internal-transfer wording in transaction descriptions. Sets are built once
// and never mutated at runtime, so matching stays reproducible across runs.
package keywords

import (
	"regexp"
	"strings"
)

// Set is an immutable collection of description patterns.
type Set struct {
	version  string
	patterns []*regexp.Regexp
}

// NewSet compiles the given patterns into a Set. Patterns are matched
// case-insensitively against the whole description.
func NewSet(version string, patterns []string) (*Set, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &Set{version: version, patterns: compiled}, nil
}

// Version returns the version tag of this pattern set.
func (s *Set) Version() string {
	return s.version
}

// Match reports whether the description matches any pattern in the set.
func (s *Set) Match(description string) bool {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(desc) {
			return true
		}
	}
	return false
}

// transferPatternsV1 covers the wording banks commonly stamp on internal
// movements: generic transfer markers plus interbank reference codes
// (NEFT/IMPS/RTGS/UPI in India, FPS/BACS in the UK, ACH in the US).
var transferPatternsV1 = []string{
	`\btransfer\b`,
	`\btrf\b`,
	`\bxfer\b`,
	`\bneft\b`,
	`\bimps\b`,
	`\brtgs\b`,
	`\bupi\b`,
	`\bach\b`,
	`\bfps\b`,
	`\bbacs\b`,
	`\bstanding order\b`,
	`\bown account\b`,
	`\bmove(?:d)? to (?:savings|checking|current)\b`,
}

// TransferV1 returns the current transfer-keyword pattern set.
// The version tag is recorded on suggestions so scoring stays explainable
// after the set evolves.
func TransferV1() *Set {
	s, err := NewSet("transfer-v1", transferPatternsV1)
	if err != nil {
		// The built-in patterns are compile-time constants; a failure here
		// is a programming error.
		panic(err)
	}
	return s
}
