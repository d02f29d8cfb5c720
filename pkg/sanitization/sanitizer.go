package sanitization

import (
	"regexp"
	"strings"
)

type (
	Sanitizer struct {
		rules     []Rule
		maxLength int
	}

	Rule struct {
		Pattern     *regexp.Regexp
		Replacement string
		// Lowercase lowers the input before the pattern is applied.
		Lowercase bool
	}
)

// Apply runs the rules in order and truncates the result to the maximum length, if one is set.
func (s *Sanitizer) Apply(input string) string {
	output := input
	for _, rule := range s.rules {
		if rule.Lowercase {
			output = strings.ToLower(output)
		}
		output = rule.Pattern.ReplaceAllString(output, rule.Replacement)
	}
	if s.maxLength > 0 && len(output) > s.maxLength {
		output = output[:s.maxLength]
	}
	return output
}

// NewSanitizer creates a sanitizer from rules. A maxLength of 0 means unlimited.
func NewSanitizer(rules []Rule, maxLength int) *Sanitizer {
	return &Sanitizer{rules: rules, maxLength: maxLength}
}
