package sanitization

import (
	"regexp"
)

// LogicalIdSanitizer strips a name down to the characters allowed in a template logical id (`[A-Za-z0-9]`),
// keeping `-`, `_`, and whitespace as word separators for later case conversion.
var LogicalIdSanitizer = NewSanitizer(
	[]Rule{
		// strip any leading non alpha characters
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
		// collapse separators
		{
			Pattern:     regexp.MustCompile(`[-_\s./]+`),
			Replacement: "_",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_]+`),
			Replacement: "",
		},
	}, 255)
