package aws

import (
	"regexp"

	"github.com/grace-platform/grace/pkg/sanitization"
)

// S3BucketSanitizer returns a valid bucket name: lowercase letters, digits, `.` and `-`, not starting
// or ending with a separator.
var S3BucketSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-z0-9.-]+`),
			Replacement: "-",
			Lowercase:   true,
		},
		{
			Pattern:     regexp.MustCompile(`^[.-]+|[.-]+$`),
			Replacement: "",
		},
	},
	63,
)

// LambdaFunctionSanitizer returns a sanitized lambda function name when applied.
var LambdaFunctionSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		// strip any characters not matching [a-zA-Z0-9-_]
		{
			Pattern:     regexp.MustCompile(`[^\w-]+`),
			Replacement: "",
		},
	}, 64)

var IamRoleSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w+=,.@-]`),
			Replacement: "_",
		},
	}, 64)

var SecretSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w/+=.@-]`),
			Replacement: "-",
		},
	},
	512,
)

var LogGroupSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^-._/#A-Za-z\d]`),
			Replacement: "_",
		},
	}, 512)

// StateMachineSanitizer also serves event bus, archive and rule names, which share the same alphabet.
var StateMachineSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w.-]+`),
			Replacement: "-",
		},
	}, 80)

// RdsDBNameSanitizer returns a database name: alphanumeric, starting with a letter.
var RdsDBNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9]+`),
			Replacement: "",
		},
		// Identifier must start with a letter
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
	}, 63)
