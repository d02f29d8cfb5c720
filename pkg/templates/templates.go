package templates

import "embed"

// ResourceTemplates holds one descriptor per resource type, under `<provider>/resources/<type>.yaml`.
//
//go:embed */resources/*.yaml
var ResourceTemplates embed.FS
