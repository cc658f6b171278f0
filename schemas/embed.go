// Package schemas holds the JSON Schema contracts of the remote store responses.
package schemas

import "embed"

// FS contains every *.schema.json file of this directory.
//
//go:embed *.schema.json
var FS embed.FS
