// Package web holds the default page template.
package web

import _ "embed"

// IndexHTML is the default campaign page with every data slot the renderers fill.
//
//go:embed index.html
var IndexHTML []byte
