// Package docs embeds the public model, data and API documentation.
package docs

import "embed"

//go:embed *.md
var FS embed.FS
