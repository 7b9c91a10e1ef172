// Package assets embeds the static files shipped with the binaries.
package assets

import "embed"

//go:embed all:email
var FS embed.FS
