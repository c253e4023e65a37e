// Package assets embeds helper files shipped with the binary.
package assets

import "embed"

// Functions holds jq helpers for analyzing transcript and aggregate
// output, installable via `council-runner functions install`.
//
//go:embed functions
var Functions embed.FS
