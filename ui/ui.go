// Package ui embeds the server-rendered templates.
package ui

import "embed"

//go:embed templates
var Files embed.FS
