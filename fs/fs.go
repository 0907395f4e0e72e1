// Package appfs embeds the files shipped with the binaries: page & email templates,
// static assets and SQL migrations.
package appfs

import "embed"

//go:embed all:templates migrations static
var FS embed.FS
