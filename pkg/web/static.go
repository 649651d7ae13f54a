//go:build !embed

package web

import "net/http"

// embeddedStaticFS reports no embedded dashboard. Builds with -tags=embed
// use static_embed.go instead.
func embeddedStaticFS() (http.FileSystem, error) {
	return nil, nil
}
