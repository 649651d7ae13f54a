//go:build embed

package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed frontend/dist/*
var embeddedFiles embed.FS

// embeddedStaticFS serves the dashboard compiled into the binary
func embeddedStaticFS() (http.FileSystem, error) {
	sub, err := fs.Sub(embeddedFiles, "frontend/dist")
	if err != nil {
		return nil, fmt.Errorf("open embedded dashboard: %w", err)
	}
	return http.FS(sub), nil
}
