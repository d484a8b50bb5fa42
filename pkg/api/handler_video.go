package api

import (
	"os"
	"path/filepath"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/danztee/cctv-eventd/pkg/domainerr"
)

// videoHandler handles GET /video?filepath=<clip path>. The path is
// resolved against the configured clip output directory and rejected if it
// would escape it, so a caller cannot use this endpoint to read arbitrary
// files off disk.
func (s *Server) videoHandler(c echo.Context) error {
	requested := c.QueryParam("filepath")
	if requested == "" {
		return mapDomainError(domainerr.New(domainerr.CodeInvalidVideoPath, "filepath is required"))
	}

	base := filepath.Clean(requested)
	if filepath.IsAbs(base) {
		base = filepath.Base(base)
	}

	fullPath := filepath.Join(s.outputDir, base)
	rel, err := filepath.Rel(s.outputDir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return mapDomainError(domainerr.New(domainerr.CodeInvalidVideoPath, "filepath must stay within the clip directory"))
	}

	if _, err := os.Stat(fullPath); err != nil {
		return mapDomainError(domainerr.New(domainerr.CodeInvalidVideoPath, "clip not found"))
	}

	return c.File(fullPath)
}
