package security

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/execbox/execbox-mcp/internal/policy"
)

// NormalizePath resolves a working-directory request to an absolute,
// traversal-free canonical form. Parent-directory segments are collapsed
// before any comparison so a request cannot escape an allowed root by
// textually overlapping it.
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}
	return abs, nil
}

// IsDirectoryAllowed reports whether the already-normalized path is
// covered by any allowed-directory pattern.
func IsDirectoryAllowed(normalized string, patterns []policy.DirectoryPattern) bool {
	for _, p := range patterns {
		if p.Matches(normalized) {
			return true
		}
	}
	return false
}
