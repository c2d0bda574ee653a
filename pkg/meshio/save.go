package meshio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"headfit/internal/models"
	"headfit/pkg/stl"
)

// Save writes the mesh to path, choosing the format from the extension
// (.stl for binary STL, anything else for OBJ). The data goes to a pending
// file in the same directory that only replaces path once fully written.
func Save(path string, m *models.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to write %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer pf.Cleanup()

	var write func(io.Writer, *models.Mesh) error = WriteOBJ
	if strings.EqualFold(filepath.Ext(path), ".stl") {
		write = stl.Write
	}
	if err := write(pf, m); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
