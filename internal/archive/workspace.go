package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the scoped scratch directory one archive is extracted
// into. It is passed explicitly through the pipeline and released on
// every exit path, success or failure.
type Workspace struct {
	Root string
	log  *slog.Logger
}

// NewWorkspace creates a uniquely named scratch directory under the
// system temp dir.
func NewWorkspace(log *slog.Logger) (*Workspace, error) {
	if log == nil {
		log = slog.Default()
	}
	root := filepath.Join(os.TempDir(), "billsplit-"+uuid.NewString())
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{Root: root, log: log}, nil
}

// Release deletes the workspace and everything in it. Safe to call more
// than once.
func (w *Workspace) Release() {
	if w.Root == "" {
		return
	}
	if err := os.RemoveAll(w.Root); err != nil {
		w.log.Warn("workspace cleanup failed", "dir", w.Root, "error", err)
		return
	}
	w.log.Debug("workspace released", "dir", w.Root)
	w.Root = ""
}
