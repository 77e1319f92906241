package visualization

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deinterleave/internal/models"
	"deinterleave/pkg/stackio"
)

const slicePrefix = "slice_"

// Viewer presents result stacks by writing each one to its own directory
// under outputDir. It is the display surface of the command line tool.
type Viewer struct {
	// outputDir is where shown stacks are written
	outputDir string

	// calibrationFile is the sidecar name written next to the frames
	calibrationFile string

	mu    sync.Mutex
	shown []string
}

// NewViewer creates a viewer writing into outputDir
func NewViewer(outputDir, calibrationFile string) *Viewer {
	return &Viewer{
		outputDir:       outputDir,
		calibrationFile: calibrationFile,
	}
}

// Show writes stack to <outputDir>/<name>/. Frames are copied byte for byte
// and renamed slice_<NNN><ext> in stack order, so the directory reads back
// in the same order. Slices and calibration left in the directory by an
// earlier Show are removed first. The calibration is written as a sidecar.
func (v *Viewer) Show(stack models.Stack, name string, cal models.Calibration) error {
	dir, err := v.StackDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := v.clearStack(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}

	for i, frame := range stack.Frames {
		ext := strings.ToLower(filepath.Ext(frame.Filename))
		dst := filepath.Join(dir, fmt.Sprintf("%s%03d%s", slicePrefix, i, ext))
		if err := copyFile(frame.Path, dst); err != nil {
			return fmt.Errorf("failed to copy frame %s: %w", frame.Filename, err)
		}
	}

	if v.calibrationFile != "" {
		if err := stackio.WriteCalibration(filepath.Join(dir, v.calibrationFile), cal); err != nil {
			return err
		}
	}

	v.mu.Lock()
	v.shown = append(v.shown, name)
	v.mu.Unlock()
	return nil
}

// StackDir returns the directory a stack with the given name is written to
func (v *Viewer) StackDir(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid stack name: %q", name)
	}
	return filepath.Join(v.outputDir, name), nil
}

// Shown returns the names of the stacks shown so far, in order
func (v *Viewer) Shown() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.shown...)
}

// clearStack removes the files a previous Show wrote into dir
func (v *Viewer) clearStack(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), slicePrefix) || (v.calibrationFile != "" && e.Name() == v.calibrationFile) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
