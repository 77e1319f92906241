// Package stackio reads frame stacks from directories of image files.
//
// A stack directory holds one file per frame plus an optional calibration
// sidecar. Frame files are never decoded; the deinterleaver only needs their
// order.
package stackio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"deinterleave/internal/models"
)

// ClosedSuffix is appended to a source directory when it is closed
const ClosedSuffix = ".closed"

// Options control how a directory is read as a stack
type Options struct {
	// Extensions lists the accepted frame file extensions, lower case with dot
	Extensions []string

	// CalibrationFile is the sidecar name inside the directory
	CalibrationFile string
}

// DefaultOptions mirrors the defaults of the configuration file
func DefaultOptions() Options {
	return Options{
		Extensions:      []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"},
		CalibrationFile: "calibration.yaml",
	}
}

// LoadDir reads dir as a stack. Frame files are ordered by the number in
// their names so that "frame2" comes before "frame10"; names without a number
// sort as 0 and ties fall back to the plain name.
func LoadDir(dir string, opts Options) (*models.Stack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == opts.CalibrationFile {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(opts.Extensions, ext) {
			names = append(names, e.Name())
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no frame files found in %s", dir)
	}

	slices.SortFunc(names, func(a, b string) int {
		if na, nb := extractNumber(a), extractNumber(b); na != nb {
			return na - nb
		}
		return strings.Compare(a, b)
	})

	stack := &models.Stack{Name: filepath.Base(filepath.Clean(dir))}
	for i, name := range names {
		stack.Frames = append(stack.Frames, models.Frame{
			Index:    i,
			Filename: name,
			Path:     filepath.Join(dir, name),
		})
	}

	if opts.CalibrationFile != "" {
		cal, err := ReadCalibration(filepath.Join(dir, opts.CalibrationFile))
		if err != nil {
			return nil, err
		}
		stack.Calibration = cal
	}

	return stack, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if n, err := strconv.Atoi(digits.String()); err == nil {
			return n
		}
	}
	return 0
}

// ReadCalibration loads a calibration sidecar. A missing file is not an
// error and yields nil calibration.
func ReadCalibration(path string) (models.Calibration, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading calibration: %w", err)
	}

	var cal models.Calibration
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("error parsing calibration %s: %w", path, err)
	}
	return cal, nil
}

// WriteCalibration stores cal as a YAML sidecar. Nil calibration writes nothing.
func WriteCalibration(path string, cal models.Calibration) error {
	if cal == nil {
		return nil
	}
	data, err := yaml.Marshal(cal)
	if err != nil {
		return fmt.Errorf("error marshaling calibration: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DirSource serves a directory as the current stack of a plugin run
type DirSource struct {
	Dir     string
	Options Options
}

// CurrentStack loads the directory. A directory that does not exist means no
// stack is open.
func (d DirSource) CurrentStack() (*models.Stack, error) {
	if d.Dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(d.Dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return LoadDir(d.Dir, d.Options)
}

// DirCloser closes a source stack by renaming its directory with
// ClosedSuffix, so the frames are out of the way but not lost.
type DirCloser struct {
	Dir string
}

// CloseSource moves the source directory aside
func (d DirCloser) CloseSource(stack *models.Stack) error {
	target := filepath.Clean(d.Dir) + ClosedSuffix
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("cannot close %s: %s already exists", stack.Name, target)
	}
	return os.Rename(d.Dir, target)
}
