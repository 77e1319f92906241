package stackio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"deinterleave/internal/models"
)

// createFrames writes empty frame files into dir
func createFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func filenames(stack *models.Stack) []string {
	var out []string
	for _, f := range stack.Frames {
		out = append(out, f.Filename)
	}
	return out
}

func TestLoadDirOrdersNumerically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run1")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	createFrames(t, dir, "frame10.tif", "frame2.tif", "frame1.TIF", "notes.txt", "frame3.png")

	stack, err := LoadDir(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	want := []string{"frame1.TIF", "frame2.tif", "frame3.png", "frame10.tif"}
	if diff := cmp.Diff(want, filenames(stack)); diff != "" {
		t.Errorf("frame order mismatch (-want +got):\n%s", diff)
	}
	if stack.Name != "run1" {
		t.Errorf("Expected stack name run1, got %q", stack.Name)
	}
	for i, f := range stack.Frames {
		if f.Index != i {
			t.Errorf("frame %s has index %d, want %d", f.Filename, f.Index, i)
		}
		if f.Path != filepath.Join(dir, f.Filename) {
			t.Errorf("frame %s has path %s", f.Filename, f.Path)
		}
	}
	if stack.Calibration != nil {
		t.Errorf("Expected nil calibration without sidecar, got %v", stack.Calibration)
	}
}

func TestLoadDirReadsCalibration(t *testing.T) {
	dir := t.TempDir()
	createFrames(t, dir, "a1.tif", "a2.tif")
	sidecar := "pixelWidth: 0.25\nunit: um\nframeInterval: 1.5\n"
	if err := os.WriteFile(filepath.Join(dir, "calibration.yaml"), []byte(sidecar), 0644); err != nil {
		t.Fatalf("Failed to write calibration: %v", err)
	}

	stack, err := LoadDir(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	want := models.Calibration{"pixelWidth": 0.25, "unit": "um", "frameInterval": 1.5}
	if diff := cmp.Diff(want, stack.Calibration); diff != "" {
		t.Errorf("calibration mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	dir := t.TempDir()
	createFrames(t, dir, "readme.md")
	if _, err := LoadDir(dir, DefaultOptions()); err == nil {
		t.Error("Expected error for directory without frames, got nil")
	}
}

func TestExtractNumber(t *testing.T) {
	tests := map[string]int{
		"slice_007.tif": 7,
		"t12c3.png":     123,
		"frame.jpg":     0,
		"42":            42,
	}
	for name, want := range tests {
		if got := extractNumber(name); got != want {
			t.Errorf("extractNumber(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestDirSource(t *testing.T) {
	stack, err := DirSource{Dir: filepath.Join(t.TempDir(), "missing"), Options: DefaultOptions()}.CurrentStack()
	if err != nil || stack != nil {
		t.Errorf("Expected no stack and no error for missing dir, got %v, %v", stack, err)
	}

	dir := t.TempDir()
	createFrames(t, dir, "1.tif", "2.tif", "3.tif")
	stack, err = DirSource{Dir: dir, Options: DefaultOptions()}.CurrentStack()
	if err != nil {
		t.Fatalf("CurrentStack failed: %v", err)
	}
	if stack.Size() != 3 {
		t.Errorf("Expected 3 frames, got %d", stack.Size())
	}
}

func TestDirCloser(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "src")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	createFrames(t, dir, "1.tif")

	closer := DirCloser{Dir: dir}
	if err := closer.CloseSource(&models.Stack{Name: "src"}); err != nil {
		t.Fatalf("CloseSource failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("source directory still present after close")
	}
	if _, err := os.Stat(filepath.Join(dir+ClosedSuffix, "1.tif")); err != nil {
		t.Errorf("closed directory missing frame: %v", err)
	}
}
