package stage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// ErrContinuity is wrapped by ValidateConsistency when two takes differ by
// more than the tolerance.
var ErrContinuity = errors.New("continuity error")

// ContinuitySupervisor compares frames from the current run against a set of
// baseline frames.
type ContinuitySupervisor struct {
	baselineDir string
	currentDir  string
	tolerance   float64 // share of pixels allowed to differ
}

// NewContinuitySupervisor allows 5% of pixels to differ.
func NewContinuitySupervisor(baselineDir, currentDir string) *ContinuitySupervisor {
	return &ContinuitySupervisor{
		baselineDir: baselineDir,
		currentDir:  currentDir,
		tolerance:   0.05,
	}
}

// WithTolerance sets the share of pixels allowed to differ, from 0 to 1.
func (cs *ContinuitySupervisor) WithTolerance(tolerance float64) *ContinuitySupervisor {
	cs.tolerance = tolerance
	return cs
}

// ValidateConsistency compares name.png in both directories. On a mismatch
// it writes name_diff.png next to the current frame.
func (cs *ContinuitySupervisor) ValidateConsistency(name string) error {
	baseline, err := loadImage(filepath.Join(cs.baselineDir, name+".png"))
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}

	current, err := loadImage(filepath.Join(cs.currentDir, name+".png"))
	if err != nil {
		return fmt.Errorf("load current: %w", err)
	}

	difference := Difference(baseline, current)
	if difference <= cs.tolerance {
		return nil
	}

	err = fmt.Errorf("%w: %.2f%% of pixels differ (tolerance %.2f%%)", ErrContinuity, difference*100, cs.tolerance*100)
	diffPath := filepath.Join(cs.currentDir, name+"_diff.png")
	if diffErr := writeDiffImage(baseline, current, diffPath); diffErr != nil {
		return errors.Join(err, fmt.Errorf("write diff image: %w", diffErr))
	}
	return err
}

// SetBaseline copies a captured frame into the baseline directory as
// name.png.
func (cs *ContinuitySupervisor) SetBaseline(name, framePath string) error {
	if err := os.MkdirAll(cs.baselineDir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}

	input, err := os.Open(framePath)
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := os.Create(filepath.Join(cs.baselineDir, name+".png"))
	if err != nil {
		return err
	}

	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		return err
	}
	return output.Close()
}

// Difference returns the share of pixels that differ between a and b, or 1
// when their bounds differ.
func Difference(a, b image.Image) float64 {
	bounds := a.Bounds()
	if bounds != b.Bounds() || bounds.Empty() {
		return 1.0
	}

	different := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !sameColor(a.At(x, y), b.At(x, y)) {
				different++
			}
		}
	}

	return float64(different) / float64(bounds.Dx()*bounds.Dy())
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return png.Decode(file)
}

// writeDiffImage paints differing pixels red over a dimmed baseline.
func writeDiffImage(baseline, current image.Image, path string) error {
	bounds := baseline.Bounds()
	diff := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			base := baseline.At(x, y)
			if !sameColor(base, current.At(x, y)) {
				diff.Set(x, y, color.RGBA{255, 0, 0, 255})
				continue
			}
			r, g, b, a := base.RGBA()
			diff.Set(x, y, color.RGBA{uint8(r >> 9), uint8(g >> 9), uint8(b >> 9), uint8(a >> 8)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(file, diff); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
