package stage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FrameConfig sets the size and palette of captured frames.
type FrameConfig struct {
	Width      int        // terminal columns
	Height     int        // terminal rows
	Background color.RGBA // frame background
	Foreground color.RGBA // text
	OutputDir  string     // where CaptureFrame writes
}

// DefaultFrameConfig is an 80x24 white-on-black terminal writing to dir.
func DefaultFrameConfig(dir string) FrameConfig {
	return FrameConfig{
		Width:      80,
		Height:     24,
		Background: color.RGBA{0, 0, 0, 255},
		Foreground: color.RGBA{255, 255, 255, 255},
		OutputDir:  dir,
	}
}

// RenderingStage paints terminal text onto an image, one glyph per cell.
type RenderingStage struct {
	config     FrameConfig
	buffer     [][]rune
	charWidth  int
	charHeight int
	face       font.Face
}

// NewRenderingStage creates a stage with an empty buffer.
func NewRenderingStage(config FrameConfig) *RenderingStage {
	rs := &RenderingStage{
		config:     config,
		buffer:     make([][]rune, config.Height),
		charWidth:  8,
		charHeight: 16,
		face:       basicfont.Face7x13,
	}
	for i := range rs.buffer {
		rs.buffer[i] = make([]rune, config.Width)
	}
	rs.clear()
	return rs
}

func (rs *RenderingStage) clear() {
	for _, row := range rs.buffer {
		for j := range row {
			row[j] = ' '
		}
	}
}

// RenderText replaces the buffer with terminal output. Escape sequences are
// dropped; text past the frame's edges is cut.
func (rs *RenderingStage) RenderText(output string) {
	rs.clear()

	for lineIdx, line := range strings.Split(ansi.Strip(output), "\n") {
		if lineIdx >= rs.config.Height {
			break
		}
		for charIdx, char := range []rune(line) {
			if charIdx >= rs.config.Width {
				break
			}
			rs.buffer[lineIdx][charIdx] = char
		}
	}
}

// Text returns the buffer with trailing blanks trimmed from each row.
func (rs *RenderingStage) Text() string {
	rows := make([]string, len(rs.buffer))
	for i, row := range rs.buffer {
		rows[i] = strings.TrimRight(string(row), " ")
	}
	return strings.TrimRight(strings.Join(rows, "\n"), "\n")
}

// Image paints the buffer. Only runes basicfont has glyphs for are drawn, so
// the track's box drawing characters leave blank cells.
func (rs *RenderingStage) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, rs.config.Width*rs.charWidth, rs.config.Height*rs.charHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(rs.config.Background), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(rs.config.Foreground),
		Face: rs.face,
	}

	for lineIdx, line := range rs.buffer {
		for charIdx, char := range line {
			if char == ' ' || char == 0 {
				continue
			}
			drawer.Dot = fixed.P(charIdx*rs.charWidth, (lineIdx+1)*rs.charHeight-rs.face.Metrics().Descent.Ceil())
			drawer.DrawString(string(char))
		}
	}

	return img
}

// CaptureFrame writes the buffer as a PNG named name inside OutputDir and
// returns the file's path.
func (rs *RenderingStage) CaptureFrame(name string) (string, error) {
	if err := os.MkdirAll(rs.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create frame dir: %w", err)
	}

	path := filepath.Join(rs.config.OutputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := png.Encode(file, rs.Image()); err != nil {
		file.Close()
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}
