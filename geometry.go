package dolly

import (
	"fmt"
	"math"
	"strings"
)

// Orientation selects the slider's primary axis.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so orientations can be
// read from environment variables and flags.
func (o *Orientation) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "horizontal", "h":
		*o = Horizontal
	case "vertical", "v":
		*o = Vertical
	default:
		return fmt.Errorf("dolly: unknown orientation %q", string(text))
	}
	return nil
}

// Point is a pointer position in screen space (y grows downward).
type Point struct {
	X, Y float64
}

// Rect is the bounding box of the rendered track in screen space.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// TrackGeometry is the track's extent along the primary axis. Values grow from
// Start toward End.
type TrackGeometry struct {
	Start, End float64
}

// Length returns End - Start; negative for vertical tracks in screen space.
func (g TrackGeometry) Length() float64 { return g.End - g.Start }

// Degenerate reports whether the track has no usable extent.
func (g TrackGeometry) Degenerate() bool {
	return !finite(g.Start) || !finite(g.End) || g.End == g.Start
}

// Coordinate projects p onto the primary axis.
func (o Orientation) Coordinate(p Point) float64 {
	if o == Vertical {
		return p.Y
	}
	return p.X
}

// Track projects the track's bounding box onto the primary axis. A vertical
// track starts at its bottom edge and ends at its top edge, so moving the
// pointer up increases the value.
func (o Orientation) Track(r Rect) TrackGeometry {
	if o == Vertical {
		return TrackGeometry{Start: r.Bottom, End: r.Top}
	}
	return TrackGeometry{Start: r.Left, End: r.Right}
}

// Mapper turns a pointer coordinate on a track into a slider value.
type Mapper struct {
	bounds      Bounds
	orientation Orientation
}

// NewMapper returns a mapper for the given value model and axis.
func NewMapper(b Bounds, o Orientation) Mapper {
	return Mapper{bounds: b, orientation: o}
}

// Orientation returns the mapper's axis.
func (m Mapper) Orientation() Orientation { return m.orientation }

// Ratio returns how far coord lies along track, saturated to [0, 1].
// Degenerate geometry yields 0.
func (m Mapper) Ratio(coord float64, track TrackGeometry) float64 {
	if track.Degenerate() || !finite(coord) {
		return 0
	}
	r := (coord - track.Start) / track.Length()
	return math.Max(0, math.Min(r, 1))
}

// Value maps coord to a quantized value inside the bounds.
func (m Mapper) Value(coord float64, track TrackGeometry) float64 {
	ratio := m.Ratio(coord, track)
	switch ratio {
	case 0:
		return m.bounds.min
	case 1:
		return m.bounds.max
	}
	return m.bounds.Quantize(m.bounds.min + ratio*m.bounds.Span())
}

// ValueAt maps a screen point against a track bounding box.
func (m Mapper) ValueAt(p Point, track Rect) float64 {
	return m.Value(m.orientation.Coordinate(p), m.orientation.Track(track))
}
