package stage

import (
	"fmt"
	"image"
	"regexp"
	"testing"
	"time"

	"github.com/teranos/dolly"
	"github.com/teranos/dolly/trip"
)

var unsafeLabel = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Operator is a Director that also films: every tracking shot renders the
// current view to a PNG frame.
//
//	stage.NewOperator(t, model, t.TempDir()).
//		Start().
//		CaptureTrackingShot("initial").
//		PressKeyWithTrackingShot(dolly.KeyEnd, "at-max").
//		Stop()
type Operator struct {
	*Director
	renderingStage *RenderingStage
	frames         []string
}

// NewOperator creates an operator writing frames to outputDir.
func NewOperator(t testing.TB, model Model, outputDir string) *Operator {
	return &Operator{
		Director:       NewDirector(t, model),
		renderingStage: NewRenderingStage(DefaultFrameConfig(outputDir)),
	}
}

// WithFrameConfig changes frame size, palette or directory.
func (op *Operator) WithFrameConfig(config FrameConfig) *Operator {
	op.renderingStage = NewRenderingStage(config)
	return op
}

// WithTimeout wraps Director.WithTimeout.
func (op *Operator) WithTimeout(timeout time.Duration) *Operator {
	op.Director.WithTimeout(timeout)
	return op
}

// Start wraps Director.Start.
func (op *Operator) Start() *Operator {
	op.Director.Start()
	return op
}

// Press wraps Director.Press.
func (op *Operator) Press(keys ...dolly.Key) *Operator {
	op.Director.Press(keys...)
	return op
}

// Drag wraps Director.Drag.
func (op *Operator) Drag(from, to image.Point) *Operator {
	op.Director.Drag(from, to)
	return op
}

// AssertValue wraps Director.AssertValue.
func (op *Operator) AssertValue(expected string) *Operator {
	op.Director.AssertValue(expected)
	return op
}

// WaitForValue wraps Director.WaitForValue.
func (op *Operator) WaitForValue(expected string) *Operator {
	op.Director.WaitForValue(expected)
	return op
}

// Frames returns the paths of the frames written so far, in order.
func (op *Operator) Frames() []string {
	return append([]string(nil), op.frames...)
}

// CaptureTrackingShot renders the current view and writes it as the next
// frame, named frame_NNN_label.png.
func (op *Operator) CaptureTrackingShot(label string) *Operator {
	op.renderingStage.RenderText(op.getCurrentView())

	name := fmt.Sprintf("frame_%03d_%s.png", len(op.frames), unsafeLabel.ReplaceAllString(label, "_"))
	path, err := op.renderingStage.CaptureFrame(name)
	if err != nil {
		op.recordTrip(trip.NewStumble(trip.KindVisual, "frame capture failed", trip.Context{
			"label": label,
			"error": err.Error(),
		}))
		return op
	}

	op.frames = append(op.frames, path)
	op.recordAction("frame", path)
	return op
}

// PressKeyWithTrackingShot presses and releases k, then films.
func (op *Operator) PressKeyWithTrackingShot(k dolly.Key, label string) *Operator {
	op.Director.Press(k)
	return op.CaptureTrackingShot(label)
}

// DragWithTrackingShot drags, then films.
func (op *Operator) DragWithTrackingShot(from, to image.Point, label string) *Operator {
	op.Director.Drag(from, to)
	return op.CaptureTrackingShot(label)
}

// WaitForValueWithTrackingShot waits for a value, then films.
func (op *Operator) WaitForValueWithTrackingShot(expected, label string) *Operator {
	op.Director.WaitForValue(expected)
	return op.CaptureTrackingShot(label)
}
