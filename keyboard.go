package dolly

import "strings"

// Key identifies a keyboard key by its DOM key name.
type Key string

// Keys the stepper understands. Arrow semantics are axis agnostic: right and
// up increase, left and down decrease, whatever the slider's orientation.
const (
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowDown  Key = "ArrowDown"
	KeyPageUp     Key = "PageUp"
	KeyPageDown   Key = "PageDown"
	KeyHome       Key = "Home"
	KeyEnd        Key = "End"
)

// terminal names as reported by tea.KeyMsg.String().
var keyAliases = map[string]Key{
	"right":  KeyArrowRight,
	"up":     KeyArrowUp,
	"left":   KeyArrowLeft,
	"down":   KeyArrowDown,
	"pgup":   KeyPageUp,
	"pgdown": KeyPageDown,
	"home":   KeyHome,
	"end":    KeyEnd,
}

// ParseKey accepts either a DOM key name ("ArrowRight") or a terminal key name
// ("right", "pgup"). Unknown names come back as Key(name) and are ignored by
// the stepper.
func ParseKey(name string) Key {
	if k, ok := keyAliases[strings.ToLower(name)]; ok {
		return k
	}
	return Key(name)
}

// Stepper maps discrete keys to value transitions on a Bounds.
type Stepper struct {
	bounds   Bounds
	pageStep float64
}

// NewStepper builds a stepper. A pageStep <= 0 selects the default page step:
// one tenth of the range, never smaller than a single step.
func NewStepper(b Bounds, pageStep float64) Stepper {
	if pageStep <= 0 || !finite(pageStep) {
		pageStep = DefaultPageStep(b)
	}
	return Stepper{bounds: b, pageStep: pageStep}
}

// DefaultPageStep returns max(span/10, step).
func DefaultPageStep(b Bounds) float64 {
	page := b.Span() / 10
	if page < b.step {
		return b.step
	}
	return page
}

// PageStep returns the increment used by PageUp and PageDown.
func (s Stepper) PageStep() float64 { return s.pageStep }

// Step returns the value after pressing k at value. The boolean is false for
// keys the stepper does not handle; value is then returned untouched.
func (s Stepper) Step(value float64, k Key) (float64, bool) {
	switch k {
	case KeyArrowRight, KeyArrowUp:
		return s.bounds.Apply(value, s.bounds.step), true
	case KeyArrowLeft, KeyArrowDown:
		return s.bounds.Apply(value, -s.bounds.step), true
	case KeyPageUp:
		return s.bounds.Apply(value, s.pageStep), true
	case KeyPageDown:
		return s.bounds.Apply(value, -s.pageStep), true
	case KeyHome:
		return s.bounds.min, true
	case KeyEnd:
		return s.bounds.max, true
	default:
		return value, false
	}
}
