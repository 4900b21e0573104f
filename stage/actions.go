package stage

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/dolly"
	"github.com/teranos/dolly/trip"
	"github.com/teranos/dolly/tui"
)

// keyMsg translates a slider key into the message a terminal would deliver.
// Names the terminal has no key for are typed as runes.
func keyMsg(k dolly.Key) tea.KeyMsg {
	switch k {
	case dolly.KeyArrowRight:
		return tea.KeyMsg{Type: tea.KeyRight}
	case dolly.KeyArrowLeft:
		return tea.KeyMsg{Type: tea.KeyLeft}
	case dolly.KeyArrowUp:
		return tea.KeyMsg{Type: tea.KeyUp}
	case dolly.KeyArrowDown:
		return tea.KeyMsg{Type: tea.KeyDown}
	case dolly.KeyPageUp:
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case dolly.KeyPageDown:
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case dolly.KeyHome:
		return tea.KeyMsg{Type: tea.KeyHome}
	case dolly.KeyEnd:
		return tea.KeyMsg{Type: tea.KeyEnd}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(string(k))}
	}
}

// PressKey sends a key press.
func (d *Director) PressKey(k dolly.Key) *Director {
	return d.interact("keypress", string(k), keyMsg(k))
}

// ReleaseKey sends a key release.
func (d *Director) ReleaseKey(k dolly.Key) *Director {
	return d.interact("keyrelease", string(k), tui.KeyReleaseMsg{Key: k})
}

// Press presses and releases each key in turn.
//
//	director.Press(dolly.KeyArrowRight, dolly.KeyArrowUp, dolly.KeyPageUp)
func (d *Director) Press(keys ...dolly.Key) *Director {
	for _, k := range keys {
		d.PressKey(k).ReleaseKey(k)
	}
	return d
}

// Type sends each rune of text as a key press, e.g. "llh" or "q".
func (d *Director) Type(text string) *Director {
	for _, r := range text {
		d.interact("type", string(r), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return d
}

// PointerDown presses the left mouse button at a screen cell.
func (d *Director) PointerDown(x, y int) *Director {
	return d.interact("pointer", fmt.Sprintf("down %d,%d", x, y), tea.MouseMsg{
		X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
}

// PointerMove moves the mouse with the left button held.
func (d *Director) PointerMove(x, y int) *Director {
	return d.interact("pointer", fmt.Sprintf("move %d,%d", x, y), tea.MouseMsg{
		X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft,
	})
}

// PointerUp releases the mouse button.
func (d *Director) PointerUp(x, y int) *Director {
	return d.interact("pointer", fmt.Sprintf("up %d,%d", x, y), tea.MouseMsg{
		X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone,
	})
}

// Drag presses at from, moves one cell at a time to to and releases there.
func (d *Director) Drag(from, to image.Point) *Director {
	d.PointerDown(from.X, from.Y)

	p := from
	for p != to && !d.halted() {
		p = p.Add(image.Pt(sign(to.X-p.X), sign(to.Y-p.Y)))
		d.PointerMove(p.X, p.Y)
	}

	return d.PointerUp(to.X, to.Y)
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// Blur tells the model the terminal lost focus.
func (d *Director) Blur() *Director {
	return d.interact("focus", "blur", tea.BlurMsg{})
}

// Configure hands the model a new slider configuration.
func (d *Director) Configure(cfg dolly.Config) *Director {
	return d.interact("configure", fmt.Sprintf("%+v", cfg), tui.ConfigureMsg{Config: cfg})
}

// Send delivers an arbitrary message.
func (d *Director) Send(msg tea.Msg) *Director {
	return d.interact("message", fmt.Sprintf("%T", msg), msg)
}

// Wait sleeps for duration.
func (d *Director) Wait(duration time.Duration) *Director {
	time.Sleep(duration)
	d.recordAction("wait", duration)
	d.captureSnapshot()
	return d
}

// CheckCondition asks the latest model a named question.
func (d *Director) CheckCondition(condition string) bool {
	return d.current().CheckCondition(condition)
}

// CurrentValue returns the latest readout value.
func (d *Director) CurrentValue() string {
	return d.getCurrentValue()
}

// CurrentMode returns the latest interaction mode.
func (d *Director) CurrentMode() string {
	return d.getCurrentMode()
}

// AssertValue checks the readout value.
func (d *Director) AssertValue(expected string) *Director {
	if actual := d.getCurrentValue(); actual != expected {
		d.recordTrip(trip.NewTrip(trip.KindAssertion, "expected value "+expected+", got "+actual, trip.Context{
			"expected": expected,
			"actual":   actual,
		}))
		return d
	}
	d.recordAction("assertion", "value="+expected)
	return d
}

// AssertMode checks the interaction mode.
func (d *Director) AssertMode(expected string) *Director {
	if actual := d.getCurrentMode(); actual != expected {
		d.recordTrip(trip.NewTrip(trip.KindAssertion, "expected mode "+expected+", got "+actual, trip.Context{
			"expected": expected,
			"actual":   actual,
		}))
		return d
	}
	d.recordAction("assertion", "mode="+expected)
	return d
}

// AssertCondition checks that a named condition holds.
func (d *Director) AssertCondition(condition string) *Director {
	if !d.CheckCondition(condition) {
		d.recordTrip(trip.NewTrip(trip.KindAssertion, "condition "+condition+" does not hold", trip.Context{
			"condition": condition,
			"value":     d.getCurrentValue(),
			"mode":      d.getCurrentMode(),
		}))
		return d
	}
	d.recordAction("assertion", "condition="+condition)
	return d
}

// AssertViewContains checks the rendered view for text.
func (d *Director) AssertViewContains(text string) *Director {
	if view := d.getCurrentView(); !strings.Contains(view, text) {
		d.recordTrip(trip.NewTrip(trip.KindAssertion, "view does not contain "+text, trip.Context{
			"expected":    text,
			"actual_view": view,
		}))
		return d
	}
	d.recordAction("assertion", "contains="+text)
	return d
}

// WaitForValue waits until the readout shows expected.
func (d *Director) WaitForValue(expected string) *Director {
	return d.waitFor("value "+expected, func() bool {
		return d.getCurrentValue() == expected
	})
}

// WaitForMode waits until the model enters mode.
func (d *Director) WaitForMode(mode string) *Director {
	return d.waitFor("mode "+mode, func() bool {
		return d.getCurrentMode() == mode
	})
}

// WaitForCondition waits until a named condition holds.
func (d *Director) WaitForCondition(condition string) *Director {
	return d.waitFor("condition "+condition, func() bool {
		return d.CheckCondition(condition)
	})
}

// WaitForText waits until the view contains text.
func (d *Director) WaitForText(text string) *Director {
	return d.waitFor("text "+text, func() bool {
		return strings.Contains(d.getCurrentView(), text)
	})
}

func (d *Director) waitFor(what string, done func() bool) *Director {
	if d.halted() || !d.ready("wait for "+what) {
		return d
	}

	timeout := time.NewTimer(d.config.Timeout)
	defer timeout.Stop()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for !done() {
		select {
		case <-timeout.C:
			d.recordTrip(trip.NewTrip(trip.KindTimeout, "timeout waiting for "+what, trip.Context{
				"value": d.getCurrentValue(),
				"mode":  d.getCurrentMode(),
			}))
			return d
		case <-d.ctx.Done():
			d.collectPanics()
			if !d.halted() {
				d.recordTrip(trip.NewTrip(trip.KindTimeout, "session ended waiting for "+what, nil))
			}
			return d
		case <-tick.C:
		}
	}

	d.recordAction("wait", what)
	return d
}
