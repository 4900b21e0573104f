// Package dolly is the value-interaction engine behind a slider widget.
//
// A dolly rides a fixed track; so does a slider value. The engine turns raw
// pointer drags and key presses into a single bounded, quantized number and
// hands it to the host through a one-way callback. Rendering the track, fill
// and thumb stays with the host, which supplies the track's bounding box at
// the start of every drag.
//
// Basic usage:
//
//	eng, err := dolly.New(dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50},
//		dolly.WithEmitter(func(c dolly.Change) { thumb.MoveTo(c.Value) }))
//	if err != nil {
//		return err // *dolly.ConfigError
//	}
//
//	eng.OnKeyDown(dolly.KeyArrowRight)                // 51
//	eng.OnPointerDown(dolly.Pointer{X: 10}, trackBox) // value under the pointer
//	eng.OnPointerMove(dolly.Pointer{X: 90})
//	eng.OnPointerUp(dolly.Pointer{})
//
// The engine is single-threaded and event driven. It starts no goroutines,
// owns no timers and is not safe for concurrent use; a host delivers events
// from one goroutine, as a Bubble Tea Update loop does.
package dolly

import (
	"io"
	"log"
	"math"

	"github.com/teranos/dolly/trip"
)

// DragState is the pointer state machine's state.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Source tells the host what produced a Change.
type Source int

const (
	SourceKeyboard Source = iota
	SourcePointer
	SourceReconfigure
)

func (s Source) String() string {
	switch s {
	case SourceKeyboard:
		return "keyboard"
	case SourcePointer:
		return "pointer"
	case SourceReconfigure:
		return "reconfigure"
	default:
		return "unknown"
	}
}

// Change is what the engine emits to the host.
type Change struct {
	Value    float64
	Previous float64
	Source   Source
}

// Pointer is a single pointer event. A NaN or infinite coordinate on the
// slider's primary axis marks the event as malformed; it is then ignored.
type Pointer struct {
	ID   int
	X, Y float64
}

// NoCoordinate is a convenience for building malformed pointer events.
var NoCoordinate = math.NaN()

// Option customizes an Engine.
type Option func(*Engine)

// WithEmitter registers the host's render callback. It is called
// synchronously from inside the event handler that produced the change.
func WithEmitter(fn func(Change)) Option {
	return func(e *Engine) { e.emit = fn }
}

// WithLogger routes the engine's diagnostics to l. The default discards them.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrips records ignored events and degenerate geometry as stumbles.
func WithTrips(h *trip.Handler) Option {
	return func(e *Engine) { e.trips = h }
}

// Engine is the interaction controller. It is the only writer of the slider
// value.
type Engine struct {
	cfg     Config
	bounds  Bounds
	stepper Stepper
	mapper  Mapper

	value   float64
	state   DragState
	pointer int           // captured pointer ID while dragging
	track   TrackGeometry // snapshot taken at pointer down
	pressed Key

	emit   func(Change)
	logger *log.Logger
	trips  *trip.Handler
}

// New validates cfg and returns an engine holding the clamped, quantized
// initial value. An invalid configuration returns a *ConfigError and no
// engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.configure(cfg); err != nil {
		if ce, ok := err.(*ConfigError); ok && e.trips != nil {
			e.trips.Record(ce.Trip())
		}
		return nil, err
	}
	e.value = e.bounds.Quantize(e.bounds.Clamp(cfg.Value))
	e.logger.Printf("dolly: configured min=%v max=%v step=%v page=%v %s value=%v",
		e.bounds.min, e.bounds.max, e.bounds.step, e.stepper.pageStep, cfg.Orientation, e.value)
	return e, nil
}

func (e *Engine) configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b, err := NewBounds(cfg.Min, cfg.Max, cfg.Step)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.bounds = b
	e.stepper = NewStepper(b, cfg.PageStep)
	e.mapper = NewMapper(b, cfg.Orientation)
	return nil
}

// Reconfigure applies a new host configuration. Any drag in progress ends,
// and the current value (or cfg.Value when cfg.ResetValue is set) is clamped
// and quantized into the new bounds. On error the engine is left unchanged.
func (e *Engine) Reconfigure(cfg Config) error {
	if err := e.configure(cfg); err != nil {
		e.logger.Printf("dolly: reconfigure rejected: %v", err)
		if ce, ok := err.(*ConfigError); ok && e.trips != nil {
			e.trips.Record(ce.Trip())
		}
		return err
	}

	e.release()
	next := e.value
	if cfg.ResetValue {
		next = cfg.Value
	}
	e.set(e.bounds.Quantize(e.bounds.Clamp(next)), SourceReconfigure, false)
	return nil
}

// Value returns the current value.
func (e *Engine) Value() float64 { return e.value }

// Text returns the current value formatted for an accessible readout.
func (e *Engine) Text() string { return e.bounds.Format(e.value) }

// State returns the drag state.
func (e *Engine) State() DragState { return e.state }

// Dragging reports whether a pointer interaction is in progress.
func (e *Engine) Dragging() bool { return e.state == Dragging }

// Pressed returns the key currently held down, or "" when none is.
func (e *Engine) Pressed() Key { return e.pressed }

// Bounds returns the value model.
func (e *Engine) Bounds() Bounds { return e.bounds }

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.cfg }

// OnKeyDown applies a key press. Recognized keys emit the resulting value
// exactly once, even when the value did not move; other keys change nothing.
// Keyboard input never touches the drag state.
func (e *Engine) OnKeyDown(k Key) (float64, bool) {
	next, ok := e.stepper.Step(e.value, k)
	if !ok {
		e.logger.Printf("dolly: ignoring key %q", k)
		return e.value, false
	}
	e.pressed = k
	e.set(next, SourceKeyboard, true)
	return e.value, true
}

// OnKeyUp releases the pressed key. It never changes the value.
func (e *Engine) OnKeyUp(k Key) {
	if e.pressed == k {
		e.pressed = ""
	}
}

// OnPointerDown starts a drag: it captures p, snapshots the track geometry for
// the rest of the drag and emits the value under the pointer.
//
// A pointer-down while already dragging restarts the drag. An event without a
// usable coordinate is ignored and reported as not handled.
func (e *Engine) OnPointerDown(p Pointer, track Rect) (float64, bool) {
	coord := e.mapper.orientation.Coordinate(Point{X: p.X, Y: p.Y})
	if !finite(coord) {
		e.stumble(trip.KindPointer, "pointer down without coordinate", trip.Context{"pointer": p.ID})
		return e.value, false
	}

	geom := e.mapper.orientation.Track(track)
	if geom.Degenerate() {
		e.stumble(trip.KindGeometry, "degenerate track geometry", trip.Context{
			"start": geom.Start,
			"end":   geom.End,
		})
	}

	e.state = Dragging
	e.pointer = p.ID
	e.track = geom
	e.set(e.mapper.Value(coord, geom), SourcePointer, true)
	return e.value, true
}

// OnPointerMove recomputes the value from the pointer's absolute position
// against the geometry captured at pointer down. Moves outside a drag, from
// other pointers or without a coordinate are ignored. The boolean reports
// whether the value changed.
func (e *Engine) OnPointerMove(p Pointer) (float64, bool) {
	if e.state != Dragging {
		return e.value, false
	}
	if p.ID != e.pointer {
		e.stumble(trip.KindPointer, "move from uncaptured pointer", trip.Context{
			"pointer":  p.ID,
			"captured": e.pointer,
		})
		return e.value, false
	}
	coord := e.mapper.orientation.Coordinate(Point{X: p.X, Y: p.Y})
	if !finite(coord) {
		e.stumble(trip.KindPointer, "pointer move without coordinate", trip.Context{"pointer": p.ID})
		return e.value, false
	}

	next := e.mapper.Value(coord, e.track)
	if next == e.value {
		return e.value, false
	}
	e.set(next, SourcePointer, true)
	return e.value, true
}

// OnPointerUp ends the drag started by the same pointer.
func (e *Engine) OnPointerUp(p Pointer) {
	if e.state != Dragging {
		return
	}
	if p.ID != e.pointer {
		e.stumble(trip.KindPointer, "release from uncaptured pointer", trip.Context{
			"pointer":  p.ID,
			"captured": e.pointer,
		})
		return
	}
	e.release()
}

// OnPointerCancel ends any drag, e.g. when the host loses pointer capture.
func (e *Engine) OnPointerCancel() {
	e.release()
}

func (e *Engine) release() {
	e.state = Idle
	e.pointer = 0
	e.track = TrackGeometry{}
}

// set stores v and notifies the host. force emits even when v is unchanged.
func (e *Engine) set(v float64, src Source, force bool) {
	prev := e.value
	e.value = v
	if (force || v != prev) && e.emit != nil {
		e.emit(Change{Value: v, Previous: prev, Source: src})
	}
}

func (e *Engine) stumble(kind, msg string, ctx trip.Context) {
	e.logger.Printf("dolly: %s", msg)
	if e.trips != nil {
		e.trips.Record(trip.NewStumble(kind, msg, ctx))
	}
}
