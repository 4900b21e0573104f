// Package stage replays slider scenarios against a headless Bubble Tea program.
//
// A Director runs the model the way a terminal would, minus the terminal: no
// renderer, no input reader, no signal handling. Each interaction is sent to
// the running program and the director waits until the program has processed
// it before moving on, so a scenario reads like a script and behaves like one.
//
// Basic usage:
//
//	model, _ := tui.New(dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50})
//
//	result := stage.NewDirector(t, model).
//		WithTimeout(5 * time.Second).
//		Start().
//		Press(dolly.KeyArrowRight, dolly.KeyArrowUp).
//		AssertValue("52").
//		Drag(image.Pt(2, 0), image.Pt(22, 0)).
//		AssertValue("100").
//		Stop()
//
//	assert.True(t, result.Success)
//
// For frame capture see Operator.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/dolly/trip"
)

// Model is a Bubble Tea model the director can inspect. tui.Model satisfies
// it.
type Model interface {
	tea.Model
	// CurrentValue returns the value as the readout shows it
	CurrentValue() string
	// CurrentMode returns the interaction mode, e.g. "idle" or "dragging"
	CurrentMode() string
	// CheckCondition answers named questions for waits and assertions
	CheckCondition(condition string) bool
}

// modelUpdate is a model state the program produced, in order.
type modelUpdate struct {
	model    Model
	sequence int64
}

// cue is sent through the program to prove it is consuming messages.
type cue struct{}

// Action records one thing the director did.
type Action struct {
	Timestamp time.Time
	Type      string      // "keypress", "pointer", "wait", "assertion", "frame"
	Details   interface{} // what exactly
}

// Snapshot is the model's visible state at one moment.
type Snapshot struct {
	Timestamp time.Time
	View      string
	Mode      string
	Value     string
}

// Result is what a scenario produced.
//
//	result := director.Stop()
//	if !result.Success {
//		t.Logf("failed after %v: %s", result.Duration, result.ErrorMessage)
//		t.Log(result.TripReport)
//	}
type Result struct {
	Actions      []Action
	Snapshots    []Snapshot
	Success      bool
	Duration     time.Duration
	ErrorMessage string
	Error        error
	ErrorDetails string // last trip with its context
	TripReport   string // every trip recorded during the session
	Stats        map[string]int64
}

// StageConfig tunes a Director.
type StageConfig struct {
	// Timeout bounds the session and every wait inside it
	Timeout time.Duration
	// ActionDelay is slept after each interaction (0 = none)
	ActionDelay time.Duration
	// CaptureViews records a Snapshot after each interaction
	CaptureViews bool
	// AutoReportErrors reports failing trips to t.Error. Turn it off when a
	// scenario is expected to fail.
	AutoReportErrors bool
}

// DefaultStageConfig returns a 10 second timeout, no delay, view capture on
// and errors reported to the test.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		Timeout:          10 * time.Second,
		CaptureViews:     true,
		AutoReportErrors: true,
	}
}

// Director drives a Model through a headless tea.Program.
//
// Interactions and assertions are fluent and never stop the test by
// themselves: failures become trips, the first failing trip halts further
// interactions, and Stop returns everything in a Result.
type Director struct {
	t       testing.TB
	model   Model
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error

	actions   []Action
	snapshots []Snapshot

	trips    *trip.Handler
	lastTrip *trip.Trip
	failed   bool

	// written from the program goroutine
	panicMu sync.Mutex
	panics  []*trip.Trip

	modelChan        chan modelUpdate
	latestModel      Model
	modelMu          sync.RWMutex
	updateSeq        int64 // atomic
	lastProcessedSeq int64 // atomic
	droppedUpdates   int64 // atomic
	duplicateUpdates int64 // atomic
	sequenceGaps     int64 // atomic

	config  StageConfig
	started bool
	begun   time.Time
}

// NewDirector creates a director with DefaultStageConfig.
func NewDirector(t testing.TB, model Model) *Director {
	return NewDirectorWithConfig(t, model, DefaultStageConfig())
}

// NewDirectorWithConfig creates a director with a custom configuration.
func NewDirectorWithConfig(t testing.TB, model Model, config StageConfig) *Director {
	if config.Timeout <= 0 {
		config.Timeout = DefaultStageConfig().Timeout
	}

	return &Director{
		t:           t,
		model:       model,
		done:        make(chan struct{}),
		trips:       trip.NewHandler("stage", trip.DefaultPolicy()),
		modelChan:   make(chan modelUpdate, 64),
		latestModel: model,
		config:      config,
	}
}

// WithTimeout sets the session timeout. It has no effect after Start.
func (d *Director) WithTimeout(timeout time.Duration) *Director {
	if d.started {
		d.t.Logf("stage: cannot change timeout after start, ignoring %v", timeout)
		return d
	}
	d.config.Timeout = timeout
	return d
}

// WithViewCapture toggles snapshots. It has no effect after Start.
func (d *Director) WithViewCapture(enabled bool) *Director {
	if d.started {
		d.t.Logf("stage: cannot change view capture after start, ignoring %v", enabled)
		return d
	}
	d.config.CaptureViews = enabled
	return d
}

// WithActionDelay sleeps after every interaction.
func (d *Director) WithActionDelay(delay time.Duration) *Director {
	d.config.ActionDelay = delay
	return d
}

// WithAutoReport toggles reporting failing trips to the test.
func (d *Director) WithAutoReport(enabled bool) *Director {
	d.config.AutoReportErrors = enabled
	return d
}

// wrapper forwards every model the program produces to the director.
type wrapper struct {
	Model
	director *Director
}

// Update runs the model's Update and hands the result to the director.
func (w wrapper) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			w.director.notePanic(r, msg)
			next, cmd = w, nil
		}
	}()

	updated, cmd := w.Model.Update(msg)
	model, ok := updated.(Model)
	if !ok {
		w.director.notePanic(fmt.Sprintf("Update returned %T", updated), msg)
		return w, cmd
	}

	seq := atomic.AddInt64(&w.director.updateSeq, 1)
	select {
	case w.director.modelChan <- modelUpdate{model: model, sequence: seq}:
	default:
		atomic.AddInt64(&w.director.droppedUpdates, 1)
	}

	return wrapper{Model: model, director: w.director}, cmd
}

// syncModelUpdates keeps latestModel current, in sequence order.
func (d *Director) syncModelUpdates() {
	for {
		select {
		case update := <-d.modelChan:
			current := atomic.LoadInt64(&d.lastProcessedSeq)
			if update.sequence <= current {
				atomic.AddInt64(&d.duplicateUpdates, 1)
				continue
			}
			if update.sequence > current+1 {
				atomic.AddInt64(&d.sequenceGaps, 1)
			}

			d.modelMu.Lock()
			d.latestModel = update.model
			atomic.StoreInt64(&d.lastProcessedSeq, update.sequence)
			d.modelMu.Unlock()

		case <-d.ctx.Done():
			return
		}
	}
}

// Start launches the program and waits until it is consuming messages.
func (d *Director) Start() *Director {
	if d.started {
		d.t.Logf("stage: director already started")
		return d
	}
	d.started = true
	d.begun = time.Now()
	d.ctx, d.cancel = context.WithTimeout(context.Background(), d.config.Timeout)

	d.t.Logf("[TRACE] Start: creating headless program for %T", d.model)
	d.program = tea.NewProgram(wrapper{Model: d.model, director: d},
		tea.WithContext(d.ctx),
		tea.WithoutRenderer(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)

	go d.syncModelUpdates()
	go func() {
		defer close(d.done)
		_, d.runErr = d.program.Run()
	}()

	if !d.sendMessage(cue{}) {
		d.recordTrip(trip.NewFall(trip.KindStartup, "program never processed a message", trip.Context{
			"timeout": d.config.Timeout.String(),
		}))
		return d
	}

	d.captureSnapshot()
	d.t.Logf("[TRACE] Start: program ready, value=%s mode=%s", d.getCurrentValue(), d.getCurrentMode())
	return d
}

// Stop ends the session and returns the result.
func (d *Director) Stop() *Result {
	d.collectPanics()
	if d.started {
		d.captureSnapshot()
	}

	if d.cancel != nil {
		d.cancel()
	}
	if d.program != nil {
		d.program.Quit()
		select {
		case <-d.done:
			if d.runErr != nil && !errors.Is(d.runErr, tea.ErrProgramKilled) {
				d.recordTrip(trip.NewTrip(trip.KindModel, "program exited with error", trip.Context{
					"error": d.runErr.Error(),
				}))
			}
		case <-time.After(time.Second):
			d.t.Logf("stage: program did not exit within a second")
		}
	}

	var duration time.Duration
	if !d.begun.IsZero() {
		duration = time.Since(d.begun)
	}

	result := &Result{
		Actions:   d.actions,
		Snapshots: d.snapshots,
		Success:   !d.failed && d.trips.ShouldContinue(),
		Duration:  duration,
		Stats:     d.GetSynchronizationStats(),
	}
	if d.lastTrip != nil {
		result.ErrorMessage = fmt.Sprintf("[%s] %s", d.lastTrip.Kind, d.lastTrip.Message)
		result.Error = d.lastTrip
		result.ErrorDetails = d.lastTrip.DetailedString()
	}
	if d.trips.HasTrips() || d.trips.HasStumbles() {
		result.TripReport = d.trips.DetailedReport()
	}
	return result
}

// sendMessage delivers msg and waits until the program has processed it. It
// reports whether that happened before the timeout.
func (d *Director) sendMessage(msg tea.Msg) bool {
	if d.program == nil {
		return false
	}

	baseline := atomic.LoadInt64(&d.lastProcessedSeq)
	d.program.Send(msg)

	timer := time.NewTimer(d.config.Timeout)
	defer timer.Stop()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for atomic.LoadInt64(&d.lastProcessedSeq) <= baseline {
		select {
		case <-timer.C:
			return false
		case <-d.ctx.Done():
			return false
		case <-d.done:
			return false
		case <-tick.C:
		}
	}

	if d.config.ActionDelay > 0 {
		time.Sleep(d.config.ActionDelay)
	}
	return true
}

// interact sends msg unless the session has already failed, and records it.
func (d *Director) interact(kind string, details interface{}, msg tea.Msg) *Director {
	if d.halted() || !d.ready(kind) {
		return d
	}
	if !d.sendMessage(msg) {
		d.collectPanics()
		if d.halted() {
			return d
		}
		if d.exited() {
			d.recordTrip(trip.NewTrip(trip.KindModel, "program has exited", trip.Context{
				"action": kind,
			}))
		} else {
			d.recordTrip(trip.NewTrip(trip.KindTimeout, "message was not processed", trip.Context{
				"action":  kind,
				"details": details,
				"msg":     fmt.Sprintf("%T", msg),
			}))
		}
		return d
	}
	d.recordAction(kind, details)
	d.captureSnapshot()
	return d
}

// ready records a startup trip when the director was never started.
func (d *Director) ready(action string) bool {
	if d.started {
		return true
	}
	d.recordTrip(trip.NewFall(trip.KindStartup, "director not started", trip.Context{
		"action": action,
	}))
	return false
}

func (d *Director) exited() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

func (d *Director) halted() bool {
	return d.failed || !d.trips.ShouldContinue()
}

// notePanic runs on the program goroutine; the trip is recorded later by
// collectPanics on the test goroutine.
func (d *Director) notePanic(value interface{}, msg tea.Msg) {
	t := trip.NewFall(trip.KindModel, fmt.Sprintf("model panic during Update: %v", value), trip.Context{
		"panic_value": fmt.Sprint(value),
		"tea_msg":     fmt.Sprintf("%T: %+v", msg, msg),
		"model_type":  fmt.Sprintf("%T", d.model),
	})

	d.panicMu.Lock()
	d.panics = append(d.panics, t)
	d.panicMu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Director) collectPanics() {
	d.panicMu.Lock()
	panics := d.panics
	d.panics = nil
	d.panicMu.Unlock()

	for _, t := range panics {
		d.captureErrorSnapshot(t)
		d.recordTrip(t)
	}
}

func (d *Director) recordAction(kind string, details interface{}) {
	d.actions = append(d.actions, Action{
		Timestamp: time.Now(),
		Type:      kind,
		Details:   details,
	})
}

func (d *Director) captureSnapshot() {
	if !d.config.CaptureViews {
		return
	}
	d.snapshots = append(d.snapshots, Snapshot{
		Timestamp: time.Now(),
		View:      d.getCurrentView(),
		Mode:      d.getCurrentMode(),
		Value:     d.getCurrentValue(),
	})
}

func (d *Director) captureErrorSnapshot(t *trip.Trip) {
	d.snapshots = append(d.snapshots, Snapshot{
		Timestamp: time.Now(),
		View:      fmt.Sprintf("ERROR STATE (%s)\n%s\n\nLast View:\n%s", t.Kind, t.Message, d.getCurrentView()),
		Mode:      "error_" + t.Kind,
		Value:     d.getCurrentValue(),
	})
}

// recordTrip stores t; anything but a stumble fails the session.
func (d *Director) recordTrip(t *trip.Trip) {
	d.trips.Record(t)
	if t.CanRecover() || d.trips.CanRecover(t.Kind) {
		d.t.Log(t.DetailedString())
		return
	}

	d.lastTrip = t
	d.failed = true
	if d.config.AutoReportErrors {
		d.t.Helper()
		d.t.Error(t.DetailedString())
	} else {
		d.t.Log(t.DetailedString())
	}
}

func (d *Director) current() Model {
	d.modelMu.RLock()
	defer d.modelMu.RUnlock()
	return d.latestModel
}

func (d *Director) getCurrentView() string {
	if m := d.current(); m != nil {
		return m.View()
	}
	return ""
}

func (d *Director) getCurrentMode() string {
	if m := d.current(); m != nil {
		return m.CurrentMode()
	}
	return ""
}

func (d *Director) getCurrentValue() string {
	if m := d.current(); m != nil {
		return m.CurrentValue()
	}
	return ""
}

// Model returns the latest model the program produced.
func (d *Director) Model() Model {
	return d.current()
}

// HasFailed reports whether a failing trip was recorded.
func (d *Director) HasFailed() bool {
	return d.halted()
}

// GetError returns the last failing trip, if any.
func (d *Director) GetError() error {
	if d.lastTrip != nil {
		return d.lastTrip
	}
	return nil
}

// GetTripHandler exposes the trips recorded so far.
func (d *Director) GetTripHandler() *trip.Handler {
	return d.trips
}

// GetLatestSnapshot returns the most recent snapshot.
func (d *Director) GetLatestSnapshot() Snapshot {
	if len(d.snapshots) == 0 {
		return Snapshot{}
	}
	return d.snapshots[len(d.snapshots)-1]
}

// GetActionCount returns how many actions were recorded.
func (d *Director) GetActionCount() int {
	return len(d.actions)
}

// GetSynchronizationStats returns the model sync counters.
func (d *Director) GetSynchronizationStats() map[string]int64 {
	return map[string]int64{
		"updates_generated": atomic.LoadInt64(&d.updateSeq),
		"updates_processed": atomic.LoadInt64(&d.lastProcessedSeq),
		"updates_dropped":   atomic.LoadInt64(&d.droppedUpdates),
		"duplicate_updates": atomic.LoadInt64(&d.duplicateUpdates),
		"sequence_gaps":     atomic.LoadInt64(&d.sequenceGaps),
		"buffer_length":     int64(len(d.modelChan)),
		"buffer_capacity":   int64(cap(d.modelChan)),
	}
}

// HasDroppedUpdates reports whether any model state was lost on the way.
func (d *Director) HasDroppedUpdates() bool {
	return atomic.LoadInt64(&d.droppedUpdates) > 0 || atomic.LoadInt64(&d.sequenceGaps) > 0
}
