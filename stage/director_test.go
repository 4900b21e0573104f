package stage

import (
	"image"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dolly"
	"github.com/teranos/dolly/trip"
	"github.com/teranos/dolly/tui"
)

func newSlider(t *testing.T, cfg dolly.Config, opts ...tui.Option) tui.Model {
	t.Helper()
	m, err := tui.New(cfg, opts...)
	require.NoError(t, err)
	return m
}

func quiet(t *testing.T, model Model) *Director {
	return NewDirectorWithConfig(t, model, StageConfig{
		Timeout:      5 * time.Second,
		CaptureViews: true,
	})
}

func TestDirector_DefaultSlider(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50})

	result := NewDirector(t, model).
		WithTimeout(5*time.Second).
		Start().
		AssertValue("50").
		Press(dolly.KeyArrowRight).AssertValue("51").
		Press(dolly.KeyArrowUp).AssertValue("52").
		Press(dolly.KeyArrowLeft).AssertValue("51").
		Press(dolly.KeyArrowDown).AssertValue("50").
		Press(dolly.KeyPageUp).AssertValue("60").
		Press(dolly.KeyPageDown).AssertValue("50").
		Press(dolly.KeyHome).AssertValue("0").AssertCondition("at_min").
		Press(dolly.KeyEnd).AssertValue("100").AssertCondition("at_max").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
	assert.Empty(t, result.TripReport)
}

func TestDirector_MinValueVariant(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 50, Max: 200, Step: 1, Value: 100})

	result := NewDirector(t, model).
		Start().
		Press(dolly.KeyPageUp).AssertValue("115").
		Press(dolly.KeyHome).AssertValue("50").
		Press(dolly.KeyEnd).AssertValue("200").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_StepTen(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 10, Value: 50})

	result := NewDirector(t, model).
		Start().
		Press(dolly.KeyArrowRight).AssertValue("60").
		Press(dolly.KeyArrowUp).AssertValue("70").
		Press(dolly.KeyArrowLeft).AssertValue("60").
		Press(dolly.KeyArrowDown).AssertValue("50").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_VimKeys(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 10, Step: 1, Value: 5})

	result := NewDirector(t, model).
		Start().
		Type("lll").AssertValue("8").
		Type("hj").AssertValue("6").
		Type("G").AssertCondition("at_max").
		Type("g").AssertCondition("at_min").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_Drag(t *testing.T) {
	var mu sync.Mutex
	var changes []dolly.Change
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50},
		tui.WithOnChange(func(c dolly.Change) {
			mu.Lock()
			changes = append(changes, c)
			mu.Unlock()
		}))

	director := NewDirector(t, model).Start()

	director.PointerDown(12, 0).
		AssertMode("dragging").
		AssertCondition("dragging").
		AssertValue("50").
		PointerMove(17, 0).
		AssertValue("75").
		PointerMove(22, 0).
		AssertValue("100").
		PointerMove(40, 5).
		AssertValue("100").
		PointerMove(-5, 0).
		AssertValue("0").
		PointerUp(-5, 0).
		AssertMode("idle")

	result := director.Stop()
	require.True(t, result.Success, result.ErrorMessage)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 4, "the press emits, the repeated 100 does not")
	for _, c := range changes {
		assert.Equal(t, dolly.SourcePointer, c.Source)
	}
}

func TestDirector_DragHelper(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50})

	result := NewDirector(t, model).
		Start().
		Drag(image.Pt(12, 0), image.Pt(22, 0)).
		AssertValue("100").
		AssertMode("idle").
		Drag(image.Pt(22, 0), image.Pt(2, 0)).
		AssertValue("0").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_VerticalDrag(t *testing.T) {
	cfg := dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50, Orientation: dolly.Vertical}
	model := newSlider(t, cfg, tui.WithLabel("Gain"), tui.WithLength(11))

	result := NewDirector(t, model).
		Start().
		AssertViewContains("Gain").
		Drag(image.Pt(2, 6), image.Pt(2, 1)).
		AssertValue("100").
		Drag(image.Pt(2, 1), image.Pt(2, 11)).
		AssertValue("0").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_KeyPressedUntilReleased(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := NewDirector(t, model).
		Start().
		PressKey(dolly.KeyArrowUp).
		AssertCondition("key_pressed").
		ReleaseKey(dolly.KeyArrowUp).
		AssertCondition("idle").
		AssertValue("1").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_BlurEndsDrag(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 1, Value: 50})

	result := NewDirector(t, model).
		Start().
		PointerDown(17, 0).
		Blur().
		AssertMode("idle").
		PointerMove(2, 0).
		AssertValue("75").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_Configure(t *testing.T) {
	model := newSlider(t, dolly.Config{Min: 0, Max: 100, Step: 1, Value: 80})

	result := NewDirector(t, model).
		Start().
		Configure(dolly.Config{Min: 0, Max: 50, Step: 5}).
		AssertValue("50").
		Press(dolly.KeyArrowLeft).
		AssertValue("45").
		Configure(dolly.Config{Min: 1, Max: 1, Step: 1}).
		AssertCondition("config_error").
		AssertValue("45").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_WaitForValue(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := NewDirector(t, model).
		Start().
		Press(dolly.KeyEnd).
		WaitForValue("100").
		WaitForMode("idle").
		WaitForCondition("at_max").
		WaitForText("value: 100").
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_FailedAssertionHaltsScene(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())
	director := quiet(t, model).Start()

	director.AssertValue("99")
	count := director.GetActionCount()
	director.Press(dolly.KeyEnd)

	result := director.Stop()
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "[assertion]")
	assert.Contains(t, result.ErrorDetails, "expected: 99")
	assert.Equal(t, count, len(result.Actions), "no interactions after a failure")
	assert.Equal(t, "0", director.CurrentValue())

	var tr *trip.Trip
	require.ErrorAs(t, result.Error, &tr)
	assert.Equal(t, trip.KindAssertion, tr.Kind)
}

func TestDirector_WaitTimeout(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := quiet(t, model).
		WithTimeout(200 * time.Millisecond).
		Start().
		WaitForValue("77").
		Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "[timeout]")
}

func TestDirector_NotStarted(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := quiet(t, model).Press(dolly.KeyEnd).Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "[startup]")
	assert.Zero(t, result.Duration)
}

// panicky blows up on the first key press.
type panicky struct{ tui.Model }

func (p panicky) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		panic("thumb fell off")
	}
	next, cmd := p.Model.Update(msg)
	return panicky{next.(tui.Model)}, cmd
}

func TestDirector_ModelPanic(t *testing.T) {
	model := panicky{newSlider(t, dolly.DefaultConfig())}

	result := quiet(t, model).
		Start().
		PressKey(dolly.KeyEnd).
		Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "model panic")
	assert.Contains(t, result.ErrorMessage, "thumb fell off")

	var sawErrorState bool
	for _, s := range result.Snapshots {
		if s.Mode == "error_model" {
			sawErrorState = true
		}
	}
	assert.True(t, sawErrorState)
}

func TestDirector_Snapshots(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := NewDirector(t, model).
		Start().
		Press(dolly.KeyPageUp).
		Stop()

	require.True(t, result.Success, result.ErrorMessage)
	require.GreaterOrEqual(t, len(result.Snapshots), 3)
	assert.Equal(t, "0", result.Snapshots[0].Value)
	assert.Equal(t, "10", result.Snapshots[len(result.Snapshots)-1].Value)
	assert.Contains(t, result.Snapshots[len(result.Snapshots)-1].View, "value: 10")

	assert.Zero(t, result.Stats["updates_dropped"])
	assert.Zero(t, result.Stats["sequence_gaps"])
	assert.Equal(t, int64(3), result.Stats["updates_processed"], "cue, press and release")
}

func TestDirector_ViewCaptureOff(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())

	result := NewDirector(t, model).
		WithViewCapture(false).
		Start().
		Press(dolly.KeyEnd).
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
	assert.Empty(t, result.Snapshots)
	assert.Len(t, result.Actions, 2)
}

func TestDirector_RecoverableKindDoesNotFail(t *testing.T) {
	model := newSlider(t, dolly.DefaultConfig())
	director := quiet(t, model).Start()

	director.recordTrip(trip.NewTrip(trip.KindVisual, "frame drifted", nil))
	director.Press(dolly.KeyEnd).AssertValue("100")

	result := director.Stop()
	assert.True(t, result.Success, result.ErrorMessage)
	assert.True(t, director.GetTripHandler().HasTrips())
	assert.Empty(t, result.ErrorMessage)
}
