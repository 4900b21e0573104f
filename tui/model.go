// Package tui hosts a dolly slider in a Bubble Tea program.
//
// The Model is the renderer and input source the engine expects from its
// host: it turns key and mouse messages into engine events, measures its own
// track for pointer drags and paints the value it is handed back.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teranos/dolly"
)

const (
	margin        = 2  // columns left of the track
	defaultLength = 21 // track cells
	minLength     = 2
)

// KeyReleaseMsg tells the model a key went up. Terminals do not report key
// releases, so hosts that know better (or the stage harness) send it.
type KeyReleaseMsg struct {
	Key dolly.Key
}

// ConfigureMsg asks the model to apply a new slider configuration.
type ConfigureMsg struct {
	Config dolly.Config
}

// Styles paints the slider's parts.
type Styles struct {
	Label   lipgloss.Style
	Track   lipgloss.Style
	Fill    lipgloss.Style
	Thumb   lipgloss.Style
	Pressed lipgloss.Style
	Readout lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	brand := lipgloss.AdaptiveColor{Light: "26", Dark: "81"}
	subtle := lipgloss.AdaptiveColor{Light: "250", Dark: "238"}

	return Styles{
		Label:   lipgloss.NewStyle().Bold(true),
		Track:   lipgloss.NewStyle().Foreground(subtle),
		Fill:    lipgloss.NewStyle().Foreground(brand),
		Thumb:   lipgloss.NewStyle().Foreground(brand).Bold(true),
		Pressed: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Readout: lipgloss.NewStyle().Faint(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Option customizes a Model.
type Option func(*Model)

// WithLabel sets the text shown above the track.
func WithLabel(label string) Option {
	return func(m *Model) { m.label = label }
}

// WithLength sets the track length in cells.
func WithLength(cells int) Option {
	return func(m *Model) {
		if cells >= minLength {
			m.length = cells
		}
	}
}

// WithFit makes a horizontal track follow the terminal width.
func WithFit() Option {
	return func(m *Model) { m.fit = true }
}

// WithKeyMap replaces the default bindings.
func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// WithStyles replaces the default palette.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithEngineOptions passes options through to dolly.New.
func WithEngineOptions(opts ...dolly.Option) Option {
	return func(m *Model) { m.engineOpts = append(m.engineOpts, opts...) }
}

// WithOnChange registers a callback for every value the engine emits. It runs
// inside Update.
func WithOnChange(fn func(dolly.Change)) Option {
	return func(m *Model) { m.feed.onChange = fn }
}

// feed receives engine emissions. It is only touched from Update.
type feed struct {
	onChange  func(dolly.Change)
	emissions int
	last      dolly.Change
}

func (f *feed) emit(c dolly.Change) {
	f.emissions++
	f.last = c
	if f.onChange != nil {
		f.onChange(c)
	}
}

// Model is a Bubble Tea slider.
//
// The engine lives behind a pointer and is only used from Update. Everything
// View and the accessors read is copied out after each Update, so a Model
// value can be inspected from another goroutine while the program runs.
type Model struct {
	engine     *dolly.Engine
	engineOpts []dolly.Option
	feed       *feed

	keys   KeyMap
	styles Styles
	label  string
	length int
	fit    bool

	// copied from the engine after every Update
	cfg       dolly.Config
	bounds    dolly.Bounds
	value     float64
	text      string
	state     dolly.DragState
	pressed   dolly.Key
	emissions int
	err       error
}

// New builds a slider model. An invalid configuration returns the engine's
// *dolly.ConfigError.
func New(cfg dolly.Config, opts ...Option) (Model, error) {
	m := Model{
		feed:   &feed{},
		keys:   DefaultKeyMap(),
		styles: DefaultStyles(),
		length: defaultLength,
	}
	for _, opt := range opts {
		opt(&m)
	}

	engineOpts := append([]dolly.Option{dolly.WithEmitter(m.feed.emit)}, m.engineOpts...)
	engine, err := dolly.New(cfg, engineOpts...)
	if err != nil {
		return Model{}, err
	}
	m.engine = engine
	m.sync()
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if k, ok := m.keys.resolve(msg); ok {
			m.engine.OnKeyDown(k)
		}

	case KeyReleaseMsg:
		m.engine.OnKeyUp(msg.Key)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.BlurMsg:
		// focus loss stands in for pointer capture loss
		m.engine.OnPointerCancel()

	case tea.WindowSizeMsg:
		if m.fit && m.cfg.Orientation == dolly.Horizontal {
			m.length = max(minLength, msg.Width-2*margin)
		}

	case ConfigureMsg:
		m.err = m.engine.Reconfigure(msg.Config)
	}

	m.sync()
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	p := dolly.Pointer{X: float64(msg.X), Y: float64(msg.Y)}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.engine.OnPointerDown(p, m.TrackRect())
		}
	case tea.MouseActionMotion:
		m.engine.OnPointerMove(p)
	case tea.MouseActionRelease:
		// X10 mouse reporting cannot tell which button went up
		m.engine.OnPointerUp(p)
	}
}

func (m *Model) sync() {
	m.cfg = m.engine.Config()
	m.bounds = m.engine.Bounds()
	m.value = m.engine.Value()
	m.text = m.engine.Text()
	m.state = m.engine.State()
	m.pressed = m.engine.Pressed()
	m.emissions = m.feed.emissions
}

// TrackRect returns the track's bounding box in screen cells, as laid out by
// View when it is drawn at the top-left corner of the screen.
func (m Model) TrackRect() dolly.Rect {
	top := 1.0
	if m.label == "" {
		top = 0
	}
	if m.cfg.Orientation == dolly.Vertical {
		return dolly.Rect{
			Left:   margin,
			Top:    top,
			Right:  margin,
			Bottom: top + float64(m.length-1),
		}
	}
	return dolly.Rect{
		Left:   margin,
		Top:    top,
		Right:  margin + float64(m.length-1),
		Bottom: top,
	}
}

// Value returns the slider value.
func (m Model) Value() float64 { return m.value }

// CurrentValue returns the value as shown in the readout.
func (m Model) CurrentValue() string { return m.text }

// CurrentMode returns "idle" or "dragging".
func (m Model) CurrentMode() string { return m.state.String() }

// Emissions counts the values the engine has emitted so far.
func (m Model) Emissions() int { return m.emissions }

// Err returns the last rejected reconfiguration, if any.
func (m Model) Err() error { return m.err }

// CheckCondition answers named questions about the slider for test harnesses.
func (m Model) CheckCondition(condition string) bool {
	switch condition {
	case "at_min":
		return m.value == m.bounds.Min()
	case "at_max":
		return m.value == m.bounds.Max()
	case "dragging":
		return m.state == dolly.Dragging
	case "idle":
		return m.state == dolly.Idle
	case "key_pressed":
		return m.pressed != ""
	case "config_error":
		return m.err != nil
	default:
		return false
	}
}

// thumbIndex is the thumb's cell counted from the track's start.
func (m Model) thumbIndex() int {
	span := m.bounds.Span()
	if span <= 0 {
		return 0
	}
	ratio := (m.value - m.bounds.Min()) / span
	return int(math.Round(ratio * float64(m.length-1)))
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	if m.label != "" {
		b.WriteString(m.styles.Label.Render(m.label))
		b.WriteString("\n")
	}

	thumb := m.styles.Thumb
	if m.pressed != "" || m.state == dolly.Dragging {
		thumb = m.styles.Pressed
	}
	pad := strings.Repeat(" ", margin)
	idx := m.thumbIndex()

	if m.cfg.Orientation == dolly.Vertical {
		for row := 0; row < m.length; row++ {
			cell := m.length - 1 - row // cells count up from the bottom
			b.WriteString(pad)
			switch {
			case cell == idx:
				b.WriteString(thumb.Render("●"))
			case cell < idx:
				b.WriteString(m.styles.Fill.Render("┃"))
			default:
				b.WriteString(m.styles.Track.Render("│"))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(pad)
		b.WriteString(m.styles.Fill.Render(strings.Repeat("━", idx)))
		b.WriteString(thumb.Render("●"))
		b.WriteString(m.styles.Track.Render(strings.Repeat("─", m.length-1-idx)))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Readout.Render(fmt.Sprintf("%svalue: %s  [%s..%s]  %s",
		pad, m.text, m.bounds.Format(m.bounds.Min()), m.bounds.Format(m.bounds.Max()), m.state)))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(pad + m.err.Error()))
	}

	return b.String()
}
