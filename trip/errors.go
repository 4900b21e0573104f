// Package trip records the incidents of a slider session.
//
// The engine resolves every numeric edge case locally, so most incidents are
// stumbles: a pointer event without a coordinate, a move from a pointer that
// was never captured, a zero-size track. They are worth knowing about but
// never change the slider's value. An invalid configuration is a fall: the
// widget cannot be built. The stage harness records its failed assertions
// and timeouts as errors.
package trip

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kinds of trips.
const (
	KindConfig    = "config"
	KindPointer   = "pointer"
	KindGeometry  = "geometry"
	KindAssertion = "assertion"
	KindTimeout   = "timeout"
	KindStartup   = "startup"
	KindModel     = "model"
	KindVisual    = "visual"
)

// Trip is one recorded incident with debugging context.
//
// Example usage:
//
//	t := trip.NewStumble(trip.KindPointer, "pointer move without coordinate",
//	    trip.Context{"pointer": 1})
//
//	if t.CanRecover() {
//	    // the event was dropped, the slider is still consistent
//	}
type Trip struct {
	Kind      string
	Message   string
	Context   Context
	Timestamp time.Time
	Severity  Severity
}

// Context carries structured details about a trip.
type Context map[string]interface{}

// Severity indicates how serious a trip is.
type Severity int

const (
	// Stumble is an input the engine dropped or clamped. Slider state is intact.
	Stumble Severity = iota

	// Error is a failed expectation, e.g. a stage assertion.
	Error

	// Fall makes the session unusable, e.g. min >= max at construction.
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

func newTrip(kind, message string, context Context, severity Severity) *Trip {
	return &Trip{
		Kind:      kind,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}

// NewTrip creates a trip with Error severity.
func NewTrip(kind, message string, context Context) *Trip {
	return newTrip(kind, message, context, Error)
}

// NewStumble creates a trip with Stumble severity.
func NewStumble(kind, message string, context Context) *Trip {
	return newTrip(kind, message, context, Stumble)
}

// NewFall creates a trip with Fall severity.
func NewFall(kind, message string, context Context) *Trip {
	return newTrip(kind, message, context, Fall)
}

// Error implements the error interface.
func (t *Trip) Error() string {
	return fmt.Sprintf("[%s:%s] %s", t.Kind, t.Severity, t.Message)
}

// CanRecover reports whether the session can go on after t.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall reports whether t ends the session.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns a context value if present.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, exists := t.Context[key]
	return val, exists
}

// DetailedString describes t with its timestamp and sorted context.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(t.Error())
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

// Policy decides when accumulated trips should stop a session.
type Policy struct {
	// StopOnFall stops the session as soon as a fall is recorded
	StopOnFall bool

	// MaxStumbles stops the session once more stumbles than this pile up (0 = no limit)
	MaxStumbles int

	// RecoverableKinds lists kinds a host may keep going after, whatever their severity
	RecoverableKinds []string
}

// DefaultPolicy stops on falls and tolerates up to 100 dropped inputs.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnFall:       true,
		MaxStumbles:      100,
		RecoverableKinds: []string{KindPointer, KindGeometry, KindVisual},
	}
}

// Handler collects trips for one component. It is safe for concurrent use:
// the engine may record from a program goroutine while a test reads.
type Handler struct {
	component string
	policy    *Policy

	mu       sync.Mutex
	trips    []*Trip
	stumbles []*Trip
}

// NewHandler creates a handler; a nil policy selects DefaultPolicy.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		policy:    policy,
	}
}

// Component returns the handler's name.
func (h *Handler) Component() string { return h.component }

// Record stores t.
func (h *Handler) Record(t *Trip) {
	if t == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if t.Severity == Stumble {
		h.stumbles = append(h.stumbles, t)
	} else {
		h.trips = append(h.trips, t)
	}
}

// ShouldContinue applies the policy to what has been recorded so far.
func (h *Handler) ShouldContinue() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.policy.StopOnFall {
		for _, t := range h.trips {
			if t.IsFall() {
				return false
			}
		}
	}

	if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
		return false
	}

	return true
}

// HasTrips reports whether any error or fall was recorded.
func (h *Handler) HasTrips() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trips) > 0
}

// HasStumbles reports whether any stumble was recorded.
func (h *Handler) HasStumbles() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stumbles) > 0
}

// GetTrips returns a copy of the recorded errors and falls.
func (h *Handler) GetTrips() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.trips...)
}

// GetStumbles returns a copy of the recorded stumbles.
func (h *Handler) GetStumbles() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.stumbles...)
}

// Last returns the most recent error or fall, or nil.
func (h *Handler) Last() *Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.trips) == 0 {
		return nil
	}
	return h.trips[len(h.trips)-1]
}

// CanRecover reports whether kind is listed as recoverable by the policy.
func (h *Handler) CanRecover(kind string) bool {
	for _, k := range h.policy.RecoverableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Summary gives a one-line count of what was recorded.
func (h *Handler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] No issues", h.component)
	}

	return fmt.Sprintf("[%s] %d trips, %d stumbles",
		h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport lists every trip and stumble.
func (h *Handler) DetailedReport() string {
	trips := h.GetTrips()
	stumbles := h.GetStumbles()

	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	if len(trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, t := range trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, t.DetailedString()))
		}
	}

	if len(stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, s := range stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.DetailedString()))
		}
	}

	return report.String()
}
