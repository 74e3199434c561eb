// Package events defines the typed event surface of the list engine.
// The collection and viewport layers publish events onto a Bus; the
// presentation layer (terminal demo, dev server) subscribes per kind.
//
// Dispatch is synchronous and in emit order: listeners observe
// range-loaded events in resolution order, which may differ from
// request order.
package events

import (
	"sync"

	"github.com/conneroisu/vlist/internal/types"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindViewportChanged   Kind = "viewport:changed"
	KindRangeLoaded       Kind = "range:loaded"
	KindSpeedChanged      Kind = "speed:changed"
	KindLoadingStart      Kind = "loading:start"
	KindLoadingEnd        Kind = "loading:end"
	KindErrorOccurred     Kind = "error:occurred"
	KindStructureAnalyzed Kind = "structure:analyzed"
)

// Event is implemented by all event payloads.
type Event interface {
	Kind() Kind
}

// ViewportChanged is published after every viewport update with the new
// visible range. Placeholders lists the visible indices that are not
// resident and should render as masked stand-ins.
type ViewportChanged struct {
	Range        types.Range `json:"range"`
	Offset       float64     `json:"offset"`
	Placeholders []int       `json:"placeholders,omitempty"`
}

func (ViewportChanged) Kind() Kind { return KindViewportChanged }

// RangeLoaded is published when a fetched range has been merged into
// the collection cache.
type RangeLoaded struct {
	Range types.Range  `json:"range"`
	Items []types.Item `json:"items"`
}

func (RangeLoaded) Kind() Kind { return KindRangeLoaded }

// SpeedChanged is published when the measured scroll velocity changes
// classification or direction.
type SpeedChanged struct {
	Velocity  float64         `json:"velocity"`
	Direction types.Direction `json:"direction"`
}

func (SpeedChanged) Kind() Kind { return KindSpeedChanged }

// LoadingStart is published when a range fetch is issued.
type LoadingStart struct {
	Range types.Range `json:"range"`
}

func (LoadingStart) Kind() Kind { return KindLoadingStart }

// LoadingEnd is published when a range fetch settles, success or not.
type LoadingEnd struct {
	Range types.Range `json:"range"`
}

func (LoadingEnd) Kind() Kind { return KindLoadingEnd }

// ErrorOccurred carries a classified fetch-path error with the
// attempted range and strategy context.
type ErrorOccurred struct {
	Err      error          `json:"-"`
	Message  string         `json:"message"`
	Range    types.Range    `json:"range"`
	Strategy types.Strategy `json:"strategy"`
}

func (ErrorOccurred) Kind() Kind { return KindErrorOccurred }

// StructureAnalyzed is published exactly once, after the first
// non-empty load has been analyzed for placeholder shaping.
type StructureAnalyzed struct {
	Structure types.Structure `json:"structure"`
}

func (StructureAnalyzed) Kind() Kind { return KindStructureAnalyzed }

// Handler receives dispatched events.
type Handler func(Event)

// Bus is a synchronous, in-order event dispatcher. Safe for concurrent
// use; handlers run on the emitting goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Kind]map[int]Handler
	all      map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind]map[int]Handler),
		all:      make(map[int]Handler),
	}
}

// Subscribe registers a handler for one event kind. The returned
// function removes the subscription.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]Handler)
	}
	b.handlers[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

// SubscribeAll registers a handler for every event kind.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Emit dispatches the event synchronously to all matching handlers.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	kindHandlers := make([]Handler, 0, len(b.handlers[e.Kind()])+len(b.all))
	for _, h := range b.handlers[e.Kind()] {
		kindHandlers = append(kindHandlers, h)
	}
	for _, h := range b.all {
		kindHandlers = append(kindHandlers, h)
	}
	b.mu.RUnlock()

	for _, h := range kindHandlers {
		h(e)
	}
}
