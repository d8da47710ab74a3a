// Package dispatcher routes named events to handlers. A handler runs inline
// unless it is registered as buffered, in which case a worker goroutine
// drains its queue in order.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned when no handler is registered for a command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned by non-blocking buffered handlers.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by buffered handlers after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is a named notification carrying an arbitrary payload.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*routeConfig)

type routeConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on a worker fed by a queue of the given size.
func Buffered(size int) Option {
	return func(c *routeConfig) { c.bufferSize = size }
}

// Blocking makes a buffered handler wait for room instead of dropping.
func Blocking() Option {
	return func(c *routeConfig) { c.blocking = true }
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *routeConfig) { c.logged = true }
}

// route is one registered command.
type route struct {
	command string
	handler HandlerFunc
	cfg     routeConfig
	queue   chan Event // nil for inline routes
	attrs   metric.MeasurementOption
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	// mu guards routes and closed; send paths hold it shared so Close
	// cannot close a queue under them
	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics use the global OTel meter, a no-op
// unless a meter provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	m := meter()

	var err error
	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, r := range d.routes {
			if r.queue != nil {
				o.ObserveInt64(d.queueSize, int64(len(r.queue)), r.attrs)
			}
		}
		return nil
	}, d.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

// Register adds a handler for the given command, replacing any previous one.
// Registering after Close yields a route whose buffered sends fail.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{
		command: command,
		handler: h,
		attrs:   metric.WithAttributes(attribute.String("command", command)),
	}
	for _, opt := range opts {
		opt(&r.cfg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r.cfg.bufferSize > 0 && !d.closed {
		r.queue = make(chan Event, r.cfg.bufferSize)
		d.workers.Add(1)
		go d.work(r)
	}
	d.routes[command] = r
}

// Dispatch routes an event to its handler. A zero Timestamp is set to the
// current time. Buffered handlers return "queued" once the event is enqueued.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if r.cfg.logged {
		return d.logged(r, e)
	}
	return d.deliver(r, e)
}

func (d *Dispatcher) deliver(r *route, e Event) (any, error) {
	if r.cfg.bufferSize == 0 {
		return r.handler(e)
	}
	return d.enqueue(r, e)
}

func (d *Dispatcher) enqueue(r *route, e Event) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || r.queue == nil {
		return nil, fmt.Errorf("%w: %s", ErrClosed, r.command)
	}

	if r.cfg.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.dropped.Add(context.Background(), 1, r.attrs)
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

func (d *Dispatcher) logged(r *route, e Event) (any, error) {
	start := time.Now()
	d.logger.Debug("handling event", "command", r.command, "payload", fmt.Sprintf("%T", e.Payload))

	result, err := d.deliver(r, e)
	if err != nil {
		d.logger.Error("event failed", "command", r.command, "duration", time.Since(start), "error", err)
	} else {
		d.logger.Debug("event complete", "command", r.command, "duration", time.Since(start))
	}
	return result, err
}

// work drains one route's queue until Close.
func (d *Dispatcher) work(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := r.handler(e); err != nil {
			d.logger.Error("buffered event failed", "command", r.command, "error", err)
		}
		d.processed.Add(context.Background(), 1, r.attrs)
	}
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Pending returns the number of queued events of a buffered command.
func (d *Dispatcher) Pending(command string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.routes[command]; ok && r.queue != nil {
		return len(r.queue)
	}
	return 0
}

// Close stops accepting buffered events and waits until every queued event
// has been handled. Inline handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}
