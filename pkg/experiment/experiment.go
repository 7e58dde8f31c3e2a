// Package experiment orchestrates one potentiostat run: parameter
// validation, the start/stop command handshake, and the pipeline from raw
// transport lines to decoded data points.
package experiment

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/saxstat/gopstat/pkg/config"
	"github.com/saxstat/gopstat/pkg/decode"
	"github.com/saxstat/gopstat/pkg/technique"
	"github.com/saxstat/gopstat/pkg/transport"
)

// State is the experiment execution state.
type State int

const (
	Idle State = iota
	Configuring
	Running
	Stopping
	Completed
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind identifies an experiment event.
type EventKind int

const (
	StateChanged EventKind = iota
	DataPoint
	RunError
)

// Event is a typed notification published by the experiment. The state
// machine publishes, consumers subscribe via Events(); ordering follows
// the run and each event is delivered once.
type Event struct {
	Kind  EventKind
	State State        // valid for StateChanged
	Point decode.Point // valid for DataPoint
	Err   error        // valid for RunError
}

// ErrNotConfigured is returned by Start before a successful Configure.
var ErrNotConfigured = errors.New("experiment not configured")

const stopWait = time.Second

// Experiment drives a single technique on a connected device. A fresh
// Experiment is created per selected technique; parameters are immutable
// once validated and attached to a running experiment.
type Experiment struct {
	tech technique.Technique
	conn transport.Conn
	cfg  *config.Config

	mu     sync.RWMutex
	state  State
	params technique.Values
	data   []decode.Point

	events  chan Event
	stopCh  chan struct{}
	runDone chan struct{}

	confirmTimeout time.Duration // 0 = technique default
	retryBackoff   time.Duration
}

// New creates an idle experiment for the given technique and connection.
func New(tech technique.Technique, conn transport.Conn, cfg *config.Config) *Experiment {
	bufSize := cfg.Acquisition.BufferSize
	if bufSize <= 0 {
		bufSize = transport.DefaultBufferSize
	}
	return &Experiment{
		tech:         tech,
		conn:         conn,
		cfg:          cfg,
		state:        Idle,
		events:       make(chan Event, bufSize),
		retryBackoff: defaultRetryBackoff,
	}
}

// Technique returns the technique this experiment runs.
func (e *Experiment) Technique() technique.Technique { return e.tech }

// State returns the current execution state.
func (e *Experiment) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Events returns the experiment's event channel.
func (e *Experiment) Events() <-chan Event { return e.events }

// Data returns a copy of the points collected so far, oldest first. It is
// intended for periodic polling by a display consumer.
func (e *Experiment) Data() []decode.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]decode.Point, len(e.data))
	copy(out, e.data)
	return out
}

// SetHandshakeTiming overrides the confirmation wait and retry backoff.
// Zero values keep the defaults (the technique's confirmation timeout and
// a 0.5 s backoff).
func (e *Experiment) SetHandshakeTiming(confirmTimeout, retryBackoff time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmTimeout = confirmTimeout
	if retryBackoff > 0 {
		e.retryBackoff = retryBackoff
	}
}

// Configure validates and attaches experiment parameters. Validation is
// atomic: either every field passes type, range and logical checks or the
// parameters are rejected with a descriptive reason and nothing changes.
// Allowed from Idle, Completed or Error; a successful Configure clears any
// previously collected points and returns the experiment to Idle.
func (e *Experiment) Configure(values technique.Values) error {
	e.mu.Lock()
	prev := e.state
	if prev != Idle && prev != Completed && prev != Error {
		e.mu.Unlock()
		return fmt.Errorf("cannot configure from state %s", prev)
	}
	e.setStateLocked(Configuring)
	e.mu.Unlock()

	if err := e.tech.Validate(values); err != nil {
		e.mu.Lock()
		e.setStateLocked(prev)
		e.mu.Unlock()
		return fmt.Errorf("invalid parameters: %w", err)
	}

	e.mu.Lock()
	e.params = values.Copy()
	e.data = nil
	e.setStateLocked(Idle)
	e.mu.Unlock()
	return nil
}

// Start performs the start handshake and, on success, begins consuming
// samples. Only legal from Idle. A confirmation timeout leaves the
// experiment Idle; a device-reported error moves it to Error.
func (e *Experiment) Start() error {
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return fmt.Errorf("cannot start from state %s", e.state)
	}
	if e.params == nil {
		e.mu.Unlock()
		return ErrNotConfigured
	}
	params := e.params
	e.mu.Unlock()

	spec := e.tech.Decode()
	if err := e.handshake(e.tech.Command(params), spec); err != nil {
		var devErr *DeviceError
		if errors.As(err, &devErr) {
			e.setState(Error)
		}
		return err
	}

	dec := decode.New(spec, e.cfg.Calibration, e.tech.Waveform(params), e.cfg.Acquisition.SmoothingWindow)
	start := time.Now()

	e.mu.Lock()
	e.data = e.data[:0]
	e.stopCh = make(chan struct{})
	e.runDone = make(chan struct{})
	stopCh, runDone := e.stopCh, e.runDone
	e.setStateLocked(Running)
	e.mu.Unlock()

	go e.runLoop(dec, start, stopCh, runDone)
	return nil
}

// Stop requests early termination of a running experiment. The STOP
// command is best-effort: it is never retried and a missing confirmation
// is not an error — local state always returns to Idle.
func (e *Experiment) Stop() error {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return nil
	}
	e.setStateLocked(Stopping)
	stopCh, runDone := e.stopCh, e.runDone
	e.mu.Unlock()

	close(stopCh)
	if err := e.conn.SendLine("STOP"); err != nil {
		log.Printf("experiment: STOP command failed: %v", err)
	}

	select {
	case <-runDone:
	case <-time.After(stopWait):
		log.Printf("experiment: run loop did not stop within %s", stopWait)
	}

	e.setState(Idle)
	return nil
}

// runLoop is the sole consumer of transport events while a run is active.
// Samples are decoded and emitted in the exact order their bytes arrived.
func (e *Experiment) runLoop(dec *decode.Decoder, start time.Time, stopCh, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stopCh:
			// Stop owns the state transition; wait briefly for the
			// device's completion line then drain out.
			e.drainUntilComplete(dec, start)
			return
		case ev, ok := <-e.conn.Events():
			if !ok {
				e.fail(fmt.Errorf("transport closed mid-run: %w", transport.ErrNotConnected))
				return
			}
			switch ev.Kind {
			case transport.DataReceived:
				elapsed := ev.Line.At.Sub(start).Seconds()
				pt, res := dec.Decode(ev.Line.Text, elapsed)
				switch res {
				case decode.Emitted:
					e.mu.Lock()
					e.data = append(e.data, pt)
					e.mu.Unlock()
					e.publish(Event{Kind: DataPoint, Point: pt})
				case decode.Completed:
					e.setState(Completed)
					return
				}
			case transport.IOError:
				e.fail(fmt.Errorf("transport error mid-run: %w", ev.Err))
				return
			case transport.Disconnected:
				e.fail(errors.New("device disconnected mid-run"))
				return
			}
		}
	}
}

// drainUntilComplete consumes events for up to stopWait after a stop
// request, so the device's completion line does not linger in the buffer.
func (e *Experiment) drainUntilComplete(dec *decode.Decoder, start time.Time) {
	deadline := time.After(stopWait)
	for {
		select {
		case ev, ok := <-e.conn.Events():
			if !ok {
				return
			}
			if ev.Kind != transport.DataReceived {
				return
			}
			if _, res := dec.Decode(ev.Line.Text, ev.Line.At.Sub(start).Seconds()); res == decode.Completed {
				return
			}
		case <-deadline:
			return
		}
	}
}

func (e *Experiment) fail(err error) {
	e.setState(Error)
	e.publish(Event{Kind: RunError, Err: err})
}

func (e *Experiment) setState(s State) {
	e.mu.Lock()
	e.setStateLocked(s)
	e.mu.Unlock()
}

// setStateLocked updates the state and publishes the change. Callers hold mu.
func (e *Experiment) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.publish(Event{Kind: StateChanged, State: s})
}

// publish forwards an event without blocking the producer. A full buffer
// drops the event with a log, like the transport's sample channel.
func (e *Experiment) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		log.Printf("experiment: event buffer full, dropping event kind %d", ev.Kind)
	}
}
