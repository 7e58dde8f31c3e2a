package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the potentiostat firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the event channel buffer.
	DefaultBufferSize = 100
	// DefaultReadTimeout bounds a single port read so the reader loop can
	// observe cancellation. It is not a protocol-level timeout.
	DefaultReadTimeout = 100 * time.Millisecond
	// joinTimeout bounds the wait for the reader goroutine on Close.
	joinTimeout = time.Second
)

var (
	ErrNotConnected    = errors.New("not connected")
	ErrPortUnavailable = errors.New("serial port unavailable")
)

// EventKind identifies a transport event.
type EventKind int

const (
	Connected EventKind = iota
	Disconnected
	DataReceived
	IOError
)

// Line is one complete, trimmed text line received from the device.
type Line struct {
	Text string
	At   time.Time
}

// Event is a transport notification delivered in arrival order.
type Event struct {
	Kind EventKind
	Line Line  // valid for DataReceived
	Err  error // valid for IOError
}

// Conn abstracts a line-oriented device connection (real or mocked).
type Conn interface {
	Connect() error
	Close() error
	SendLine(text string) error
	FlushInput() error
	Events() <-chan Event
	IsConnected() bool
}

// PortInfo describes an available serial port.
type PortInfo struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]PortInfo, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]PortInfo, 0, len(names))
	for _, name := range names {
		result = append(result, PortInfo{Name: name, Description: name})
	}
	return result, nil
}

// Serial is a connection to the potentiostat over a serial port. One
// background reader goroutine assembles lines and forwards them as events;
// reads and writes share a single I/O mutex so a command write never
// interleaves with a reader-side access at the byte level.
type Serial struct {
	port        string
	baudRate    int
	bufSize     int
	readTimeout time.Duration

	conn       serial.Port
	events     chan Event
	ioMu       sync.Mutex
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	readerDone chan struct{}
	connected  bool
}

var _ Conn = (*Serial)(nil)

// New creates a new Serial instance for the given port.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		bufSize:     bufSize,
		readTimeout: DefaultReadTimeout,
	}
}

// SetReadTimeout overrides the reader poll timeout. Must be called before Connect.
func (s *Serial) SetReadTimeout(d time.Duration) {
	if d > 0 {
		s.readTimeout = d
	}
}

// Connect opens the serial port, clears stale buffers and starts the
// background reader.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected to %s", s.port)
	}

	mode := &serial.Mode{BaudRate: s.baudRate}
	port, err := serial.Open(s.port, mode)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, s.port, err)
	}
	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", s.port, err)
	}
	port.ResetInputBuffer()
	port.ResetOutputBuffer()

	s.conn = port
	s.connected = true
	s.events = make(chan Event, s.bufSize)
	s.readerDone = make(chan struct{})
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.emit(Event{Kind: Connected})
	go s.readLoop()

	return nil
}

// Close stops the reader, joins it with a bounded timeout and closes the
// port. Calling Close while disconnected is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	cancel := s.cancel
	done := s.readerDone
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		log.Printf("transport: reader did not stop within %s", joinTimeout)
	}

	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// SendLine writes one newline-terminated command to the device.
func (s *Serial) SendLine(text string) error {
	s.mu.RLock()
	conn := s.conn
	connected := s.connected
	s.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	s.ioMu.Lock()
	_, err := conn.Write([]byte(text))
	s.ioMu.Unlock()
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// FlushInput discards stale device output: both the OS input buffer and any
// lines already queued on the event channel.
func (s *Serial) FlushInput() error {
	s.mu.RLock()
	conn := s.conn
	connected := s.connected
	events := s.events
	s.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	s.ioMu.Lock()
	err := conn.ResetInputBuffer()
	s.ioMu.Unlock()

	drain(events)
	return err
}

// Events returns the channel of transport events. It is closed when the
// reader exits after a Disconnected event.
func (s *Serial) Events() <-chan Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// IsConnected returns whether the device is currently connected.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// readLoop reads available bytes, assembles complete lines and forwards
// them in arrival order. It exits on cancellation or a read error.
func (s *Serial) readLoop() {
	defer close(s.readerDone)
	defer close(s.events)

	// Close nils out s.conn before joining the reader; keep our own handle.
	// The port itself is not closed until this goroutine exits.
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	buf := make([]byte, 256)
	var pending []byte

	for {
		select {
		case <-s.ctx.Done():
			s.emit(Event{Kind: Disconnected})
			return
		default:
		}

		s.ioMu.Lock()
		n, err := conn.Read(buf)
		s.ioMu.Unlock()

		if err != nil {
			// The device became unexpectedly unavailable.
			if s.ctx.Err() == nil {
				log.Printf("transport: read error: %v", err)
				s.emit(Event{Kind: IOError, Err: err})
			}
			s.emit(Event{Kind: Disconnected})
			return
		}
		if n == 0 {
			// Read timeout, loop to observe cancellation.
			continue
		}

		pending = append(pending, buf[:n]...)
		var lines []string
		lines, pending = splitLines(pending)
		for _, text := range lines {
			s.emit(Event{Kind: DataReceived, Line: Line{Text: text, At: time.Now()}})
		}
	}
}

// splitLines extracts complete trimmed lines from pending and returns the
// unterminated remainder. Blank lines are dropped.
func splitLines(pending []byte) ([]string, []byte) {
	var lines []string
	for {
		idx := bytes.IndexByte(pending, '\n')
		if idx < 0 {
			return lines, pending
		}
		text := strings.TrimSpace(string(pending[:idx]))
		pending = pending[idx+1:]
		if text != "" {
			lines = append(lines, text)
		}
	}
}

// emit forwards an event without blocking the reader. A full buffer drops
// the event with a log, matching sample-channel behavior elsewhere.
func (s *Serial) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Printf("transport: event buffer full, dropping %v event", ev.Kind)
	}
}

func drain(events chan Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
