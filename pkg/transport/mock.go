package transport

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Script decides how the mocked device answers a received command. It
// returns the lines the device writes back, in order. attempt is the
// 1-based count of times this exact command has been sent.
type Script func(command string, attempt int) []string

// Mock simulates a potentiostat connection for testing and development.
// Responses produced by the Script are delivered through the same event
// channel a real device would use.
type Mock struct {
	mu        sync.Mutex
	events    chan Event
	connected bool
	bufSize   int

	script   Script
	sent     []string
	attempts map[string]int
}

var _ Conn = (*Mock)(nil)

// NewMock creates a new mocked connection driven by the given script.
// A nil script confirms every command.
func NewMock(script Script) *Mock {
	if script == nil {
		script = func(string, int) []string { return []string{"START_CONFIRMED"} }
	}
	return &Mock{
		script:   script,
		bufSize:  DefaultBufferSize,
		attempts: make(map[string]int),
	}
}

// Connect simulates opening the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.connected = true
	m.events = make(chan Event, m.bufSize)
	m.pushEvent(Event{Kind: Connected})
	return nil
}

// Close stops the mocked device. Idempotent.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.connected = false
	m.pushEvent(Event{Kind: Disconnected})
	close(m.events)
	return nil
}

// SendLine records the command and queues the scripted response lines.
func (m *Mock) SendLine(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}

	cmd := strings.TrimSuffix(text, "\n")
	m.sent = append(m.sent, cmd)
	m.attempts[cmd]++

	for _, resp := range m.script(cmd, m.attempts[cmd]) {
		m.push(resp)
	}
	return nil
}

// FlushInput drops any undelivered lines, like resetting the OS buffer.
func (m *Mock) FlushInput() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	for {
		select {
		case <-m.events:
		default:
			return nil
		}
	}
}

// Events returns the event channel.
func (m *Mock) Events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

// IsConnected returns whether the mock is connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Feed injects device output lines outside of any command exchange, as a
// streaming device would during a run.
func (m *Mock) Feed(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return
	}
	for _, l := range lines {
		m.push(l)
	}
}

// Drop simulates an unexpected disconnect mid-run.
func (m *Mock) Drop(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return
	}
	m.connected = false
	m.pushEvent(Event{Kind: IOError, Err: err})
	m.pushEvent(Event{Kind: Disconnected})
	close(m.events)
}

// Sent returns all commands sent to the mock, oldest first.
func (m *Mock) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *Mock) pushEvent(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Mock) push(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	select {
	case m.events <- Event{Kind: DataReceived, Line: Line{Text: text, At: time.Now()}}:
	default:
	}
}
