package experiment

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saxstat/gopstat/pkg/technique"
	"github.com/saxstat/gopstat/pkg/transport"
)

const (
	maxAttempts         = 3
	defaultRetryBackoff = 500 * time.Millisecond
	// maxUnexpected bounds boot-time chatter tolerated per attempt before
	// the attempt is abandoned and retried.
	maxUnexpected = 5
)

// DeviceError is an explicit error line reported by the firmware. It is
// never retried.
type DeviceError struct {
	Line string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device reported error: %s", e.Line)
}

// NoConfirmationError means the device never acknowledged the start
// command within the bounded retries.
type NoConfirmationError struct {
	Attempts int
}

func (e *NoConfirmationError) Error() string {
	return fmt.Sprintf("no confirmation from device after %d attempts", e.Attempts)
}

// errAttemptFailed marks a retriable attempt: confirmation timeout or too
// many unexpected lines.
var errAttemptFailed = errors.New("no confirmation within timeout")

// handshake sends the start command and waits for the technique's
// confirmation marker, retrying with a constant backoff. The wire is a
// noisy half-duplex text stream: blank lines are ignored, a bounded number
// of unexpected lines is tolerated per attempt, and a line containing
// "Error" aborts immediately without retry.
func (e *Experiment) handshake(cmd string, spec technique.DecodeSpec) error {
	timeout := spec.ConfirmTimeout
	e.mu.RLock()
	if e.confirmTimeout > 0 {
		timeout = e.confirmTimeout
	}
	retryBackoff := e.retryBackoff
	e.mu.RUnlock()

	attempts := 0
	op := func() error {
		attempts++
		if attempts > 1 {
			log.Printf("experiment: retry %d/%d for %q", attempts, maxAttempts, cmd)
		}
		if err := e.conn.FlushInput(); err != nil {
			return backoff.Permanent(err)
		}
		if err := e.conn.SendLine(cmd); err != nil {
			return backoff.Permanent(err)
		}
		return e.awaitConfirm(spec.ConfirmMarker, timeout)
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryBackoff), maxAttempts-1)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, errAttemptFailed) {
			return &NoConfirmationError{Attempts: attempts}
		}
		return err
	}
	return nil
}

// awaitConfirm reads transport events until the confirmation marker, a
// device error line, the unexpected-line budget, or the timeout.
func (e *Experiment) awaitConfirm(marker string, timeout time.Duration) error {
	deadline := time.After(timeout)
	unexpected := 0

	for {
		select {
		case ev, ok := <-e.conn.Events():
			if !ok {
				return backoff.Permanent(transport.ErrNotConnected)
			}
			switch ev.Kind {
			case transport.DataReceived:
				line := ev.Line.Text
				if strings.Contains(line, "Error") {
					return backoff.Permanent(&DeviceError{Line: line})
				}
				if strings.Contains(line, marker) {
					return nil
				}
				unexpected++
				log.Printf("experiment: unexpected response: %s", line)
				if unexpected > maxUnexpected {
					return errAttemptFailed
				}
			case transport.Disconnected:
				return backoff.Permanent(transport.ErrNotConnected)
			}
		case <-deadline:
			return errAttemptFailed
		}
	}
}
