package channel

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

// TCPSetup dials addr and applies the timeout to the first exchange.
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}
	return conn, nil
}

// DialTCP connects to a rig controller, retrying with exponential backoff
// while the controller is still coming up.
func DialTCP(addr string, timeout time.Duration) (*Stream, error) {
	var conn net.Conn
	op := func() error {
		c, err := TCPSetup(addr, timeout)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "refused") {
			return nil, fmt.Errorf("rig at %s refused connection: %w", addr, err)
		}
		return nil, fmt.Errorf("connection timeout to %s: %w", addr, err)
	}
	return NewStream(conn, timeout), nil
}

// OpenSerial opens an RS-232 link to a rig controller.
func OpenSerial(name string, baud int, timeout time.Duration) (*Stream, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return NewStream(port, 0), nil
}
