// Package sink implements the engine's output byte sink: inherited
// standard output by default, or a raw-printing TCP socket opened from
// a socket:// device URI.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"time"
)

// connectTimeout bounds name resolution plus connection establishment.
const connectTimeout = 30 * time.Second

// defaultPort is the raw printing (AppSocket/JetDirect) port.
const defaultPort = "9100"

// Writer is the byte sink the encoders write through. Writes block
// until the consumer accepts the data; short writes are retried.
type Writer struct {
	w       io.Writer
	closer  io.Closer // nil for inherited stdout
	devName string
}

// Stdout returns a sink for the inherited standard output. Close is a
// no-op: the descriptor belongs to the parent.
func Stdout() *Writer {
	return &Writer{w: os.Stdout, devName: "stdout"}
}

// Dial opens a sink for a device URI. Only the socket:// scheme is
// supported; the port defaults to 9100. Resolution covers any address
// family the host answers on.
func Dial(deviceURI string) (*Writer, error) {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid device URI %q: %w", deviceURI, err)
	}
	if u.Scheme != "socket" {
		return nil, fmt.Errorf("unsupported device URI scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("device URI %q has no host", deviceURI)
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	addr := net.JoinHostPort(host, port)

	slog.Debug("sink connecting", "addr", addr)
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	slog.Debug("sink connected", "addr", addr)
	return &Writer{w: conn, closer: conn, devName: addr}, nil
}

// Open returns the sink selected by deviceURI, or stdout when it is
// empty.
func Open(deviceURI string) (*Writer, error) {
	if deviceURI == "" {
		return Stdout(), nil
	}
	return Dial(deviceURI)
}

// Write sends all of p, looping over short writes. Any write error is
// fatal for the job.
func (s *Writer) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.w.Write(p[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("write to %s: %w", s.devName, err)
		}
	}
	return total, nil
}

// Close releases the sink unless it is the inherited stdout.
func (s *Writer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Name identifies the sink for diagnostics.
func (s *Writer) Name() string { return s.devName }
