package sink

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
)

func TestOpenStdout(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "stdout" {
		t.Errorf("Name() = %q", s.Name())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on stdout sink = %v", err)
	}
}

func TestDialRejectsForeignSchemes(t *testing.T) {
	for _, uri := range []string{
		"ipp://example.com/ipp/print",
		"http://example.com:631",
		"file:///tmp/out.pcl",
		"socket://", // no host
	} {
		if _, err := Dial(uri); err == nil {
			t.Errorf("Dial(%q) succeeded", uri)
		}
	}
}

func TestDialSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		data, _ := io.ReadAll(conn)
		conn.Close()
		received <- data
	}()

	s, err := Dial("socket://" + ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("\033E\033*r1A")
	if n, err := s.Write(payload); err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := <-received; !bytes.Equal(got, payload) {
		t.Errorf("received %q, want %q", got, payload)
	}
}

// shortWriter accepts at most 3 bytes per call.
type shortWriter struct {
	buf bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return w.buf.Write(p)
}

func TestWriteLoopsOnShortWrites(t *testing.T) {
	var sw shortWriter
	s := &Writer{w: &sw, devName: "test"}
	payload := []byte(strings.Repeat("x", 20))
	n, err := s.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if sw.buf.Len() != len(payload) {
		t.Errorf("sink received %d bytes, want %d", sw.buf.Len(), len(payload))
	}
}
