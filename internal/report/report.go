// Package report implements the line-oriented progress protocol the
// transform engine speaks on its error channel: "ATTR:" lines update
// job attributes, "STATE:" lines adjust printer-state-reasons, and
// "ERROR:"/"INFO:"/"DEBUG:" lines carry diagnostics. The parse helpers
// are the ones the invoking server uses to ingest the channel.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Verbosity levels for diagnostic lines.
const (
	Quiet = iota // errors only
	Info         // + INFO: lines
	Debug        // + DEBUG: lines
)

// Reporter writes protocol lines to the error channel. It is safe for
// use from a single goroutine; the engine is single threaded but the
// mutex keeps lines whole if a caller ever is not.
type Reporter struct {
	mu        sync.Mutex
	w         io.Writer
	verbosity int
}

// New returns a Reporter writing to w at the given verbosity.
func New(w io.Writer, verbosity int) *Reporter {
	return &Reporter{w: w, verbosity: verbosity}
}

func (r *Reporter) line(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.w, s+"\n")
}

// Attr reports a job attribute update, e.g.
// "ATTR: job-impressions-completed=4".
func (r *Reporter) Attr(name string, value any) {
	r.line(fmt.Sprintf("ATTR: %s=%v", name, value))
}

// State reports a printer-state-reasons delta. The delta is passed
// through verbatim: "+keyword" adds, "-keyword" removes, a bare
// keyword list replaces.
func (r *Reporter) State(delta string) {
	r.line("STATE: " + delta)
}

// Error reports a fatal diagnostic.
func (r *Reporter) Error(format string, args ...any) {
	r.line("ERROR: " + fmt.Sprintf(format, args...))
}

// Info reports a recoverable diagnostic, shown at -v and above.
func (r *Reporter) Info(format string, args ...any) {
	if r.verbosity >= Info {
		r.line("INFO: " + fmt.Sprintf(format, args...))
	}
}

// Debug reports a debug diagnostic, shown at -vv.
func (r *Reporter) Debug(format string, args ...any) {
	if r.verbosity >= Debug {
		r.line("DEBUG: " + fmt.Sprintf(format, args...))
	}
}

// StateOp says how a parsed STATE: message applies its keywords.
type StateOp int

const (
	StateSet    StateOp = iota // replace printer-state-reasons
	StateAdd                   // add keywords
	StateRemove                // remove keywords
)

// ParseStateMessage parses the payload of a "STATE:" line. Keyword
// severity suffixes (-error, -warning, -report) are stripped before
// matching, as the server does.
func ParseStateMessage(msg string) (StateOp, []string) {
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "STATE:"))
	op := StateSet
	switch {
	case strings.HasPrefix(msg, "+"):
		op = StateAdd
		msg = msg[1:]
	case strings.HasPrefix(msg, "-"):
		op = StateRemove
		msg = msg[1:]
	}
	var keywords []string
	for _, kw := range strings.Split(msg, ",") {
		kw = strings.TrimSpace(kw)
		kw = strings.TrimSuffix(kw, "-error")
		kw = strings.TrimSuffix(kw, "-warning")
		kw = strings.TrimSuffix(kw, "-report")
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return op, keywords
}

// ParseAttrMessage parses the payload of an "ATTR:" line into the
// attribute name and value.
func ParseAttrMessage(msg string) (name, value string, ok bool) {
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "ATTR:"))
	return strings.Cut(msg, "=")
}
