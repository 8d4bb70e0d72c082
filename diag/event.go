package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/op/go-logging"
)

// Severity of a diagnostic event.
type Severity int

const (
	Info Severity = iota
	Notice
	Warning
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Event is a non-fatal message produced while computing diagnostics.
// Presentation is left to the Reporter.
type Event struct {
	Severity Severity
	Message  string
	Context  map[string]interface{}
}

// Reporter consumes diagnostic events.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

// Collector keeps events in memory, mostly for tests.
type Collector struct {
	Events []Event
}

// Report appends e.
func (c *Collector) Report(e Event) {
	c.Events = append(c.Events, e)
}

// Count returns the number of events with severity s.
func (c *Collector) Count(s Severity) (n int) {
	for _, e := range c.Events {
		if e.Severity == s {
			n++
		}
	}
	return
}

// LogReporter writes events to a go-logging logger.
type LogReporter struct {
	Log *logging.Logger
}

// NewLogReporter creates a LogReporter for the named module.
func NewLogReporter(module string) *LogReporter {
	return &LogReporter{Log: logging.MustGetLogger(module)}
}

// Report logs e at the matching level.
func (r *LogReporter) Report(e Event) {
	msg := e.Message + formatContext(e.Context)
	switch e.Severity {
	case Warning:
		r.Log.Warning(msg)
	case Notice:
		r.Log.Notice(msg)
	default:
		r.Log.Info(msg)
	}
}

// formatContext renders context as sorted key=value pairs.
func formatContext(ctx map[string]interface{}) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(" [")
	for i, k := range keys {
		if i != 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", k, ctx[k])
	}
	b.WriteString("]")
	return b.String()
}
