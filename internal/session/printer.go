package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Printer is a LineHandler writing headers and lines to a writer. It is safe
// for concurrent use; with PrefixJob set every line carries its job name so
// interleaved sessions stay readable.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	// PrefixJob prepends "[job] " to every line.
	PrefixJob bool
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

var (
	headerMarker = color.New(color.FgGreen)
	headerName   = color.New(color.FgBlue)
	jobPrefix    = color.New(color.FgCyan)
)

// StartPhase prints the phase header.
func (p *Printer) StartPhase(job string, phase Phase, container, pod string) {
	label := "Container"
	if phase == PhaseInit {
		label = "Init container"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := ""
	if p.PrefixJob {
		prefix = jobPrefix.Sprintf("[%s] ", job)
	}
	_, _ = fmt.Fprintf(p.w, "\n%s%s %s %s logs\n\n",
		prefix, headerMarker.Sprint("####"), label, headerName.Sprintf("'%s'", container))
}

// Line prints one log line.
func (p *Printer) Line(job string, _ Phase, line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.PrefixJob {
		_, err = fmt.Fprintf(p.w, "%s%s\n", jobPrefix.Sprintf("[%s] ", job), line)
	} else {
		_, err = fmt.Fprintln(p.w, line)
	}
	return err
}
