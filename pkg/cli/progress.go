package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ProgressReporter reports the outcome of a fixed number of named steps,
// such as loading each configured resource.
type ProgressReporter interface {
	Start(total int)
	Step(name string, detail string, err error)
	Finish() (failed int)
}

// StepProgress writes one line per step and a summary.
//
//	[1/3] ok      stopwords (1042 entries)
//	[2/3] FAILED  synonyms: no such table: synonyms
//	[3/3] ok      labels (12 entries)
//	3 resources checked in 41ms, 1 failed
type StepProgress struct {
	mu      sync.Mutex
	writer  io.Writer
	noun    string
	total   int
	done    int
	failed  int
	started time.Time
}

// NewProgressReporter creates a step reporter that writes to w, counting
// steps as noun in the summary. If w is nil, it defaults to os.Stdout.
func NewProgressReporter(w io.Writer, noun string) ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	if noun == "" {
		noun = "steps"
	}
	return &StepProgress{writer: w, noun: noun}
}

// Start resets the reporter for total steps.
func (p *StepProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = 0
	p.started = time.Now()
}

// Step records one finished step. detail is shown for successful steps.
func (p *StepProgress) Step(name, detail string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	prefix := fmt.Sprintf("[%d/%d]", p.done, p.total)
	switch {
	case err != nil:
		p.failed++
		fmt.Fprintf(p.writer, "%s FAILED  %s: %v\n", prefix, name, err)
	case detail != "":
		fmt.Fprintf(p.writer, "%s ok      %s (%s)\n", prefix, name, detail)
	default:
		fmt.Fprintf(p.writer, "%s ok      %s\n", prefix, name)
	}
}

// Finish writes the summary and returns the number of failed steps.
func (p *StepProgress) Finish() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.started).Round(time.Millisecond)
	if p.failed == 0 {
		fmt.Fprintf(p.writer, "%d %s checked in %s\n", p.done, p.noun, elapsed)
	} else {
		fmt.Fprintf(p.writer, "%d %s checked in %s, %d failed\n", p.done, p.noun, elapsed, p.failed)
	}
	return p.failed
}
