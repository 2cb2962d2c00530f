// Package report renders verification progress and results: plain progress
// lines on a console and a Markdown summary of a finished run.
package report

import (
	"fmt"
	"io"
	"sync"
)

// Console prints progress lines as a run advances, one line per call.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a Console writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Step prints a progress line
func (c *Console) Step(format string, args ...interface{}) {
	c.println(fmt.Sprintf(format, args...))
}

// Value prints "label: value". String slices print quoted.
func (c *Console) Value(label string, value interface{}) {
	switch v := value.(type) {
	case []string:
		c.println(fmt.Sprintf("%s: %q", label, v))
	default:
		c.println(fmt.Sprintf("%s: %v", label, v))
	}
}

// Warning prints a line prefixed with WARNING
func (c *Console) Warning(format string, args ...interface{}) {
	c.println("WARNING: " + fmt.Sprintf(format, args...))
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
