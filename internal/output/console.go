package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Console renders the dictation session on a terminal: a status line, an
// elapsed counter, a level meter, and a live transcript line that is
// overwritten in place as fragments arrive.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
	// width of the last overwritten line, so shorter updates clear the tail
	lastWidth int
}

// ConsoleConfig configures console rendering
type ConsoleConfig struct {
	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer
}

// NewConsole creates a console renderer
func NewConsole(config ConsoleConfig) *Console {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	return &Console{writer: writer}
}

// ShowState prints the recorder state on its own line
func (c *Console) ShowState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLineLocked()
	fmt.Fprintf(c.writer, "[%s]\n", state)
}

// ShowElapsed overwrites the status line with the elapsed recording time
func (c *Console) ShowElapsed(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overwriteLocked(fmt.Sprintf("recording %02d:%02d", seconds/60, seconds%60))
}

// ShowLevel overwrites the status line with a level meter: the bar tracks
// the RMS level, the tick marks the frame peak.
func (c *Console) ShowLevel(level, peak float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const width = 40
	meter := []byte(strings.Repeat(" ", width))

	barLength := int(level * width)
	if barLength > width {
		barLength = width
	}
	for i := 0; i < barLength; i++ {
		meter[i] = '='
	}

	if tick := int(peak * width); tick > 0 {
		if tick > width {
			tick = width
		}
		meter[tick-1] = '|'
	}

	c.overwriteLocked(fmt.Sprintf("level [%s]", meter))
}

// ShowLive overwrites the current line with the in-progress transcript.
// An empty string clears the line.
func (c *Console) ShowLive(live string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if live == "" {
		c.clearLineLocked()
		return
	}
	c.overwriteLocked("… " + live)
}

// ShowSettled commits settled transcript text on its own line
func (c *Console) ShowSettled(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLineLocked()
	fmt.Fprintf(c.writer, "%s\n", text)
}

// Info writes an informational message
func (c *Console) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLineLocked()
	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message to stderr
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg)
}

func (c *Console) overwriteLocked(line string) {
	pad := ""
	if n := c.lastWidth - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(c.writer, "\r%s%s", line, pad)
	c.lastWidth = len(line)
}

func (c *Console) clearLineLocked() {
	if c.lastWidth > 0 {
		fmt.Fprintf(c.writer, "\r%s\r", strings.Repeat(" ", c.lastWidth))
		c.lastWidth = 0
	}
}
