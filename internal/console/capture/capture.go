// Package capture records console output between a request and the next
// input prompt, then hands the recorded text to a callback.
package capture

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/logging"
)

// Result is what a finished capture session recorded.
type Result struct {
	// Text is every line appended while capturing.
	Text string
	// InputLine is the prompt line that ended the session.
	InputLine string
}

// PostAction consumes a finished capture. A returned error is logged.
type PostAction func(Result) error

// Capturer is an on/off output recorder. It is safe for concurrent use: the
// output pump appends from the producer goroutine while sessions are started
// and ended on the UI goroutine.
type Capturer struct {
	mu         sync.Mutex
	active     bool
	buf        strings.Builder
	postAction PostAction
	last       Result
	logger     *log.Logger
}

// New creates an inactive capturer. A nil logger discards.
func New(logger *log.Logger) *Capturer {
	return &Capturer{logger: logging.WithComponent(logger, "capture")}
}

// Capture starts a session, replacing any session already in progress.
func (c *Capturer) Capture(postAction PostAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = true
	c.buf.Reset()
	c.postAction = postAction
}

// Active reports whether a session is in progress.
func (c *Capturer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Append records text. It does nothing while inactive.
func (c *Capturer) Append(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.buf.WriteString(text)
}

// EndWith finishes the session and runs the post-action exactly once with the
// recorded text and inputLine. It does nothing while inactive. Failures in
// the post-action are logged and never propagate.
func (c *Capturer) EndWith(inputLine string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	result := Result{Text: c.buf.String(), InputLine: inputLine}
	action := c.postAction
	c.active = false
	c.buf.Reset()
	c.postAction = nil
	c.last = result
	c.mu.Unlock()

	if action == nil {
		return
	}
	if err := runPostAction(action, result); err != nil {
		c.logger.Error("capture post-action failed", "err", err)
	}
}

// Discard ends the session without running the post-action.
func (c *Capturer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	c.buf.Reset()
	c.postAction = nil
}

// Last returns the result of the most recently finished session.
func (c *Capturer) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func runPostAction(action PostAction, result Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("post-action panic: %v", r)
		}
	}()
	return action(result)
}
