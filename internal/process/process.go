package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/dshills/termpane/internal/logging"
)

// State represents the state of a process.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateExited
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Mode selects how the program's terminal is provided.
type Mode int

const (
	// ModePipe connects stdin, stdout and stderr to pipes.
	ModePipe Mode = iota
	// ModePTY runs the program on a pseudo-terminal.
	ModePTY
)

func (m Mode) String() string {
	if m == ModePTY {
		return "pty"
	}
	return "pipe"
}

// ParseMode parses "pipe" or "pty". The empty string means pipe.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "pipe":
		return ModePipe, nil
	case "pty":
		return ModePTY, nil
	}
	return ModePipe, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// CheckCharset reports whether name is a charset Options.Charset accepts.
func CheckCharset(name string) error {
	_, err := lookupCharset(name)
	return err
}

// Options configures a Process.
type Options struct {
	// Name is a human-readable name; defaults to the command.
	Name string

	// Command is the program to run. Args are its arguments.
	Command string
	Args    []string

	// Env is appended to the current environment.
	Env []string

	// Dir is the working directory.
	Dir string

	Mode Mode

	// Cols and Rows size the pseudo-terminal (default 80x24).
	Cols uint16
	Rows uint16

	// Charset names the program's character encoding ("" means UTF-8).
	Charset string

	Logger *log.Logger
}

// Process is a running program whose output is copied to a writer.
type Process struct {
	ID   string
	Name string
	Cmd  *exec.Cmd

	mode    Mode
	stdin   io.Writer
	closers []io.Closer
	tty     *os.File
	logger  *log.Logger

	started  time.Time
	state    atomic.Int32
	exitCode atomic.Int32

	mu      sync.RWMutex
	exitErr error

	copiers sync.WaitGroup
	done    chan struct{}
	closed  atomic.Bool
}

// Start launches the program and copies its output to out until it exits.
// Cancelling ctx kills the program.
func Start(ctx context.Context, out io.Writer, opts Options) (*Process, error) {
	if opts.Command == "" {
		return nil, ErrNoCommand
	}
	if opts.Name == "" {
		opts.Name = opts.Command
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	enc, err := lookupCharset(opts.Charset)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)

	p := &Process{
		ID:     uuid.NewString(),
		Name:   opts.Name,
		Cmd:    cmd,
		mode:   opts.Mode,
		logger: logging.WithComponent(opts.Logger, "process"),
		done:   make(chan struct{}),
	}
	p.exitCode.Store(-1)

	var outputs []io.Reader
	switch opts.Mode {
	case ModePTY:
		cmd.Env = append(cmd.Env, "TERM=xterm-256color")
		tty, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: opts.Cols, Rows: opts.Rows})
		if err != nil {
			return nil, fmt.Errorf("start %s on pty: %w", opts.Command, err)
		}
		p.tty = tty
		p.stdin = encodeWriter(tty, enc)
		p.closers = append(p.closers, tty)
		outputs = append(outputs, tty)
	default:
		newProcessGroup(cmd)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("stderr pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", opts.Command, err)
		}
		p.stdin = encodeWriter(stdin, enc)
		p.closers = append(p.closers, stdin)
		outputs = append(outputs, stdout, stderr)
	}

	p.started = time.Now()
	p.state.Store(int32(StateRunning))
	p.logger.Debug("started", "name", p.Name, "pid", cmd.Process.Pid, "mode", opts.Mode)

	// Both pipes feed one writer; serialize them so chunks do not interleave
	// inside a write.
	sink := &lockedWriter{w: out}
	for _, r := range outputs {
		p.copiers.Add(1)
		go p.copyOutput(decodeReader(r, enc), sink)
	}
	go p.waitLoop()

	return p, nil
}

// copyOutput forwards one output stream. After a write error the rest of the
// stream is drained and dropped so the program never blocks on a full pipe.
func (p *Process) copyOutput(r io.Reader, w io.Writer) {
	defer p.copiers.Done()

	buf := make([]byte, 4096)
	failed := false
	for {
		n, err := r.Read(buf)
		if n > 0 && !failed {
			if _, werr := w.Write(buf[:n]); werr != nil {
				p.logger.Debug("output dropped", "err", werr)
				failed = true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !p.closed.Load() {
				// Reading the pty master fails with EIO once the child is gone.
				p.logger.Debug("output stream ended", "err", err)
			}
			return
		}
	}
}

// waitLoop waits for the output streams to drain and the program to exit.
func (p *Process) waitLoop() {
	p.copiers.Wait()
	err := p.Cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()

	exitCode := 0
	state := StateExited
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				state = StateKilled
			}
		} else {
			exitCode = -1
		}
	}

	p.exitCode.Store(int32(exitCode))
	p.state.Store(int32(state))
	p.logger.Debug("exited", "name", p.Name, "code", exitCode, "state", state)
	close(p.done)
}

// Stdin returns the program's standard input.
func (p *Process) Stdin() io.Writer {
	return p.stdin
}

// Write sends data to the program's standard input.
func (p *Process) Write(data []byte) (int, error) {
	if p.HasExited() {
		return 0, ErrExited
	}
	return p.stdin.Write(data)
}

// Resize changes the pseudo-terminal size.
func (p *Process) Resize(cols, rows uint16) error {
	if p.tty == nil {
		return ErrNotPTY
	}
	return pty.Setsize(p.tty, &pty.Winsize{Cols: cols, Rows: rows})
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the exit code, or -1 while running.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// ExitError returns the error from waiting on the program, if any.
func (p *Process) ExitError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// Done is closed once the program has exited and its output is copied.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until Done and returns ExitError.
func (p *Process) Wait() error {
	<-p.done
	return p.ExitError()
}

// IsRunning reports whether the program is running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// HasExited reports whether the program has exited or been killed.
func (p *Process) HasExited() bool {
	s := p.State()
	return s == StateExited || s == StateKilled
}

// PID returns the process ID, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Runtime returns how long the program has been running.
func (p *Process) Runtime() time.Duration {
	if p.started.IsZero() {
		return 0
	}
	return time.Since(p.started)
}

// Signal sends sig to the program's process group.
func (p *Process) Signal(sig syscall.Signal) error {
	if !p.IsRunning() {
		return ErrNotStarted
	}
	return signalGroup(p.PID(), sig)
}

// Interrupt sends SIGINT.
func (p *Process) Interrupt() error {
	return p.Signal(syscall.SIGINT)
}

// Terminate sends SIGTERM.
func (p *Process) Terminate() error {
	return p.Signal(syscall.SIGTERM)
}

// Kill sends SIGKILL.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Close terminates the program, giving it grace to exit before killing it,
// and releases its input.
func (p *Process) Close(grace time.Duration) error {
	if p.closed.Swap(true) {
		return nil
	}

	err := p.CloseInput()
	if p.IsRunning() {
		_ = p.Terminate()
		select {
		case <-p.done:
		case <-time.After(grace):
			_ = p.Kill()
			<-p.done
		}
	}
	return err
}

// CloseInput closes the program's standard input. In PTY mode this also
// closes the terminal.
func (p *Process) CloseInput() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close process I/O: %w", errors.Join(errs...))
	}
	return nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}
