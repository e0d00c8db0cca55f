package ansi

import (
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/console/writer"
	"github.com/dshills/termpane/internal/logging"
)

// Sink receives decoded text and commands. *pump.Pump implements it.
type Sink interface {
	WriteString(s string) (int, error)
	Commit(after func())
	Post(fn func(w *writer.Writer))
}

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateCSIParam
	stateCSIInter
	stateOSC
	stateString
)

// Interpreter decodes escape sequences from process output.
type Interpreter struct {
	mu     sync.Mutex
	sink   Sink
	state  *State
	logger *log.Logger

	parser parserState
	params []int
	inter  []byte
	osc    []byte
	utf8   []byte
	text   strings.Builder
	err    error

	onTitle func(string)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithTitleFunc sets the callback for OSC 0 and OSC 2 window titles. It runs
// on the writing goroutine.
func WithTitleFunc(fn func(title string)) Option {
	return func(in *Interpreter) {
		in.onTitle = fn
	}
}

// WithLogger sets the logger unknown sequences are reported to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(in *Interpreter) {
		in.logger = l
	}
}

// New creates an interpreter that forwards to sink and keeps its styles in state.
func New(sink Sink, state *State, opts ...Option) *Interpreter {
	in := &Interpreter{
		sink:   sink,
		state:  state,
		params: make([]int, 0, 16),
		inter:  make([]byte, 0, 4),
		osc:    make([]byte, 0, 64),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = logging.OrDiscard(in.logger)
	return in
}

// State returns the style state the interpreter mutates.
func (in *Interpreter) State() *State {
	return in.state
}

// Write decodes p. Text is handed to the sink before Write returns; an
// escape sequence split across calls is completed by the next call.
func (in *Interpreter) Write(p []byte) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.err = nil
	for _, b := range p {
		in.processByte(b)
		if in.err != nil {
			return 0, in.err
		}
	}
	in.emit()
	if in.err != nil {
		return 0, in.err
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (in *Interpreter) WriteString(s string) (int, error) {
	return in.Write([]byte(s))
}

// emit hands accumulated text to the sink.
func (in *Interpreter) emit() {
	if in.text.Len() == 0 {
		return
	}
	_, err := in.sink.WriteString(in.text.String())
	in.text.Reset()
	if err != nil {
		in.err = err
	}
}

func (in *Interpreter) processByte(b byte) {
	// ESC abandons an unfinished escape or control sequence and starts over.
	if b == 0x1B && in.parser >= stateEscape && in.parser <= stateCSIInter {
		in.startEscape()
		return
	}
	switch in.parser {
	case stateGround:
		in.processGround(b)
	case stateEscape:
		in.processEscape(b)
	case stateCSI:
		in.processCSI(b)
	case stateCSIParam:
		in.processCSIParam(b)
	case stateCSIInter:
		in.processCSIInter(b)
	case stateOSC:
		in.processOSC(b)
	case stateString:
		in.processString(b)
	}
}

func (in *Interpreter) processGround(b byte) {
	if len(in.utf8) > 0 && (b < 0x80 || b >= 0xC0) {
		// Truncated sequence.
		in.utf8 = in.utf8[:0]
		in.text.WriteRune(utf8.RuneError)
	}

	switch {
	case b == 0x1B:
		in.startEscape()
	case b == '\n', b == '\r', b == '\b', b == '\t':
		in.text.WriteByte(b)
	case b >= 0x20 && b < 0x7F:
		in.text.WriteByte(b)
	case b >= 0x80:
		in.processUTF8(b)
	default:
		// BEL and the remaining C0 controls.
	}
}

func (in *Interpreter) startEscape() {
	in.parser = stateEscape
	in.params = in.params[:0]
	in.inter = in.inter[:0]
}

func (in *Interpreter) processUTF8(b byte) {
	if len(in.utf8) == 0 && b < 0xC0 {
		in.text.WriteRune(utf8.RuneError)
		return
	}
	in.utf8 = append(in.utf8, b)
	if !utf8.FullRune(in.utf8) {
		return
	}
	r, _ := utf8.DecodeRune(in.utf8)
	in.utf8 = in.utf8[:0]
	in.text.WriteRune(r)
}

func (in *Interpreter) processEscape(b byte) {
	if len(in.inter) > 0 && (b < 0x20 || b > 0x2F) {
		in.parser = stateGround
		return
	}
	switch {
	case b == '[':
		in.parser = stateCSI
	case b == ']':
		in.parser = stateOSC
		in.osc = in.osc[:0]
	case b == 'P', b == 'X', b == '^', b == '_':
		// DCS, SOS, PM and APC strings run to ST.
		in.parser = stateString
	case b == '\\':
		in.parser = stateGround
	case b >= 0x20 && b <= 0x2F:
		// Charset designation and friends: one more byte follows.
		in.inter = append(in.inter, b)
	default:
		if b >= 0x30 && b <= 0x7E {
			in.logger.Debug("ignored escape sequence", "final", string(b))
		}
		in.parser = stateGround
	}
}

func (in *Interpreter) processCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		in.params = append(in.params, int(b-'0'))
		in.parser = stateCSIParam
	case b == ';':
		in.params = append(in.params, 0, 0)
		in.parser = stateCSIParam
	case b == '?', b == '>', b == '<', b == '=':
		in.inter = append(in.inter, b)
	case b >= 0x20 && b <= 0x2F:
		in.inter = append(in.inter, b)
		in.parser = stateCSIInter
	case b >= 0x40 && b <= 0x7E:
		in.dispatchCSI(b)
		in.parser = stateGround
	default:
		in.parser = stateGround
	}
}

func (in *Interpreter) processCSIParam(b byte) {
	switch {
	case b >= '0' && b <= '9':
		last := len(in.params) - 1
		if in.params[last] < 1<<16 {
			in.params[last] = in.params[last]*10 + int(b-'0')
		}
	case b == ';', b == ':':
		in.params = append(in.params, 0)
	case b >= 0x20 && b <= 0x2F:
		in.inter = append(in.inter, b)
		in.parser = stateCSIInter
	case b >= 0x40 && b <= 0x7E:
		in.dispatchCSI(b)
		in.parser = stateGround
	default:
		in.parser = stateGround
	}
}

func (in *Interpreter) processCSIInter(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		in.inter = append(in.inter, b)
	case b >= 0x40 && b <= 0x7E:
		// Sequences with intermediates are not part of the supported subset.
		in.parser = stateGround
	default:
		in.parser = stateGround
	}
}

func (in *Interpreter) processOSC(b byte) {
	switch b {
	case 0x07:
		in.dispatchOSC()
		in.parser = stateGround
	case 0x1B:
		in.dispatchOSC()
		in.parser = stateEscape
		in.params = in.params[:0]
		in.inter = in.inter[:0]
	default:
		if len(in.osc) < 4096 {
			in.osc = append(in.osc, b)
		}
	}
}

func (in *Interpreter) processString(b byte) {
	switch b {
	case 0x07:
		in.parser = stateGround
	case 0x1B:
		in.parser = stateEscape
		in.params = in.params[:0]
		in.inter = in.inter[:0]
	}
}

func (in *Interpreter) dispatchCSI(final byte) {
	if len(in.inter) > 0 {
		// Private modes (ESC [ ? 25 h and the like).
		return
	}
	h, ok := csiHandlers[final]
	if !ok {
		in.logger.Debug("ignored control sequence", "final", string(final), "params", formatParams(in.params))
		return
	}
	h(in, in.params)
}

func (in *Interpreter) dispatchOSC() {
	cmd, value, _ := strings.Cut(string(in.osc), ";")
	n, err := strconv.Atoi(cmd)
	if err != nil {
		return
	}
	switch n {
	case 0, 2:
		if in.onTitle != nil {
			in.onTitle(value)
		}
	}
}

// commit forwards the pending text and closes it off with a committing flush.
func (in *Interpreter) commit() {
	in.emit()
	if in.err != nil {
		return
	}
	in.sink.Commit(nil)
}

func param(params []int, index, defaultValue int) int {
	if index < len(params) && params[index] > 0 {
		return params[index]
	}
	return defaultValue
}

func formatParams(params []int) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ";")
}
