// Package luaparser highlights console output lines with a Lua script.
//
// The script defines a global function, parse_line by default, that receives
// one output line without its newline and returns either nil (write the line
// unchanged), a string (write that instead), or an array of segments:
//
//	function parse_line(line)
//	  if line:find("^error") then
//	    return { { text = line, fg = "red", bold = true } }
//	  end
//	end
//
// A segment is a table with a text field and optional fg, bg, bold and
// underline fields. Colors are palette names, "#rrggbb" or palette indexes.
// Segments without attributes use the writer's current style.
package luaparser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/console/writer"
	"github.com/dshills/termpane/internal/logging"
)

// DefaultFunction is the global the parser calls for each line.
const DefaultFunction = "parse_line"

// DefaultTimeout bounds a single parse_line call.
const DefaultTimeout = 100 * time.Millisecond

// Parser is a writer.LineParser backed by a Lua function. gopher-lua states
// are single-threaded; calls are serialized with a mutex.
type Parser struct {
	mu      sync.Mutex
	L       *lua.LState
	fn      string
	timeout time.Duration
	palette style.Palette
	logger  *log.Logger
	closed  bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithFunction sets the name of the Lua function to call.
func WithFunction(name string) Option {
	return func(p *Parser) {
		p.fn = name
	}
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) {
		p.timeout = d
	}
}

// WithPalette sets the palette color names resolve against.
func WithPalette(pal style.Palette) Option {
	return func(p *Parser) {
		p.palette = pal
	}
}

// WithLogger sets the logger script errors are reported to.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// New loads script and checks that it defines the parse function.
func New(script string, opts ...Option) (*Parser, error) {
	return load(func(L *lua.LState) error { return L.DoString(script) }, opts)
}

// NewFromFile loads the script at path.
func NewFromFile(path string, opts ...Option) (*Parser, error) {
	return load(func(L *lua.LState) error { return L.DoFile(path) }, opts)
}

func load(run func(*lua.LState) error, opts []Option) (*Parser, error) {
	p := &Parser{
		fn:      DefaultFunction,
		timeout: DefaultTimeout,
		palette: style.DefaultPalette(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	if err := doWithRecovery(func() error { return run(L) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("load line parser script: %w", err)
	}
	if L.GetGlobal(p.fn).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, p.fn)
	}
	p.L = L
	return p, nil
}

// openSafeLibraries opens the libraries a highlighting script needs and
// nothing that reaches the file system or the process.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// ParseLine implements writer.LineParser. Script errors are logged and the
// line is written unstyled.
func (p *Parser) ParseLine(line string) []writer.Segment {
	segs, err := p.Parse(line)
	if err != nil {
		p.logger.Warn("line parser failed", "err", err)
		return writer.PlainParser{}.ParseLine(line)
	}
	return segs
}

// Parse runs the script on line. The trailing newline, if any, is passed to
// the script stripped and appended to the last segment afterwards.
func (p *Parser) Parse(line string) ([]writer.Segment, error) {
	body, nl := line, ""
	if n := len(line); n > 0 && line[n-1] == '\n' {
		body, nl = line[:n-1], "\n"
	}

	ret, err := p.call(body)
	if err != nil {
		return nil, err
	}

	var segs []writer.Segment
	switch v := ret.(type) {
	case *lua.LNilType:
		segs = []writer.Segment{{Text: body}}
	case lua.LString:
		segs = []writer.Segment{{Text: string(v)}}
	case *lua.LTable:
		segs, err = p.segments(v)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s returned %s, want table, string or nil", p.fn, ret.Type())
	}

	if nl != "" {
		if len(segs) == 0 {
			segs = append(segs, writer.Segment{})
		}
		segs[len(segs)-1].Text += nl
	}
	return segs, nil
}

func (p *Parser) call(line string) (lua.LValue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.L.SetContext(ctx)
		defer p.L.RemoveContext()
	}

	err := doWithRecovery(func() error {
		return p.L.CallByParam(lua.P{
			Fn:      p.L.GetGlobal(p.fn),
			NRet:    1,
			Protect: true,
		}, lua.LString(line))
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", p.fn, err)
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)
	return ret, nil
}

func (p *Parser) segments(tbl *lua.LTable) ([]writer.Segment, error) {
	var segs []writer.Segment
	var err error
	tbl.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		var seg writer.Segment
		seg, err = p.segment(v)
		if err == nil {
			segs = append(segs, seg)
		}
	})
	return segs, err
}

func (p *Parser) segment(v lua.LValue) (writer.Segment, error) {
	switch v := v.(type) {
	case lua.LString:
		return writer.Segment{Text: string(v)}, nil
	case *lua.LTable:
		seg := writer.Segment{Text: lua.LVAsString(v.RawGetString("text"))}
		st := style.Default()
		styled := false

		for _, field := range []string{"fg", "bg"} {
			fv := v.RawGetString(field)
			if fv == lua.LNil {
				continue
			}
			c, err := p.color(fv)
			if err != nil {
				return writer.Segment{}, fmt.Errorf("segment %s: %w", field, err)
			}
			if field == "fg" {
				st = st.WithForeground(c)
			} else {
				st = st.WithBackground(c)
			}
			styled = true
		}
		if b := v.RawGetString("bold"); b != lua.LNil {
			st = st.WithBold(lua.LVAsBool(b))
			styled = true
		}
		if u := v.RawGetString("underline"); u != lua.LNil {
			st = st.WithUnderline(lua.LVAsBool(u))
			styled = true
		}
		if styled {
			seg.Style = &st
		}
		return seg, nil
	default:
		return writer.Segment{}, fmt.Errorf("segment is %s, want table or string", v.Type())
	}
}

func (p *Parser) color(v lua.LValue) (tcell.Color, error) {
	if n, ok := v.(lua.LNumber); ok {
		c, ok := p.palette.Color(int(n))
		if !ok {
			return c, fmt.Errorf("palette index %d out of range", int(n))
		}
		return c, nil
	}
	return style.ParseColor(lua.LVAsString(v), p.palette)
}

// Close releases the Lua state.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.L.Close()
	return nil
}
