package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/console/pump"
	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/console/writer"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closingBuffer) Close() error {
	b.closed = true
	return nil
}

func write(t *testing.T, c *Console, s string) {
	t.Helper()
	if _, err := c.WriteString(s); err != nil {
		t.Fatalf("Write(%q): %v", s, err)
	}
	c.Queue().Drain()
}

func TestWriteRendersStyledOutput(t *testing.T) {
	c := New(Options{})
	write(t, c, "plain \x1b[31mred\x1b[0m\n$ ")

	doc := c.Document()
	if doc.Text() != "plain red\n$ " {
		t.Fatalf("text = %q", doc.Text())
	}
	st, _ := doc.StyleAt(6)
	if st.Foreground != tcell.ColorMaroon {
		t.Errorf("style at 6 = %+v, want maroon", st)
	}
	st, _ = doc.StyleAt(0)
	if !st.IsDefault() {
		t.Errorf("style at 0 = %+v, want default", st)
	}
	if !c.Pump().WaitingForInput() || c.Pump().CurrentLine() != "$ " {
		t.Errorf("waiting = %v line %q", c.Pump().WaitingForInput(), c.Pump().CurrentLine())
	}
}

func TestCursorColumnAndErase(t *testing.T) {
	c := New(Options{})
	write(t, c, "abcdef\x1b[3G\x1b[K")
	if c.Document().Text() != "ab" {
		t.Fatalf("text = %q, want ab", c.Document().Text())
	}
	write(t, c, "XY")
	if c.Document().Text() != "abXY" {
		t.Errorf("text = %q, want abXY", c.Document().Text())
	}
}

func TestPromptRedrawnInPlace(t *testing.T) {
	c := New(Options{})
	write(t, c, "$ l")
	write(t, c, "s\b\bls")
	if c.Document().Text() != "$ ls" {
		t.Errorf("text = %q, want %q", c.Document().Text(), "$ ls")
	}
}

func TestBackspaceAfterCommitRedrawnInPlace(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
		caret  int
	}{
		{"after erase", []string{"ab\x1b[K", "\b", "X"}, "aX", 2},
		{"after column move", []string{"$ abc\x1b[6G", "\b\b", "Z"}, "$ aZc", 4},
		{"after color", []string{"ab\x1b[31m", "\b", "\bcd"}, "cd", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{})
			for _, s := range tt.writes {
				write(t, c, s)
			}
			doc := c.Document()
			if doc.Text() != tt.want || doc.Caret() != tt.caret {
				t.Errorf("text = %q caret %d, want %q caret %d", doc.Text(), doc.Caret(), tt.want, tt.caret)
			}
		})
	}
}

func TestCompletionFlow(t *testing.T) {
	var in bytes.Buffer
	c := New(Options{Input: &in})
	write(t, c, "$ pri")

	if err := c.HandleKey(input.Pressed(input.KeyTab, input.ModNone)); err != nil {
		t.Fatalf("HandleKey(Tab): %v", err)
	}
	if in.String() != "\t" {
		t.Fatalf("input = %q, want tab", in.String())
	}

	write(t, c, "\nprintln print\n$ pri")
	if !c.Overlay().Visible() {
		t.Fatal("completion popup not shown")
	}
	if got := c.Overlay().Items(); len(got) != 2 || got[0] != "println" {
		t.Errorf("items = %v", got)
	}
	if c.Overlay().Anchor().Line != 2 {
		t.Errorf("anchor = %v, want line 2", c.Overlay().Anchor())
	}

	if err := c.HandleKey(input.Pressed(input.KeyEnter, input.ModNone)); err != nil {
		t.Fatalf("HandleKey(Enter): %v", err)
	}
	if in.String() != "\tntln" {
		t.Errorf("input = %q, want %q", in.String(), "\tntln")
	}
	if c.Overlay().Visible() {
		t.Error("popup still visible")
	}
}

func TestCompletionSingleCandidateIgnored(t *testing.T) {
	var in bytes.Buffer
	c := New(Options{Input: &in})
	write(t, c, "$ prin")
	c.HandleKey(input.Pressed(input.KeyTab, input.ModNone))
	write(t, c, "\nprintln\n$ prin")
	if c.Overlay().Visible() {
		t.Error("popup shown for a single candidate")
	}
}

func TestAttachReader(t *testing.T) {
	c := New(Options{})
	if err := c.Attach(strings.NewReader("hello\nworld")); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not finish")
	}
	c.Queue().Drain()
	if c.Document().Text() != "hello\nworld" {
		t.Errorf("text = %q", c.Document().Text())
	}
	if err := c.Attach(strings.NewReader("")); err == nil {
		t.Error("second Attach should fail")
	}
}

func TestKeyWithoutInput(t *testing.T) {
	c := New(Options{})
	if err := c.HandleKey(input.Typed('a', input.ModNone)); !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
	var in bytes.Buffer
	c.SetInput(&in)
	c.HandleKey(input.Typed('a', input.ModNone))
	if in.String() != "a" {
		t.Errorf("input = %q", in.String())
	}
}

func TestClose(t *testing.T) {
	in := &closingBuffer{}
	c := New(Options{Input: in})
	c.AddKeyListener(func(input.Event) bool { return false })
	closed := 0
	c.OnClose(func() { closed++ })

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	c.Close()

	if !in.closed {
		t.Error("input sink not closed")
	}
	if closed != 1 {
		t.Errorf("OnClose ran %d times, want 1", closed)
	}
	if !c.Closed() {
		t.Error("Closed() = false")
	}
	if err := c.HandleKey(input.Typed('a', input.ModNone)); !errors.Is(err, ErrClosed) {
		t.Errorf("HandleKey err = %v, want ErrClosed", err)
	}
	if _, err := c.WriteString("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Write err = %v, want ErrClosed", err)
	}
	c.Queue().Drain()
	if in.Len() != 0 {
		t.Errorf("input = %q", in.String())
	}
}

func TestTitle(t *testing.T) {
	var titles []string
	c := New(Options{OnTitle: func(s string) { titles = append(titles, s) }})
	write(t, c, "\x1b]0;build\x07ok\n")
	if c.Title() != "build" || len(titles) != 1 {
		t.Errorf("title = %q, callbacks %v", c.Title(), titles)
	}
	if c.Document().Text() != "ok\n" {
		t.Errorf("text = %q", c.Document().Text())
	}
}

func TestLineParserOption(t *testing.T) {
	bold := style.Default().WithBold(true)
	c := New(Options{LineParser: writer.LineParserFunc(func(line string) []writer.Segment {
		return []writer.Segment{{Text: line, Style: &bold}}
	})})
	write(t, c, "hi\n")
	st, _ := c.Document().StyleAt(0)
	if !st.Bold {
		t.Errorf("style = %+v, want bold", st)
	}
}

func TestCustomDefaults(t *testing.T) {
	palette := style.DefaultPalette()
	palette[1] = tcell.ColorOrangeRed
	base := style.Default().WithForeground(tcell.ColorSilver)
	c := New(Options{Style: base, Palette: &palette})

	write(t, c, "a\x1b[31mb\x1b[0mc")
	doc := c.Document()
	for i, want := range []tcell.Color{tcell.ColorSilver, tcell.ColorOrangeRed, tcell.ColorSilver} {
		st, _ := doc.StyleAt(i)
		if st.Foreground != want {
			t.Errorf("fg at %d = %v, want %v", i, st.Foreground, want)
		}
	}

	c.SetDefaults(style.Default(), style.DefaultPalette())
	write(t, c, "\x1b[31mx")
	st, _ := doc.StyleAt(3)
	if st.Foreground != tcell.ColorMaroon {
		t.Errorf("fg after SetDefaults = %v", st.Foreground)
	}
}

func TestSharedExecutor(t *testing.T) {
	q := pump.NewQueue(nil)
	c := New(Options{Executor: q})
	if c.Queue() != nil {
		t.Error("console created its own queue")
	}
	c.WriteString("x\n")
	q.Drain()
	if c.Document().Text() != "x\n" {
		t.Errorf("text = %q", c.Document().Text())
	}
}

func TestClear(t *testing.T) {
	c := New(Options{})
	write(t, c, "one\ntwo\n")
	c.Clear()
	c.Queue().Drain()
	if c.Document().Len() != 0 {
		t.Errorf("text = %q after Clear", c.Document().Text())
	}
}
