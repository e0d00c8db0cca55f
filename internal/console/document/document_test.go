package document

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/console/style"
)

func TestNewFromString(t *testing.T) {
	d := NewFromString("hello", style.Default())

	if d.Text() != "hello" {
		t.Errorf("expected 'hello', got '%s'", d.Text())
	}
	if d.Caret() != 5 {
		t.Errorf("expected caret at 5, got %d", d.Caret())
	}
}

func TestInsertAndRemove(t *testing.T) {
	d := NewFromString("Hello World", style.Default())

	if err := d.Insert(6, "Big ", style.Default()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d.Text() != "Hello Big World" {
		t.Errorf("after insert got '%s'", d.Text())
	}

	if err := d.Remove(0, 6); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if d.Text() != "Big World" {
		t.Errorf("after remove got '%s'", d.Text())
	}
}

func TestInsertOutOfRange(t *testing.T) {
	d := NewFromString("abc", style.Default())

	if err := d.Insert(4, "x", style.Default()); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if err := d.Insert(-1, "x", style.Default()); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestRemoveInvalidRange(t *testing.T) {
	d := NewFromString("abc", style.Default())

	if err := d.Remove(2, 5); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("expected ErrRangeInvalid, got %v", err)
	}
}

func TestRemoveClampsCaret(t *testing.T) {
	d := NewFromString("abcdef", style.Default())

	if err := d.Remove(2, 4); err != nil {
		t.Fatal(err)
	}
	if d.Caret() != 2 {
		t.Errorf("expected caret clamped to 2, got %d", d.Caret())
	}
}

func TestSetCaretClamps(t *testing.T) {
	d := NewFromString("abc", style.Default())

	d.SetCaret(-3)
	if d.Caret() != 0 {
		t.Errorf("expected 0, got %d", d.Caret())
	}
	d.SetCaret(99)
	if d.Caret() != 3 {
		t.Errorf("expected 3, got %d", d.Caret())
	}
}

func TestUnicodeOffsets(t *testing.T) {
	d := NewFromString("héllo", style.Default())

	if d.Len() != 5 {
		t.Errorf("expected 5 runes, got %d", d.Len())
	}
	text, err := d.TextRange(1, 2)
	if err != nil || text != "é" {
		t.Errorf("TextRange(1,2) = %q, %v", text, err)
	}
}

func TestLineLookup(t *testing.T) {
	d := NewFromString("one\ntwo\nthree", style.Default())

	if d.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", d.LineCount())
	}

	tests := []struct {
		line  int
		start int
		end   int
		text  string
	}{
		{0, 0, 3, "one"},
		{1, 4, 7, "two"},
		{2, 8, 13, "three"},
	}

	for _, tt := range tests {
		start, err := d.LineStartOffset(tt.line)
		if err != nil || start != tt.start {
			t.Errorf("LineStartOffset(%d) = %d, %v; expected %d", tt.line, start, err, tt.start)
		}
		end, err := d.LineEndOffset(tt.line)
		if err != nil || end != tt.end {
			t.Errorf("LineEndOffset(%d) = %d, %v; expected %d", tt.line, end, err, tt.end)
		}
		text, _ := d.LineText(tt.line)
		if text != tt.text {
			t.Errorf("LineText(%d) = %q, expected %q", tt.line, text, tt.text)
		}
	}

	if _, err := d.LineStartOffset(3); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("expected ErrLineOutOfRange, got %v", err)
	}
}

// checkLines compares the line lookups against a scan of the text.
func checkLines(t *testing.T, d *Document) {
	t.Helper()
	text := []rune(d.Text())
	starts := []int{0}
	for i, r := range text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	if d.LineCount() != len(starts) {
		t.Fatalf("text %q: LineCount() = %d, expected %d", d.Text(), d.LineCount(), len(starts))
	}
	for line, want := range starts {
		if got, err := d.LineStartOffset(line); err != nil || got != want {
			t.Errorf("text %q: LineStartOffset(%d) = %d, %v; expected %d", d.Text(), line, got, err, want)
		}
	}
	line := 0
	for off := 0; off <= len(text); off++ {
		if line+1 < len(starts) && off >= starts[line+1] {
			line++
		}
		if got, err := d.LineOfOffset(off); err != nil || got != line {
			t.Errorf("text %q: LineOfOffset(%d) = %d, %v; expected %d", d.Text(), off, got, err, line)
		}
	}
}

func TestLineIndexFollowsEdits(t *testing.T) {
	d := NewFromString("one\ntwo\nthree", style.Default())
	checkLines(t, d)

	steps := []struct {
		name string
		edit func() error
	}{
		{"insert before newline", func() error { return d.Insert(3, "X\nY", style.Default()) }},
		{"insert at start", func() error { return d.Insert(0, "\n\n", style.Default()) }},
		{"insert at end", func() error { return d.Insert(d.Len(), "\ntail", style.Default()) }},
		{"remove spanning newlines", func() error { return d.Remove(4, 6) }},
		{"remove single newline", func() error { return d.Remove(0, 1) }},
		{"remove up to newline", func() error { return d.Remove(1, 2) }},
		{"remove everything", func() error { return d.Remove(0, d.Len()) }},
		{"insert into empty", func() error { return d.Insert(0, "a\nb\n", style.Default()) }},
	}
	for _, st := range steps {
		if err := st.edit(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		checkLines(t, d)
	}

	d.Clear()
	checkLines(t, d)
	if d.LineCount() != 1 {
		t.Errorf("LineCount() after Clear = %d, expected 1", d.LineCount())
	}
}

func TestIndexNewlineAfterEdits(t *testing.T) {
	d := NewFromString("ab\ncd", style.Default())
	if err := d.Insert(0, "\n", style.Default()); err != nil {
		t.Fatal(err)
	}
	if got := d.IndexNewline(1); got != 3 {
		t.Errorf("IndexNewline(1) = %d, expected 3", got)
	}
	if err := d.Remove(3, 1); err != nil {
		t.Fatal(err)
	}
	if got := d.IndexNewline(1); got != -1 {
		t.Errorf("IndexNewline(1) = %d, expected -1", got)
	}
	if end, _ := d.LineEndOffset(1); end != d.Len() {
		t.Errorf("LineEndOffset(1) = %d, expected %d", end, d.Len())
	}
}

func TestOffsetToPoint(t *testing.T) {
	d := NewFromString("ab\ncde\n", style.Default())

	tests := []struct {
		offset int
		want   Point
	}{
		{0, Point{0, 0}},
		{2, Point{0, 2}},
		{3, Point{1, 0}},
		{5, Point{1, 2}},
		{7, Point{2, 0}},
	}

	for _, tt := range tests {
		got, err := d.OffsetToPoint(tt.offset)
		if err != nil {
			t.Fatalf("OffsetToPoint(%d): %v", tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("OffsetToPoint(%d) = %v, expected %v", tt.offset, got, tt.want)
		}
	}
}

func TestPointToOffsetClampsColumn(t *testing.T) {
	d := NewFromString("ab\ncde", style.Default())

	off, err := d.PointToOffset(Point{Line: 0, Column: 10})
	if err != nil || off != 2 {
		t.Errorf("PointToOffset = %d, %v; expected 2", off, err)
	}
	off, err = d.PointToOffset(Point{Line: 1, Column: 1})
	if err != nil || off != 4 {
		t.Errorf("PointToOffset = %d, %v; expected 4", off, err)
	}
}

func TestRuns(t *testing.T) {
	red := style.Default().WithForeground(tcell.ColorMaroon)
	d := New()
	_ = d.Insert(0, "plain", style.Default())
	_ = d.Insert(5, "red", red)
	_ = d.Insert(8, "\nnext", style.Default())

	runs, err := d.Runs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Text != "plain" || !runs[0].Style.IsDefault() {
		t.Errorf("unexpected first run %+v", runs[0])
	}
	if runs[1].Text != "red" || runs[1].Style != red {
		t.Errorf("unexpected second run %+v", runs[1])
	}

	runs, _ = d.Runs(1)
	if len(runs) != 1 || runs[0].Text != "next" {
		t.Errorf("unexpected runs on line 1: %+v", runs)
	}
}

func TestIndexNewline(t *testing.T) {
	d := NewFromString("a\nb\n", style.Default())

	if got := d.IndexNewline(0); got != 1 {
		t.Errorf("IndexNewline(0) = %d", got)
	}
	if got := d.IndexNewline(2); got != 3 {
		t.Errorf("IndexNewline(2) = %d", got)
	}
	if got := d.IndexNewline(4); got != -1 {
		t.Errorf("IndexNewline(4) = %d", got)
	}
}
