package view

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/console/capture"
	"github.com/dshills/termpane/internal/console/completion"
	"github.com/dshills/termpane/internal/console/document"
	"github.com/dshills/termpane/internal/console/style"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func row(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}

func TestDrawTextAndStatus(t *testing.T) {
	doc := document.NewFromString("hello\nworld", style.Default())
	v := New(doc, nil)
	v.SetStatus("sh")

	s := newScreen(t, 20, 4)
	v.Draw(s)

	want := []string{"hello", "world", "", "sh"}
	for y, line := range want {
		if got := row(s, y); got != line {
			t.Errorf("row %d = %q, want %q", y, got, line)
		}
	}
}

func TestDrawStyles(t *testing.T) {
	doc := document.New()
	red := style.Default().WithForeground(tcell.ColorRed).WithBold(true)
	_ = doc.Insert(0, "ab", style.Default())
	_ = doc.Insert(2, "cd", red)

	s := newScreen(t, 10, 2)
	New(doc, nil).Draw(s)

	_, _, st, _ := s.GetContent(2, 0)
	fg, _, attrs := st.Decompose()
	if fg != tcell.ColorRed {
		t.Errorf("fg = %v, want red", fg)
	}
	if attrs&tcell.AttrBold == 0 {
		t.Error("bold not set")
	}
	_, _, st, _ = s.GetContent(0, 0)
	if fg, _, _ := st.Decompose(); fg != tcell.ColorDefault {
		t.Errorf("plain fg = %v, want default", fg)
	}
}

func TestFollowCaret(t *testing.T) {
	var sb strings.Builder
	for i := range 10 {
		sb.WriteString(strings.Repeat("x", i))
		sb.WriteString("\n")
	}
	doc := document.NewFromString(sb.String(), style.Default())
	v := New(doc, nil)

	s := newScreen(t, 20, 4)
	v.Draw(s)

	// 11 lines, 3 text rows, caret on the last (empty) line.
	if v.Top() != 8 {
		t.Errorf("Top() = %d, want 8", v.Top())
	}
	if got := row(s, 0); got != "xxxxxxxx" {
		t.Errorf("row 0 = %q", got)
	}
}

func TestScrollBackStopsFollowing(t *testing.T) {
	doc := document.NewFromString(strings.Repeat("line\n", 10), style.Default())
	v := New(doc, nil)
	s := newScreen(t, 20, 4)
	v.Draw(s)

	v.Scroll(-5, 3)
	if v.Following() {
		t.Error("Following() = true after scrolling back")
	}
	top := v.Top()
	_ = doc.Insert(doc.Len(), "more\n", style.Default())
	doc.SetCaret(doc.Len())
	v.Draw(s)
	if v.Top() != top {
		t.Errorf("Top() = %d after output, want %d", v.Top(), top)
	}

	v.Scroll(100, 3)
	if !v.Following() {
		t.Error("Following() = false after scrolling to the caret")
	}
}

func TestScrollClamps(t *testing.T) {
	doc := document.NewFromString("a\nb\n", style.Default())
	v := New(doc, nil)
	v.Scroll(-10, 3)
	if v.Top() != 0 {
		t.Errorf("Top() = %d, want 0", v.Top())
	}
}

func TestWideAndTabs(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"abc", 3},
		{"\t", 8},
		{"ab\tc", 9},
		{"日本", 4},
		{"é", 1},
	}
	for _, tt := range tests {
		if got := cellWidth(tt.text); got != tt.want {
			t.Errorf("cellWidth(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestClipLongLine(t *testing.T) {
	doc := document.NewFromString(strings.Repeat("z", 30), style.Default())
	s := newScreen(t, 10, 2)
	New(doc, nil).Draw(s)
	if got := row(s, 0); got != strings.Repeat("z", 10) {
		t.Errorf("row 0 = %q", got)
	}
}

func TestDrawPopup(t *testing.T) {
	doc := document.NewFromString("> pri", style.Default())
	overlay := completion.New(doc)
	if err := overlay.PostAction(capture.Result{Text: "print\nprintln\n", InputLine: "> pri"}); err != nil {
		t.Fatalf("PostAction: %v", err)
	}
	overlay.Down()

	s := newScreen(t, 20, 6)
	New(doc, overlay).Draw(s)

	if got := row(s, 1); got != "      print" {
		t.Errorf("row 1 = %q", got)
	}
	if got := row(s, 2); got != "      println" {
		t.Errorf("row 2 = %q", got)
	}
	_, _, st, _ := s.GetContent(6, 2)
	_, bg, _ := st.Decompose()
	if bg != tcell.ColorBlue {
		t.Errorf("selected bg = %v, want blue", bg)
	}
}

func TestDrawPopupAboveWhenNoRoom(t *testing.T) {
	doc := document.NewFromString("\n\n> p", style.Default())
	overlay := completion.New(doc)
	_ = overlay.PostAction(capture.Result{Text: "pa pb", InputLine: "> p"})

	s := newScreen(t, 20, 4)
	New(doc, overlay).Draw(s)

	if got := row(s, 0); got != "    pa" {
		t.Errorf("row 0 = %q", got)
	}
	if got := row(s, 1); got != "    pb" {
		t.Errorf("row 1 = %q", got)
	}
}
