package capture

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/termpane/internal/logging"
)

func TestCaptureAppendEndWith(t *testing.T) {
	c := New(nil)

	var calls int
	var got Result
	c.Capture(func(r Result) error {
		calls++
		got = r
		return nil
	})
	c.Append("a")
	c.Append("b")
	c.EndWith("x")

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if got.Text != "ab" || got.InputLine != "x" {
		t.Errorf("unexpected result %+v", got)
	}
	if c.Active() {
		t.Error("capturer should be inactive after EndWith")
	}
	if c.Last() != got {
		t.Errorf("Last() = %+v, expected %+v", c.Last(), got)
	}
}

func TestAppendAfterEndIsIgnored(t *testing.T) {
	c := New(nil)

	c.Capture(func(Result) error { return nil })
	c.Append("first")
	c.EndWith("p")

	c.Append("stray")

	var got Result
	c.Capture(func(r Result) error {
		got = r
		return nil
	})
	c.Append("second")
	c.EndWith("q")

	if got.Text != "second" {
		t.Errorf("expected 'second', got %q", got.Text)
	}
}

func TestEndWithWhileInactive(t *testing.T) {
	c := New(nil)
	c.EndWith("nothing")

	if c.Last() != (Result{}) {
		t.Errorf("expected empty last result, got %+v", c.Last())
	}
}

func TestEndWithRunsOnlyOnce(t *testing.T) {
	c := New(nil)
	calls := 0
	c.Capture(func(Result) error {
		calls++
		return nil
	})

	c.EndWith("a")
	c.EndWith("b")

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDiscard(t *testing.T) {
	c := New(nil)
	called := false
	c.Capture(func(Result) error {
		called = true
		return nil
	})
	c.Append("x")
	c.Discard()
	c.EndWith("p")

	if called {
		t.Error("post-action must not run after Discard")
	}
	if c.Active() {
		t.Error("capturer should be inactive after Discard")
	}
}

func TestCaptureSupersedesPreviousSession(t *testing.T) {
	c := New(nil)
	firstCalled := false
	c.Capture(func(Result) error {
		firstCalled = true
		return nil
	})
	c.Append("old")

	var got Result
	c.Capture(func(r Result) error {
		got = r
		return nil
	})
	c.Append("new")
	c.EndWith("p")

	if firstCalled {
		t.Error("superseded post-action should not run")
	}
	if got.Text != "new" {
		t.Errorf("expected 'new', got %q", got.Text)
	}
}

func TestPostActionErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	c := New(logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf}))

	c.Capture(func(Result) error { return errors.New("bad candidates") })
	c.EndWith("p")

	if !strings.Contains(buf.String(), "bad candidates") {
		t.Errorf("expected error to be logged, got %q", buf.String())
	}
	if c.Active() {
		t.Error("capturer should be inactive after a failing post-action")
	}
}

func TestPostActionPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	c := New(logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf}))

	c.Capture(func(Result) error { panic("kaboom") })
	c.EndWith("p")

	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
	if c.Active() {
		t.Error("capturer should be inactive after a panicking post-action")
	}
}

func TestConcurrentAppend(t *testing.T) {
	c := New(nil)
	var got Result
	c.Capture(func(r Result) error {
		got = r
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Append("x")
		}()
	}
	wg.Wait()
	c.EndWith("p")

	if len(got.Text) != 50 {
		t.Errorf("expected 50 appended bytes, got %d", len(got.Text))
	}
}
