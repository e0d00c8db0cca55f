// Package console assembles an embedded console pane.
//
// A Console owns a styled document and everything needed to fill it from a
// program's output and to send keystrokes back:
//
//	process output -> ansi.Interpreter -> pump.Pump -> writer.Writer -> document
//	key events     -> input.Dispatcher -> completion.Overlay / process input
//
// Output may arrive on any goroutine. Every change to the document, the
// caret and the completion popup runs on the goroutine that drains the
// console's executor (see pump.Queue), which the host treats as its UI
// goroutine. Key events must be delivered on that goroutine as well.
//
// A Manager creates consoles, optionally attached to a freshly started
// process, and publishes lifecycle events.
package console
