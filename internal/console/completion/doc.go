// Package completion shows shell completion candidates in a popup below the
// console caret.
//
// The console asks the shell for completions by sending the completion key
// and capturing the output that follows until the next prompt. PostAction
// turns the captured text into candidates and shows the overlay; confirming
// a candidate sends only the part of it the user has not typed yet.
//
// An Overlay belongs to the UI goroutine and is not safe for concurrent use.
package completion
