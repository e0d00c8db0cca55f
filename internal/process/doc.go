// Package process runs the program a console is attached to.
//
// A Process copies the program's output into an io.Writer (normally a
// console) and exposes its standard input for keystrokes. In pipe mode
// stdout and stderr are separate pipes merged into the same writer; in PTY
// mode the program gets a pseudo-terminal and can be resized.
//
// Output in a legacy charset can be decoded to UTF-8 on the way in, and
// input encoded back, by naming the charset in Options.
package process
