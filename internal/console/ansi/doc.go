// Package ansi interprets the escape sequences in process output before the
// text reaches the output pump.
//
// An Interpreter is an io.Writer placed in front of a pump. Printable text
// (including line terminators, tabs and backspaces) is forwarded unchanged.
// Escape sequences are decoded with a small byte state machine and looked up
// in dispatch tables: one keyed by the CSI final byte, one keyed by the SGR
// parameter. Codes without an entry are ignored.
//
// Only the subset shells actually emit is acted on:
//
//	CSI n m   select graphic rendition (colors, bold, underline, reset)
//	CSI n G   cursor to column n of the current line
//	CSI 0 J   erase from the cursor to the end of the document
//	CSI 0 K   same as J; the console has no screen to erase within
//
// Every recognized command first commits the buffered output so the text
// written before it is rendered with the style that was in effect, and the
// cursor operation applies after that text. OSC strings are consumed; window
// titles (OSC 0 and 2) are reported through a callback.
package ansi
