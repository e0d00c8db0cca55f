// Package input turns host key events into bytes for the console process.
//
// The host converts its native events into Event values and hands them to a
// Dispatcher. The dispatcher lets registered listeners and the completion
// popup see each event first, starts a completion capture when the
// completion key is pressed, and encodes everything else with an Encoder
// before writing it to the process's standard input.
package input
