// Package document provides the styled text surface a console renders into.
//
// A Document is a sequence of runes, each carrying a style.Style, plus a
// caret. Offsets are rune offsets, not byte offsets, so that caret arithmetic
// done by the console writer matches what the user sees.
//
// The document package provides:
//
//   - Insert and Remove addressed by rune offset
//   - Line lookup in both directions (line to offset, offset to line/column)
//   - Styled runs per line for renderers
//   - A caret that is always kept inside [0, Len()]
//
// A Document is not safe for concurrent use. The console confines every
// document mutation to the UI goroutine.
package document
