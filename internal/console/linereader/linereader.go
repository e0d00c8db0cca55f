// Package linereader splits raw console output into complete lines.
//
// A line ends at '\n' or '\r'. The pairs "\r\n" and "\n\r" count as a single
// terminator. Every complete line is returned with exactly one trailing '\n';
// the unterminated remainder is returned separately and is never consumed.
package linereader

import "strings"

// Read splits buf into complete lines and the trailing partial line.
func Read(buf string) (lines []string, partial string) {
	start := 0
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c != '\n' && c != '\r' {
			continue
		}

		lines = append(lines, buf[start:i]+"\n")

		// Swallow the second half of a CRLF or LFCR pair.
		if i+1 < len(buf) && isPairedTerminator(c, buf[i+1]) {
			i++
		}
		start = i + 1
	}
	return lines, buf[start:]
}

func isPairedTerminator(first, second byte) bool {
	return (first == '\r' && second == '\n') || (first == '\n' && second == '\r')
}

// Reader accumulates streamed chunks and yields complete lines, keeping the
// partial line until it is terminated.
type Reader struct {
	pending strings.Builder
}

// Feed appends chunk and returns the lines it completed together with the
// current partial line. The partial line stays buffered.
func (r *Reader) Feed(chunk string) (lines []string, partial string) {
	r.pending.WriteString(chunk)
	lines, partial = Read(r.pending.String())
	r.pending.Reset()
	r.pending.WriteString(partial)
	return lines, partial
}

// Partial returns the buffered unterminated text.
func (r *Reader) Partial() string {
	return r.pending.String()
}

// Reset drops the buffered partial line.
func (r *Reader) Reset() {
	r.pending.Reset()
}
