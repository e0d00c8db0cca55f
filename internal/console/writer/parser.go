package writer

import "github.com/dshills/termpane/internal/console/style"

// Segment is a piece of an output line. A nil Style means the writer's
// current style applies.
type Segment struct {
	Text  string
	Style *style.Style
}

// LineParser splits a complete output line (without its newline) into
// styled segments. Implementations customize highlighting per line.
type LineParser interface {
	ParseLine(line string) []Segment
}

// LineParserFunc adapts a function to LineParser.
type LineParserFunc func(line string) []Segment

// ParseLine calls f(line).
func (f LineParserFunc) ParseLine(line string) []Segment {
	return f(line)
}

// PlainParser returns the whole line as one unstyled segment.
type PlainParser struct{}

// ParseLine implements LineParser.
func (PlainParser) ParseLine(line string) []Segment {
	return []Segment{{Text: line}}
}
