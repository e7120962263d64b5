// Package stream turns raw socket chunks into discrete framing events.
//
// A connection starts with an optional historical batch: comma-separated
// bar lines terminated by a configured delimiter token, possibly followed in
// the same payload by real-time lines. The decoder buffers partial input
// across chunk boundaries so that no byte is lost or duplicated however the
// peer fragments or coalesces its writes.
//
// Complete lines are emitted as soon as they arrive, even before a later
// chunk delivers the batch delimiter; the delimiter then emits whatever is
// still buffered as the HistoricalBatch. The session layer treats the
// delimiter as end-of-history and folds those earlier lines back into the
// preload, so the trained state is the same under any chunking.
package stream

import "strings"

// EventKind discriminates FrameEvent payloads.
type EventKind int

const (
	// EventHistoricalBatch carries everything that preceded the batch
	// delimiter, still unparsed.
	EventHistoricalBatch EventKind = iota
	// EventBarLine carries one complete line without its terminator.
	EventBarLine
)

// FrameEvent is one framing unit extracted from the byte stream.
type FrameEvent struct {
	Kind EventKind
	Text string
}

// Decoder accumulates raw chunks and extracts framing events. It owns no
// parsing; emitted text goes to the parser untouched so no byte is dropped
// or duplicated.
type Decoder struct {
	delimiter string
	buf       strings.Builder
}

// NewDecoder creates a decoder splitting historical batches on the given
// delimiter token.
func NewDecoder(delimiter string) *Decoder {
	if delimiter == "" {
		delimiter = "||"
	}
	return &Decoder{delimiter: delimiter}
}

// Feed appends a chunk and returns every event that became complete.
//
// Delimiter detection runs once per chunk, before line splitting: if the
// buffered data contains the delimiter, everything before its first
// occurrence becomes one HistoricalBatch and the remainder is rescanned as
// lines. A line containing the delimiter is never re-interpreted as
// historical once the per-line scan is underway. Trailing partial lines
// stay buffered until a later chunk completes them.
func (d *Decoder) Feed(chunk []byte) []FrameEvent {
	d.buf.Write(chunk)
	data := d.buf.String()

	var events []FrameEvent
	if i := strings.Index(data, d.delimiter); i >= 0 {
		events = append(events, FrameEvent{Kind: EventHistoricalBatch, Text: data[:i]})
		data = data[i+len(d.delimiter):]
	}

	for {
		nl := strings.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		line := strings.TrimSuffix(data[:nl], "\r")
		data = data[nl+1:]
		events = append(events, FrameEvent{Kind: EventBarLine, Text: line})
	}

	d.buf.Reset()
	d.buf.WriteString(data)
	return events
}

// Pending reports how many bytes are buffered waiting for completion.
func (d *Decoder) Pending() int { return d.buf.Len() }
