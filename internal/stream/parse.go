package stream

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/pkg/util"
)

// ErrEmptyLine marks a blank line; the session skips it without a response.
var ErrEmptyLine = fmt.Errorf("empty line")

// ParseBarLine parses one real-time record. Accepted shapes:
//
//	open,high,low,close,volume            (5 fields, timestamp synthesized)
//	timestamp,open,high,low,close,volume  (6 fields)
//
// now supplies the synthesized timestamp for 5-field records. Wrong arity or
// a non-numeric field yields a ParseError; an OHLC invariant violation
// yields a ValidationError. Either way the line is dropped, never stored.
func ParseBarLine(line string, now time.Time) (models.Bar, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.Bar{}, ErrEmptyLine
	}

	parts := strings.Split(line, ",")
	var bar models.Bar
	var fields []string

	switch len(parts) {
	case 5:
		bar.Timestamp = now
		fields = parts
	case 6:
		ts, ok := util.ParseTime(strings.TrimSpace(parts[0]))
		if !ok {
			return models.Bar{}, &models.ParseError{Line: line, Reason: "bad timestamp"}
		}
		bar.Timestamp = ts
		fields = parts[1:]
	default:
		return models.Bar{}, &models.ParseError{Line: line, Reason: fmt.Sprintf("expected 5 or 6 fields, got %d", len(parts))}
	}

	vals := make([]float64, 5)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return models.Bar{}, &models.ParseError{Line: line, Reason: "non-numeric field"}
		}
		vals[i] = v
	}
	bar.Open, bar.High, bar.Low, bar.Close, bar.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]

	if err := bar.Validate(); err != nil {
		return models.Bar{}, err
	}
	return bar, nil
}

// ParseBatch parses a historical batch blob: newline-separated 6-field
// records. Malformed lines are dropped and counted. At least one valid line
// is required or the whole batch fails with MalformedBatchError.
func ParseBatch(text string, now time.Time) ([]models.Bar, int, error) {
	lines := strings.Split(text, "\n")
	bars := make([]models.Bar, 0, len(lines))
	total, malformed := 0, 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		total++
		if len(strings.Split(line, ",")) != 6 {
			malformed++
			continue
		}
		bar, err := ParseBarLine(line, now)
		if err != nil {
			malformed++
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, malformed, &models.MalformedBatchError{Lines: total, Malformed: malformed}
	}
	return bars, malformed, nil
}
