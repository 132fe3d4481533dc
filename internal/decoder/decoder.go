// Package decoder reads device logs into ordered streams of raw records.
package decoder

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/j-veylop/devicestats/internal/models"
)

const (
	fieldSep = ";"
	// valueSep re-joins a Value that was split by fieldSep. The Value grammar
	// never uses it at the top level of a repacked field.
	valueSep = ","

	maxLineSize = 4 * 1024 * 1024
)

// Stream is a lazy, single-use sequence of records from one device log.
type Stream struct {
	rc      io.ReadCloser
	err     error
	format  models.Format
	lines   int
	skipped int
	used    bool
}

// Open opens a device log from src and prepares it for decoding.
func Open(ctx context.Context, src Source, name string, format models.Format) (*Stream, error) {
	rc, err := OpenReader(ctx, src, name)
	if err != nil {
		return nil, err
	}
	return NewStream(rc, format), nil
}

// OpenReader opens a log from src and transparently decompresses it.
func OpenReader(ctx context.Context, src Source, name string) (io.ReadCloser, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	dc, err := decompress(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return dc, nil
}

// NewStream decodes records from an already opened reader.
func NewStream(rc io.ReadCloser, format models.Format) *Stream {
	return &Stream{rc: rc, format: format}
}

// Records yields the decoded records. It may only be ranged over once;
// a second call yields nothing.
func (s *Stream) Records() iter.Seq[models.Record] {
	return func(yield func(models.Record) bool) {
		if s.used {
			return
		}
		s.used = true
		if s.format == models.FormatLancs {
			s.readCSV(yield)
			return
		}
		s.readLines(yield)
	}
}

func (s *Stream) readLines(yield func(models.Record) bool) {
	scanner := bufio.NewScanner(s.rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		s.lines++
		line := strings.TrimRight(scanner.Text(), "\r")
		rec, ok := Repack(strings.Split(line, fieldSep))
		if !ok {
			s.skipped++
			continue
		}
		if !yield(rec) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.err = fmt.Errorf("failed to read log: %w", err)
	}
}

func (s *Stream) readCSV(yield func(models.Record) bool) {
	r := csv.NewReader(s.rc)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.lines++
				s.skipped++
				continue
			}
			s.err = fmt.Errorf("failed to read log: %w", err)
			return
		}
		s.lines++
		rec, ok := Repack(fields)
		if !ok {
			s.skipped++
			continue
		}
		if !yield(rec) {
			return
		}
	}
}

// Repack builds a record from split fields. Anything past the fourth separator
// belongs to the Value and is re-joined with a comma. Fewer than five fields
// is malformed.
func Repack(fields []string) (models.Record, bool) {
	if len(fields) < 5 {
		return models.Record{}, false
	}
	value := fields[4]
	if len(fields) > 5 {
		value = strings.Join(fields[4:], valueSep)
	}
	return models.Record{
		Entry:     fields[0],
		Num:       fields[1],
		Timestamp: fields[2],
		EntryType: fields[3],
		Value:     value,
	}, true
}

// Err returns the error that ended the stream early, if any.
func (s *Stream) Err() error {
	return s.err
}

// Lines returns the number of lines read so far.
func (s *Stream) Lines() int {
	return s.lines
}

// Skipped returns the number of malformed lines dropped so far.
func (s *Stream) Skipped() int {
	return s.skipped
}

// Close releases the underlying reader.
func (s *Stream) Close() error {
	return s.rc.Close()
}
