// internal/source/source.go
package source

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/hometax-cli/internal/record"
	"go.uber.org/zap"
)

// DefaultHeaderRows is the number of title and header rows above the data in
// the standard wage statement workbook.
const DefaultHeaderRows = 6

// Outcome is the tri-state result of advancing the source.
type Outcome int

const (
	// Produced means Result.Record holds a valid record.
	Produced Outcome = iota
	// Invalid means the row failed local validation; Result.Err says why.
	Invalid
	// Exhausted means there are no more rows.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Produced:
		return "produced"
	case Invalid:
		return "invalid"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a single Next call yields.
type Result struct {
	Outcome Outcome
	Record  record.Record
	// Raw is the row exactly as read. Nil when Exhausted.
	Raw record.RawRow
	// Row is the 1-based sheet row the result came from.
	Row int
	// Err is the *record.ValidationError for Invalid results.
	Err error
}

// RowCursor is a forward-only iterator over sheet rows.
type RowCursor interface {
	Next() bool
	Row() (record.RawRow, error)
	Close() error
}

// Options control how rows are read.
type Options struct {
	// HeaderRows are skipped before the first data row.
	HeaderRows int
	// KeepBlank surfaces blank rows as Invalid instead of skipping them.
	KeepBlank bool
}

// Source lazily turns cursor rows into records, one per Next call.
type Source struct {
	cursor  RowCursor
	opts    Options
	logger  *zap.Logger
	row     int
	skipped bool
	last    record.RawRow
	done    bool
}

// New wraps an existing cursor.
func New(cursor RowCursor, opts Options, logger *zap.Logger) (*Source, error) {
	if cursor == nil {
		return nil, errors.New("source: row cursor cannot be nil")
	}
	if opts.HeaderRows < 0 {
		return nil, fmt.Errorf("source: header rows must not be negative, got %d", opts.HeaderRows)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		cursor: cursor,
		opts:   opts,
		logger: logger.Named("source"),
	}, nil
}

// Next advances to the next data row. The returned error is reserved for
// failures of the underlying cursor; a row that fails validation is reported
// through an Invalid result with a nil error.
func (s *Source) Next() (Result, error) {
	if s.done {
		return Result{Outcome: Exhausted}, nil
	}
	if !s.skipped {
		s.skipped = true
		for i := 0; i < s.opts.HeaderRows; i++ {
			if !s.cursor.Next() {
				return s.exhaust()
			}
			s.row++
			if _, err := s.cursor.Row(); err != nil {
				return Result{}, fmt.Errorf("source: reading header row %d: %w", s.row, err)
			}
		}
	}

	for {
		if !s.cursor.Next() {
			return s.exhaust()
		}
		s.row++
		raw, err := s.cursor.Row()
		if err != nil {
			return Result{}, fmt.Errorf("source: reading row %d: %w", s.row, err)
		}
		s.last = raw
		if !s.opts.KeepBlank && record.IsBlank(raw) {
			s.logger.Debug("Skipping blank row.", zap.Int("row", s.row))
			continue
		}

		rec, err := record.Parse(raw)
		if err != nil {
			s.logger.Debug("Row failed validation.", zap.Int("row", s.row), zap.Error(err))
			return Result{Outcome: Invalid, Raw: raw.Clone(), Row: s.row, Err: err}, nil
		}
		return Result{Outcome: Produced, Record: rec, Raw: raw.Clone(), Row: s.row}, nil
	}
}

func (s *Source) exhaust() (Result, error) {
	s.done = true
	s.last = nil
	return Result{Outcome: Exhausted}, nil
}

// Raw returns the most recently read row regardless of its validation outcome.
func (s *Source) Raw() record.RawRow {
	return s.last.Clone()
}

// Row returns the 1-based sheet row of the most recent read.
func (s *Source) Row() int {
	return s.row
}

// Close releases the cursor.
func (s *Source) Close() error {
	s.done = true
	return s.cursor.Close()
}
