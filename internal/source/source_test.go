package source

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/hometax-cli/internal/record"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// sliceCursor is an in-memory RowCursor.
type sliceCursor struct {
	rows   []record.RawRow
	pos    int
	err    error
	errAt  int
	closed bool
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Row() (record.RawRow, error) {
	if c.err != nil && c.pos == c.errAt {
		return nil, c.err
	}
	return c.rows[c.pos-1], nil
}

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

func validRow(name, id string) record.RawRow {
	row := make(record.RawRow, record.Width)
	for i := range row {
		row[i] = "0"
	}
	row[record.ColName] = name
	row[record.ColPersonalID] = id
	row[record.ColStartDate] = "20240101"
	row[record.ColEndDate] = "20241231"
	row[record.ColSalary] = "30000000"
	return row
}

func TestNew(t *testing.T) {
	t.Run("should reject a nil cursor", func(t *testing.T) {
		_, err := New(nil, Options{}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("should reject a negative header offset", func(t *testing.T) {
		_, err := New(&sliceCursor{}, Options{HeaderRows: -1}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("should accept a nil logger", func(t *testing.T) {
		src, err := New(&sliceCursor{}, Options{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, src)
	})
}

func TestSourceNext(t *testing.T) {
	t.Run("should skip headers and yield records in order", func(t *testing.T) {
		cursor := &sliceCursor{rows: []record.RawRow{
			{"title"},
			{"성명", "주민등록번호"},
			validRow("김철수", "9001011234567"),
			validRow("John", "9001011234567"),
			validRow("이영희", "9501012234567"),
		}}
		src, err := New(cursor, Options{HeaderRows: 2}, zap.NewNop())
		require.NoError(t, err)

		res, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, Produced, res.Outcome)
		assert.Equal(t, "김철수", res.Record.Name)
		assert.Equal(t, 3, res.Row)

		res, err = src.Next()
		require.NoError(t, err)
		assert.Equal(t, Invalid, res.Outcome)
		assert.Equal(t, 4, res.Row)
		assert.Equal(t, "John", res.Raw.Cell(record.ColName))
		var verr *record.ValidationError
		require.ErrorAs(t, res.Err, &verr)
		assert.Equal(t, record.FieldName, verr.Field)
		assert.Equal(t, "John", src.Raw().Cell(record.ColName), "raw row is exposed regardless of outcome")

		res, err = src.Next()
		require.NoError(t, err)
		assert.Equal(t, Produced, res.Outcome)
		assert.Equal(t, "이영희", res.Record.Name)

		res, err = src.Next()
		require.NoError(t, err)
		assert.Equal(t, Exhausted, res.Outcome)
		assert.Nil(t, res.Raw)

		res, err = src.Next()
		require.NoError(t, err)
		assert.Equal(t, Exhausted, res.Outcome, "exhaustion is sticky")
	})

	t.Run("should be exhausted when only headers exist", func(t *testing.T) {
		src, err := New(&sliceCursor{rows: []record.RawRow{{"a"}}}, Options{HeaderRows: 6}, zap.NewNop())
		require.NoError(t, err)
		res, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, Exhausted, res.Outcome)
	})

	t.Run("should skip blank rows unless asked to keep them", func(t *testing.T) {
		rows := []record.RawRow{{"", " "}, validRow("김철수", "9001011234567"), {}}

		src, err := New(&sliceCursor{rows: rows}, Options{}, zap.NewNop())
		require.NoError(t, err)
		res, _ := src.Next()
		assert.Equal(t, Produced, res.Outcome)
		assert.Equal(t, 2, res.Row)
		res, _ = src.Next()
		assert.Equal(t, Exhausted, res.Outcome)

		src, err = New(&sliceCursor{rows: rows}, Options{KeepBlank: true}, zap.NewNop())
		require.NoError(t, err)
		res, _ = src.Next()
		assert.Equal(t, Invalid, res.Outcome)
		assert.Equal(t, 1, res.Row)
	})

	t.Run("should surface cursor failures as errors", func(t *testing.T) {
		boom := errors.New("corrupt row")
		cursor := &sliceCursor{rows: []record.RawRow{validRow("김철수", "9001011234567"), {"x"}}, err: boom, errAt: 2}
		src, err := New(cursor, Options{}, zap.NewNop())
		require.NoError(t, err)

		_, err = src.Next()
		require.NoError(t, err)
		_, err = src.Next()
		require.ErrorIs(t, err, boom)
	})

	t.Run("should return rows that do not alias the cursor", func(t *testing.T) {
		row := validRow("김철수", "9001011234567")
		src, err := New(&sliceCursor{rows: []record.RawRow{row}}, Options{}, zap.NewNop())
		require.NoError(t, err)
		res, _ := src.Next()
		res.Raw[0] = "changed"
		assert.Equal(t, "김철수", row[0])
	})

	t.Run("should close the cursor and stop producing", func(t *testing.T) {
		cursor := &sliceCursor{rows: []record.RawRow{validRow("김철수", "9001011234567")}}
		src, err := New(cursor, Options{}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, src.Close())
		assert.True(t, cursor.closed)
		res, _ := src.Next()
		assert.Equal(t, Exhausted, res.Outcome)
	})
}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpen(t *testing.T) {
	header := make([]interface{}, record.Width)
	for i, name := range record.Columns {
		header[i] = name
	}
	data := make([]interface{}, record.Width)
	for i := range data {
		data[i] = 0
	}
	data[record.ColName] = "김철수"
	data[record.ColPersonalID] = 9001011234567
	data[record.ColStartDate] = 20240101
	data[record.ColEndDate] = 20241231
	data[record.ColSalary] = 30000000

	rows := [][]interface{}{
		{"근로소득 지급명세서"}, {"-"}, {"-"}, {"-"}, {"-"}, header, data,
	}
	path := writeWorkbook(t, "2024", rows)

	t.Run("should read numeric cells as canonical strings", func(t *testing.T) {
		src, err := Open(path, "2024", Options{HeaderRows: DefaultHeaderRows}, zap.NewNop())
		require.NoError(t, err)
		defer src.Close()

		res, err := src.Next()
		require.NoError(t, err)
		require.Equal(t, Produced, res.Outcome, "err: %v", res.Err)
		assert.Equal(t, "9001011234567", res.Record.PersonalID)
		assert.Equal(t, "30000000", res.Record.Salary)
		assert.Equal(t, 7, res.Row)

		res, err = src.Next()
		require.NoError(t, err)
		assert.Equal(t, Exhausted, res.Outcome)
	})

	t.Run("should default to the first sheet", func(t *testing.T) {
		src, err := Open(path, "", Options{HeaderRows: DefaultHeaderRows}, zap.NewNop())
		require.NoError(t, err)
		defer src.Close()
		res, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, Produced, res.Outcome)
	})

	t.Run("should fail on an unknown sheet", func(t *testing.T) {
		_, err := Open(path, "missing", Options{}, zap.NewNop())
		require.ErrorIs(t, err, ErrSheetNotFound)
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"), "", Options{}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("should list sheet names", func(t *testing.T) {
		names, err := SheetNames(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024"}, names)
	})
}
