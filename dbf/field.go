package dbf

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/section"
)

// Field describes one column of a table.
type Field struct {
	Name     string
	Native   byte // native type character: C, N, F, D, L, ...
	Width    int
	Decimals int
	offset   int
}

// Type maps the native type to the three logical kinds. N, F and D fields with decimals
// are doubles, the same fields without decimals are integers, anything else is a string.
func (f Field) Type() format.FieldType {
	switch f.Native {
	case 'N', 'F', 'D':
		if f.Decimals > 0 {
			return format.FieldDouble
		}

		return format.FieldInteger
	default:
		return format.FieldString
	}
}

// Offset returns the byte offset of the field inside a row, deletion flag included.
func (f Field) Offset() int {
	return f.offset
}

func (f Field) isNumeric() bool {
	return f.Native == 'N' || f.Native == 'F' || f.Native == 'D'
}

func (f Field) descriptor() section.FieldDescriptor {
	return section.FieldDescriptor{
		Name:     f.Name,
		Type:     f.Native,
		Width:    f.Width,
		Decimals: f.Decimals,
	}
}

func fieldFromDescriptor(d section.FieldDescriptor, offset int) Field {
	return Field{
		Name:     d.Name,
		Native:   d.Type,
		Width:    d.Width,
		Decimals: d.Decimals,
		offset:   offset,
	}
}

// nullFill returns the byte repeated over a field to mark it NULL.
// dateWidth is the width of a YYYYMMDD date value.
const dateWidth = 8

func nullFill(native byte) byte {
	switch native {
	case 'N', 'F':
		return '*'
	case 'D':
		return '0'
	case 'L':
		return '?'
	default:
		return 0
	}
}

// isNullValue reports whether raw holds the NULL marker of a field of type native.
// Strings are NULL when empty after cutting at the first NUL and trimming blanks.
func isNullValue(native byte, raw []byte) bool {
	switch native {
	case 'N', 'F':
		return len(raw) > 0 && raw[0] == '*'
	case 'D':
		// "00000000", or a zero run of the whole width when the field is narrower
		n := min(len(raw), dateWidth)
		return n > 0 && bytes.Count(raw[:n], []byte{'0'}) == n
	case 'L':
		return len(raw) > 0 && raw[0] == '?'
	default:
		return len(bytes.TrimSpace(cutNUL(raw))) == 0
	}
}

func cutNUL(raw []byte) []byte {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return raw[:i]
	}

	return raw
}

// formatFloat renders v for a numeric field, right aligned and cut to the width.
//
// Wide integer N fields go through the float formatter so values beyond the int range
// survive; narrower fields without decimals truncate toward zero.
func formatFloat(f Field, v float64) []byte {
	var s string
	switch {
	case f.Decimals == 0 && f.Native == 'N' && f.Width >= 10:
		s = strconv.FormatFloat(v, 'f', 0, 64)
	case f.Decimals == 0:
		s = strconv.FormatInt(truncInt(v), 10)
	default:
		s = strconv.FormatFloat(v, 'f', f.Decimals, 64)
	}

	return fitRight(s, f.Width)
}

func formatInt(f Field, v int64) []byte {
	if f.Decimals == 0 {
		return fitRight(strconv.FormatInt(v, 10), f.Width)
	}

	return formatFloat(f, float64(v))
}

func truncInt(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

// fitRight pads s with leading blanks to width and keeps the first width bytes of longer text.
func fitRight(s string, width int) []byte {
	if len(s) >= width {
		return []byte(s[:width])
	}

	b := bytes.Repeat([]byte{' '}, width-len(s))

	return append(b, s...)
}

// fitLeft copies b into a blank field of the given width, cutting longer input.
func fitLeft(b []byte, width int) []byte {
	out := bytes.Repeat([]byte{' '}, width)
	copy(out, b)

	return out
}

// parseInt reads the leading integer of raw. Blank, NULL or malformed text yields 0,
// and a fractional value is truncated.
func parseInt(raw []byte) int64 {
	s := strings.TrimSpace(string(cutNUL(raw)))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}

	return truncInt(parseFloat(raw))
}

// parseFloat reads the leading number of raw. Malformed text yields 0.
func parseFloat(raw []byte) float64 {
	s := strings.TrimSpace(string(cutNUL(raw)))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	// fall back to the longest numeric prefix, as C's atof would
	end := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || ((c == '-' || c == '+') && i == 0) || c == 'e' || c == 'E' {
			end = i + 1
			continue
		}

		break
	}
	for ; end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
	}

	return 0
}
