package section

import (
	"bytes"

	"github.com/arloliu/geoshape/errs"
)

// FieldDescriptor is one 32 byte field definition of a .dbf header.
//
// Layout:
//
//	0-10   name, NUL padded
//	11     native type character (C, N, F, D, L, ...)
//	16     width (low byte for C fields)
//	17     decimals (high width byte for C fields)
type FieldDescriptor struct {
	Name     string
	Type     byte
	Width    int
	Decimals int
}

// Parse parses the descriptor from the first 32 bytes of data.
func (d *FieldDescriptor) Parse(data []byte) error {
	if len(data) < FieldDescriptorSize {
		return errs.ErrInvalidHeaderSize
	}

	name := data[:FieldNameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	d.Name = string(bytes.TrimRight(name, " "))
	d.Type = data[11]

	if d.Type == 'N' || d.Type == 'F' {
		d.Width = int(data[16])
		d.Decimals = int(data[17])
	} else {
		d.Width = int(data[16]) + int(data[17])*256
		d.Decimals = 0
	}

	return nil
}

// Bytes serializes the descriptor into a 32 byte slice.
// Names longer than FieldNameMaxLen are truncated.
func (d *FieldDescriptor) Bytes() []byte {
	b := make([]byte, FieldDescriptorSize)

	name := d.Name
	if len(name) > FieldNameMaxLen {
		name = name[:FieldNameMaxLen]
	}
	copy(b, name)
	b[11] = d.Type

	if d.Type == 'C' {
		b[16] = byte(d.Width % 256)
		b[17] = byte(d.Width / 256)
	} else {
		b[16] = byte(d.Width)
		b[17] = byte(d.Decimals)
	}

	return b
}
