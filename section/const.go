package section

// Shapefile (.shp / .shx) constants.
const (
	FileCode         = 9994      // FileCode is the big-endian magic at offset 0 of .shp and .shx files.
	FileVersion      = 1000      // FileVersion is the little-endian version at offset 28.
	FileHeaderSize   = 100       // FileHeaderSize is the fixed header size of .shp and .shx files.
	RecordHeaderSize = 8         // RecordHeaderSize is the record number and content length prefix.
	IndexEntrySize   = 8         // IndexEntrySize is the size of one .shx offset/length entry.
	MaxRecordCount   = 256000000 // MaxRecordCount is the sanity ceiling for the record count of a .shx file.
)

// Attribute table (.dbf) constants.
const (
	TableVersion        = 0x03 // TableVersion is the dBASE III version byte without memo.
	TableHeaderSize     = 32   // TableHeaderSize is the fixed table header size.
	FieldDescriptorSize = 32   // FieldDescriptorSize is the size of one field descriptor.
	HeaderTerminator    = 0x0d // HeaderTerminator follows the last field descriptor.
	FieldNameSize       = 11   // FieldNameSize is the NUL padded name slot of a field descriptor.
	FieldNameMaxLen     = 10   // FieldNameMaxLen is the number of significant name characters.
	DeletedFlagSize     = 1    // DeletedFlagSize is the row prefix holding the deletion marker.
)

// Quadtree (.idx) header constants.
const (
	TreeHeaderSize  = 32     // TreeHeaderSize is the fixed .idx header size.
	EndiannessMask  = 0x0002 // EndiannessMask selects bit 1 of the options: 0 little, 1 big.
	MagicNumberMask = 0xFFF0 // MagicNumberMask selects bits 4-15 of the options.
	MagicTreeV1Opt  = 0xEC10 // MagicTreeV1Opt identifies version 1 of the .idx format.
)

// MBR side-file constants.
const (
	MBREntrySize = 16 // MBREntrySize is four 32-bit values per shape.
)
