// Package section defines the fixed-size binary structures of the files making up a geoshape dataset.
//
// Every structure offers Parse (bytes to struct) and Bytes or AppendTo (struct to bytes), and
// applies the byte order its file format mandates regardless of the host byte order.
//
// # Dataset Files
//
//	name.shp  FileHeader (100 bytes) + records, each RecordHeader (8 bytes) + content
//	name.shx  FileHeader (100 bytes) + IndexEntry (8 bytes) per record
//	name.dbf  TableHeader (32 bytes) + FieldDescriptor (32 bytes) per field + 0x0d + rows
//	name.idx  TreeHeader (32 bytes) + quadtree payload
//	name.mbr  MBREntrySize (16 bytes) per shape, no header
//
// # Shapefile Header
//
//	Bytes  | Field       | Order  | Description
//	-------|-------------|--------|----------------------------------
//	0-3    | FileCode    | big    | 9994
//	24-27  | FileLength  | big    | total length in 16-bit words
//	28-31  | Version     | little | 1000
//	32-35  | ShapeType   | little | format.ShapeType code
//	36-99  | Bounds      | little | xmin ymin xmax ymax zmin zmax mmin mmax
//
// The .shx header is identical except that FileLength covers the index file, from which the
// record count is derived: (FileLength*2 - 100) / 8.
//
// # Quadtree Header
//
// The .idx header carries the magic number 0xEC10 in bits 4-15 of the options and an endianness
// bit, so index files are portable across hosts. Files written without it (the legacy layout)
// are recognized by the absence of the magic number.
package section
