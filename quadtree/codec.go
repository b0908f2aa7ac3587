package quadtree

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/geoshape/compress"
	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/hash"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/internal/pool"
	"github.com/arloliu/geoshape/section"
)

const (
	// nodeFixedSize is the bounds plus the id count of one serialized node.
	nodeFixedSize = 8*8 + 4
	// maxChildren bounds the child count a serialized node may declare.
	maxChildren = 4
	// maxDecodeLevel stops runaway recursion on corrupt input.
	maxDecodeLevel = 256
)

// Encode writes the tree in the .idx layout: a 32 byte section.TreeHeader followed by the
// node payload, compressed as configured. With WithLegacyFormat only the uncompressed
// payload is written, in host byte order.
//
// Payload, per node in pre-order:
//
//	4 x float64  min x, y, z, m
//	4 x float64  max x, y, z, m
//	int32        id count, then the ids as int32
//	int32        child count, then the children
func (t *Tree) Encode(w io.Writer) error {
	engine := t.cfg.engine
	if t.cfg.legacy {
		engine = endian.GetNativeEngine()
	}

	bb := pool.GetIndexBuffer()
	defer pool.PutIndexBuffer(bb)

	nodes := 0
	bb.B = appendNode(bb.B, engine, t.root, &nodes)
	raw := bb.B

	if t.cfg.legacy {
		_, err := w.Write(raw)
		return err
	}

	if uint64(len(raw)) > math.MaxUint32 {
		return fmt.Errorf("%w: index payload of %d bytes", errs.ErrInvalidArgument, len(raw))
	}

	codec, err := compress.GetCodec(t.cfg.compression)
	if err != nil {
		return err
	}

	stored, err := codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress index payload: %w", err)
	}

	header := section.NewTreeHeader(t.cfg.dims)
	if isBigEndian(engine) {
		header.WithBigEndian()
	}
	header.Compression = t.cfg.compression
	header.NodeCount = u32(nodes)
	header.ShapeCount = u32(t.shapeCount)
	header.MaxDepth = u32(t.maxDepth)
	header.Checksum = hash.Checksum(raw)
	header.RawLength = u32(len(raw))
	header.StoredLength = u32(len(stored))

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(stored)

	return err
}

// u32 narrows a non-negative count already checked against the uint32 range.
func u32(n int) uint32 {
	return uint32(n) //nolint: gosec
}

func isBigEndian(engine endian.EndianEngine) bool {
	return engine.Uint16([]byte{0, 1}) == 1
}

func appendNode(b []byte, engine endian.EndianEngine, n *Node, nodes *int) []byte {
	*nodes++

	for i := range 4 {
		b = endian.AppendFloat64(engine, b, n.Bounds.Min[i])
	}
	for i := range 4 {
		b = endian.AppendFloat64(engine, b, n.Bounds.Max[i])
	}

	b = endian.AppendInt32(engine, b, int32(len(n.IDs))) //nolint: gosec
	for _, id := range n.IDs {
		b = endian.AppendInt32(engine, b, int32(id)) //nolint: gosec
	}

	b = endian.AppendInt32(engine, b, int32(len(n.Children))) //nolint: gosec
	for _, c := range n.Children {
		b = appendNode(b, engine, c, nodes)
	}

	return b
}

// Decode reads a tree written by Encode. Input without the .idx magic is read as the
// headerless legacy layout.
//
// Parameters:
//   - r: Reader positioned at the start of the index
//   - opts: WithDimensions and WithMaxDepth apply to legacy input, which records neither
//
// Returns:
//   - *Tree: The tree with offsets filled
//   - error: ErrInvalidTreeFile, ErrChecksumMismatch or read errors
func Decode(r io.Reader, opts ...Option) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return DecodeBytes(data, opts...)
}

// DecodeBytes is Decode over an in-memory index.
func DecodeBytes(data []byte, opts ...Option) (*Tree, error) {
	if !section.HasMagic(data) || len(data) < section.TreeHeaderSize {
		return DecodeLegacy(data, opts...)
	}

	var header section.TreeHeader
	headerErr := header.Parse(data[:section.TreeHeaderSize])
	if headerErr == nil {
		return decodeV1(&header, data[section.TreeHeaderSize:], opts...)
	}

	// a legacy file whose first bytes happen to look like the magic
	t, err := DecodeLegacy(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidTreeFile, headerErr)
	}

	return t, nil
}

func decodeV1(h *section.TreeHeader, payload []byte, opts ...Option) (*Tree, error) {
	if len(payload) != int(h.StoredLength) {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			errs.ErrInvalidTreeFile, len(payload), h.StoredLength)
	}

	codec, err := compress.GetCodec(h.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidTreeFile, err)
	}

	raw, err := compress.DecompressSized(codec, payload, int(h.RawLength))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidTreeFile, err)
	}

	if !hash.Verify(raw, h.Checksum) {
		return nil, fmt.Errorf("%w: index payload", errs.ErrChecksumMismatch)
	}

	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}
	cfg.dims = int(h.Dimensions)
	cfg.compression = h.Compression
	cfg.engine = h.GetEndianEngine()

	t, nodes, err := decodePayload(raw, cfg.engine, cfg)
	if err != nil {
		return nil, err
	}
	if nodes != int(h.NodeCount) || t.shapeCount != int(h.ShapeCount) {
		return nil, fmt.Errorf("%w: decoded %d nodes and %d ids, header says %d and %d",
			errs.ErrInvalidTreeFile, nodes, t.shapeCount, h.NodeCount, h.ShapeCount)
	}
	t.maxDepth = int(h.MaxDepth)

	return t, nil
}

// DecodeLegacy reads the headerless layout in host byte order. The depth limit is taken
// from WithMaxDepth, or from the deepest level present when not given.
func DecodeLegacy(data []byte, opts ...Option) (*Tree, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	t, _, err := decodePayload(data, endian.GetNativeEngine(), cfg)
	if err != nil {
		return nil, err
	}

	if t.maxDepth == 0 {
		t.Walk(func(_ *Node, level int) bool {
			t.maxDepth = max(t.maxDepth, level)
			return true
		})
	}

	return t, nil
}

func decodePayload(data []byte, engine endian.EndianEngine, cfg *Config) (*Tree, int, error) {
	d := &nodeDecoder{data: data, engine: engine}

	root, err := d.node(1)
	if err != nil {
		return nil, 0, err
	}
	if d.pos != len(data) {
		return nil, 0, fmt.Errorf("%w: %d trailing bytes", errs.ErrInvalidTreeFile, len(data)-d.pos)
	}

	t := &Tree{root: root, cfg: cfg, maxDepth: cfg.maxDepth}
	t.FillOffsets()

	return t, d.nodes, nil
}

var errShortPayload = errors.New("payload ends inside a node")

type nodeDecoder struct {
	data   []byte
	pos    int
	nodes  int
	engine endian.EndianEngine
}

func (d *nodeDecoder) int32() (int, error) {
	if len(d.data)-d.pos < 4 {
		return 0, fmt.Errorf("%w: %w", errs.ErrInvalidTreeFile, errShortPayload)
	}
	v := endian.Int32(d.engine, d.data[d.pos:])
	d.pos += 4

	return int(v), nil
}

func (d *nodeDecoder) node(level int) (*Node, error) {
	if level > maxDecodeLevel {
		return nil, fmt.Errorf("%w: nesting deeper than %d levels", errs.ErrInvalidTreeFile, maxDecodeLevel)
	}
	if len(d.data)-d.pos < nodeFixedSize {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidTreeFile, errShortPayload)
	}
	d.nodes++

	n := &Node{}
	for i := range 4 {
		n.Bounds.Min[i] = endian.Float64(d.engine, d.data[d.pos:])
		d.pos += 8
	}
	for i := range 4 {
		n.Bounds.Max[i] = endian.Float64(d.engine, d.data[d.pos:])
		d.pos += 8
	}

	count, err := d.int32()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > (len(d.data)-d.pos)/4 {
		return nil, fmt.Errorf("%w: node declares %d ids", errs.ErrInvalidTreeFile, count)
	}
	if count > 0 {
		n.IDs = make([]int, count)
		for i := range n.IDs {
			id, _ := d.int32()
			if id < 0 {
				return nil, fmt.Errorf("%w: negative shape id %d", errs.ErrInvalidTreeFile, id)
			}
			n.IDs[i] = id
		}
	}

	children, err := d.int32()
	if err != nil {
		return nil, err
	}
	if children < 0 || children > maxChildren {
		return nil, fmt.Errorf("%w: node declares %d children", errs.ErrInvalidTreeFile, children)
	}
	if children > 0 {
		n.Children = make([]*Node, children)
		for i := range n.Children {
			if n.Children[i], err = d.node(level + 1); err != nil {
				return nil, err
			}
		}
	}

	return n, nil
}
