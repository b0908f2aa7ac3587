package geoshape

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/pathutil"
	"github.com/arloliu/geoshape/logging"
	"github.com/arloliu/geoshape/quadtree"
	"github.com/arloliu/geoshape/section"
)

func (d *Dataset) treeOptions() []quadtree.Option {
	return []quadtree.Option{
		quadtree.WithMaxDepth(d.cfg.maxDepth),
		quadtree.WithCompression(d.cfg.compression),
	}
}

// loadIndex reads the .idx file when it matches the records and builds the tree otherwise.
func (d *Dataset) loadIndex() error {
	idxPath := pathutil.Resolve(d.path, "idx")

	if pathutil.Exists(idxPath) {
		tree, err := readTree(idxPath, d.treeOptions()...)
		switch {
		case err != nil:
			d.log.Warn("index unreadable, rebuilding", logging.KeyPath, idxPath, logging.KeyError, err)
		case tree.ShapeCount() != d.shapes.Count():
			d.log.Warn("index out of date, rebuilding", logging.KeyPath, idxPath,
				"indexed", tree.ShapeCount(), "records", d.shapes.Count())
		default:
			d.tree = tree
			d.log.Debug("loaded index", logging.KeyPath, idxPath,
				"nodes", tree.NodeCount(), "depth", tree.MaxDepth())
		}
	}

	rebuilt := false
	if d.tree == nil {
		tree, err := quadtree.Build(d.shapes, d.treeOptions()...)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		d.tree = tree
		rebuilt = true
		d.log.Debug("built index", "nodes", tree.NodeCount(), "depth", tree.MaxDepth())

		if !d.cfg.readOnly {
			if err := writeTree(QuadtreePath(d.path), tree); err != nil {
				d.log.LogIOError("save index", err)
			}
		}
	}

	if d.cfg.mbr {
		d.openMBR(rebuilt)
	}

	return nil
}

// BuildIndex rebuilds the spatial index from the current records and, unless read-only,
// saves the .idx file and rewrites the .mbr side-file.
func (d *Dataset) BuildIndex() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errs.ErrClosed
	}

	tree, err := quadtree.Build(d.shapes, d.treeOptions()...)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	d.tree = tree
	d.log.Debug("built index", "nodes", tree.NodeCount(), "depth", tree.MaxDepth())

	if d.cfg.readOnly {
		d.indexDirty = false
		return nil
	}

	return d.persistIndex()
}

// persistIndex builds the tree if needed, trims it, saves it and rewrites the .mbr file.
func (d *Dataset) persistIndex() error {
	if d.tree == nil {
		tree, err := quadtree.Build(d.shapes, d.treeOptions()...)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		d.tree = tree
	}
	d.tree.Trim()

	if err := d.shapes.Flush(); err != nil {
		return err
	}
	if err := writeTree(QuadtreePath(d.path), d.tree); err != nil {
		d.log.LogIOError("save index", err)
		return err
	}
	d.indexDirty = false

	if d.cfg.mbr {
		d.openMBR(true)
	}

	return nil
}

// openMBR opens the .mbr side-file, writing it first when rewrite is set or the file does
// not hold one tuple per indexed shape. Failures leave QueryMBR on its confirm fallback.
func (d *Dataset) openMBR(rewrite bool) {
	if d.mbr != nil {
		if err := d.mbr.Close(); err != nil {
			d.log.LogIOError("close mbr", err)
		}
		d.mbr = nil
	}

	mbrPath := pathutil.Resolve(d.path, "mbr")
	info, err := os.Stat(mbrPath)
	stale := rewrite || err != nil || info.Size() != int64(d.tree.ShapeCount())*section.MBREntrySize

	if stale {
		if d.cfg.readOnly {
			d.log.Debug("mbr file missing or stale, using confirm reads", logging.KeyPath, mbrPath)
			return
		}

		mbrPath = MBRPath(d.path)
		if err := writeMBR(mbrPath, d.tree, d.shapes); err != nil {
			d.log.LogIOError("write mbr", err)
			return
		}
		d.log.Debug("created mbr file", logging.KeyPath, mbrPath, "shapes", d.tree.ShapeCount())
	}

	mbr, err := quadtree.OpenMBR(mbrPath)
	if err != nil {
		d.log.LogIOError("open mbr", err)
		return
	}
	d.mbr = mbr
}

func readTree(path string, opts ...quadtree.Option) (*quadtree.Tree, error) {
	f, err := os.Open(path) //nolint: gosec
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return quadtree.Decode(bufio.NewReader(f), opts...)
}

func writeTree(path string, tree *quadtree.Tree) error {
	return writeAtomically(path, tree.Encode)
}

func writeMBR(path string, tree *quadtree.Tree, src quadtree.Source) error {
	return writeAtomically(path, func(w io.Writer) error {
		return quadtree.WriteMBR(w, tree, src)
	})
}

// writeAtomically writes through a temporary sibling and renames it over path.
func writeAtomically(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
