package nar

import (
	"fmt"
	"io"

	"github.com/nar-community/go-nar/pkg/wire"
)

// Magic is the literal byte string identifying a NAR stream.
const Magic = "nix-archive-1"

type writerFrameKind int

const (
	frameFile writerFrameKind = iota
	frameDir
)

type writerFrame struct {
	kind    writerFrameKind
	size    uint64 // frameFile only: declared content length
	written uint64 // frameFile only: bytes written so far
}

// Writer is a low-level, streaming NAR encoder. Callers drive it directly
// to build a stream node by node: open a directory, add named entries,
// write file or symlink bodies, and close nodes as they complete. ToWriter
// and ToVec build on Writer to encode an entire filesystem path in one call.
type Writer struct {
	w         io.Writer
	depth     int // number of currently-open directories
	stack     []writerFrame
	wroteRoot bool
	err       error
}

// NewWriter returns a Writer that streams a NAR archive to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Directory opens a directory node. Call Entry for each child, then Close
// once all children have been written.
func (w *Writer) Directory() error {
	if w.fail() {
		return w.err
	}

	if err := w.nodeHeader(); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagDirectory); err != nil {
		return w.setErr(err)
	}

	w.stack = append(w.stack, writerFrame{kind: frameDir})
	w.depth++

	return nil
}

// Entry begins a named child of the directory currently open at the top of
// the stack. It must be followed by exactly one of Directory, Regular, or
// Symlink (and, for Regular, a Write/Close pair) to write the child node.
func (w *Writer) Entry(name string) error {
	if w.fail() {
		return w.err
	}

	if len(w.stack) == 0 || w.stack[len(w.stack)-1].kind != frameDir {
		return w.setErr(fmt.Errorf("nar: Entry called without an open directory"))
	}

	if err := w.writeTag(TagEntry); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagOpen); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagName); err != nil {
		return w.setErr(err)
	}

	if err := wire.WriteString(w.w, name); err != nil {
		return w.setErr(err)
	}

	return nil
}

// Regular opens a regular file node declaring exactly size bytes of
// content. The caller must write precisely size bytes via Write, then call
// Close.
func (w *Writer) Regular(executable bool, size uint64) error {
	if w.fail() {
		return w.err
	}

	if err := w.nodeHeader(); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagRegular); err != nil {
		return w.setErr(err)
	}

	if executable {
		if err := w.writeTag(TagExecutable); err != nil {
			return w.setErr(err)
		}

		if err := w.writeTag(TagEmpty); err != nil {
			return w.setErr(err)
		}
	}

	if err := w.writeTag(TagContents); err != nil {
		return w.setErr(err)
	}

	if err := wire.WriteUint64(w.w, size); err != nil {
		return w.setErr(err)
	}

	w.stack = append(w.stack, writerFrame{kind: frameFile, size: size})

	return nil
}

// Write streams content bytes for the regular file node most recently
// opened with Regular. It is an error to write more bytes than the size
// declared to Regular.
func (w *Writer) Write(p []byte) (int, error) {
	if w.fail() {
		return 0, w.err
	}

	if len(w.stack) == 0 || w.stack[len(w.stack)-1].kind != frameFile {
		return 0, w.setErr(fmt.Errorf("nar: Write called without an open regular file"))
	}

	top := &w.stack[len(w.stack)-1]
	if top.written+uint64(len(p)) > top.size {
		return 0, w.setErr(fmt.Errorf("nar: write exceeds declared size %d", top.size))
	}

	n, err := w.w.Write(p)
	top.written += uint64(n)

	if err != nil {
		return n, w.setErr(err)
	}

	return n, nil
}

// Symlink writes a complete symlink node and closes it, including the
// enclosing entry wrapper if this symlink is not the archive root.
func (w *Writer) Symlink(target string) error {
	if w.fail() {
		return w.err
	}

	if err := w.nodeHeader(); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagSymlink); err != nil {
		return w.setErr(err)
	}

	if err := w.writeTag(TagTarget); err != nil {
		return w.setErr(err)
	}

	if err := wire.WriteString(w.w, target); err != nil {
		return w.setErr(err)
	}

	return w.closeNode()
}

// Close closes the most recently opened node: a regular file (verifying
// its full declared content was written) or a directory (ending its entry
// list). It also closes the enclosing entry wrapper when the node being
// closed is not the archive root.
func (w *Writer) Close() error {
	if w.fail() {
		return w.err
	}

	if len(w.stack) == 0 {
		return w.setErr(fmt.Errorf("nar: Close called with nothing open"))
	}

	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	switch top.kind {
	case frameFile:
		if top.written != top.size {
			return w.setErr(fmt.Errorf("nar: closed regular file after writing %d of %d declared bytes", top.written, top.size))
		}

		if err := w.writePadding(top.size); err != nil {
			return w.setErr(err)
		}

		return w.closeNode()
	case frameDir:
		w.depth--

		return w.closeNode()
	default:
		return w.setErr(fmt.Errorf("nar: unknown writer frame kind"))
	}
}

// nodeHeader writes the prefix common to every node: the archive magic
// (root node only) or "node", followed by "(" "type".
func (w *Writer) nodeHeader() error {
	if !w.wroteRoot {
		if err := wire.WriteString(w.w, Magic); err != nil {
			return err
		}

		w.wroteRoot = true
	} else {
		if err := w.writeTag(TagNode); err != nil {
			return err
		}
	}

	if err := w.writeTag(TagOpen); err != nil {
		return err
	}

	return w.writeTag(TagType)
}

// closeNode writes the node's own closing ")" and, if this node is nested
// inside a still-open directory (depth > 0), the enclosing entry wrapper's
// closing ")" as well.
func (w *Writer) closeNode() error {
	if err := w.writeTag(TagClose); err != nil {
		return w.setErr(err)
	}

	if w.depth > 0 {
		if err := w.writeTag(TagClose); err != nil {
			return w.setErr(err)
		}
	}

	return nil
}

func (w *Writer) writeTag(t Tag) error {
	return wire.WriteString(w.w, t.String())
}

func (w *Writer) writePadding(size uint64) error {
	n := (wire.PadLen - (size % wire.PadLen)) % wire.PadLen
	if n == 0 {
		return nil
	}

	var zero [wire.PadLen]byte
	_, err := w.w.Write(zero[:n])

	return err
}

func (w *Writer) fail() bool { return w.err != nil }

func (w *Writer) setErr(err error) error {
	if w.err == nil {
		w.err = err
	}

	return w.err
}
