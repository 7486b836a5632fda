package nar

import (
	"bufio"
	"io"
	"path"

	"github.com/nar-community/go-nar/pkg/wire"
)

// NodeKind identifies which of the three NAR node variants Next just
// dispatched into.
type NodeKind int

const (
	KindRegular NodeKind = iota
	KindExecutable
	KindSymlink
	KindDirectory
)

// Reader is a low-level, single-pass NAR tag scanner with one token of
// lookahead. Next advances it to the next node in pre-order; Path, Name,
// Target, and Size describe the node Next just produced, and regular-file
// content is read directly off Reader via io.Reader.
//
// Reader does not verify the archive's leading magic header; NewReader
// assumes the caller has already consumed it (Deserializer does this).
type Reader struct {
	r   *bufio.Reader
	err error

	depth     int
	pathStack []string // names of currently open, non-root directories
	name      string    // name of the entry currently being dispatched
	path      string
	target    string
	remaining uint64 // bytes of file content not yet read via Read
	pad       uint64 // padding bytes owed once remaining reaches zero

	lookahead    string
	hasLookahead bool
}

// NewReader returns a Reader over r. The caller is responsible for having
// already consumed and validated the NAR magic header.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next advances to the next node and reports its kind. It returns io.EOF
// once the archive (or, for a nested call site walking only a subtree,
// the enclosing directory) is exhausted.
func (r *Reader) Next() (NodeKind, error) {
	if r.err != nil {
		return 0, r.err
	}

	// Drain any unread content from a regular file the caller didn't fully
	// consume before asking for the next node.
	if r.remaining != 0 {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return 0, r.fail(err)
		}
	}

	if r.depth == 0 {
		// Root: the very first node, no preceding "entry" header.
		if err := r.expect(TagOpen); err != nil {
			return 0, err
		}

		if err := r.expect(TagType); err != nil {
			return 0, err
		}

		r.path = ""
		r.name = ""
	} else {
		tag, err := r.fetch()
		if err != nil {
			return 0, err
		}

		if tag == TagClose.String() {
			return 0, r.endDirectory()
		}

		if tag != TagEntry.String() {
			return 0, r.fail(ErrInvalidDirEntry)
		}

		if err := r.expect(TagOpen); err != nil {
			return 0, err
		}

		if err := r.expect(TagName); err != nil {
			return 0, err
		}

		name, err := r.readString(255)
		if err != nil {
			return 0, err
		}

		if err := validateEntryName(name); err != nil {
			return 0, r.fail(err)
		}

		r.name = name
		r.path = r.joinPath(name)

		if err := r.expect(TagNode); err != nil {
			return 0, err
		}

		if err := r.expect(TagOpen); err != nil {
			return 0, err
		}

		if err := r.expect(TagType); err != nil {
			return 0, err
		}
	}

	ft, err := r.readString(64)
	if err != nil {
		return 0, err
	}

	switch ft {
	case TagSymlink.String():
		if err := r.expect(TagTarget); err != nil {
			return 0, err
		}

		target, err := r.readString(4095)
		if err != nil {
			return 0, err
		}

		r.target = target

		return KindSymlink, r.endNode()

	case TagRegular.String():
		executable, err := r.readRegularHeader()
		if err != nil {
			return 0, err
		}

		if executable {
			return KindExecutable, nil
		}

		return KindRegular, nil

	case TagDirectory.String():
		if r.depth > 0 {
			r.pathStack = append(r.pathStack, r.name)
		}

		r.depth++

		return KindDirectory, nil

	default:
		return 0, r.fail(&UnknownFileTypeError{Type: ft})
	}
}

// readRegularHeader consumes the optional "executable" marker (via one
// token of lookahead) and the mandatory "contents" length prefix, leaving
// the reader positioned at the start of the file's content bytes.
func (r *Reader) readRegularHeader() (executable bool, err error) {
	tag, err := r.fetch()
	if err != nil {
		return false, err
	}

	if tag == TagExecutable.String() {
		executable = true

		empty, err := r.readString(8)
		if err != nil {
			return false, err
		}

		if empty != "" {
			return false, r.fail(&InvalidTagError{Tag: TagExecutable})
		}

		tag, err = r.fetch()
		if err != nil {
			return false, err
		}
	}

	if tag != TagContents.String() {
		return false, r.fail(&MissingTagError{Tag: TagContents})
	}

	size, err := wire.ReadUint64(r.r)
	if err != nil {
		return false, r.fail(err)
	}

	r.remaining = size
	r.pad = (wire.PadLen - (size % wire.PadLen)) % wire.PadLen

	if size == 0 {
		return executable, r.endNode()
	}

	return executable, nil
}

// Read implements io.Reader over the content of the regular file node most
// recently dispatched by Next. Once fully drained it consumes the trailing
// padding and closing tags automatically.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	if r.remaining == 0 {
		return 0, io.EOF
	}

	if uint64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.r.Read(p)
	r.remaining -= uint64(n)

	if err != nil {
		return n, r.fail(err)
	}

	if r.remaining == 0 {
		if err := r.skipPadding(r.pad); err != nil {
			return n, err
		}

		r.pad = 0

		if err := r.endNode(); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Path returns the path of the node Next just produced, relative to the
// archive root (empty for the root itself).
func (r *Reader) Path() string { return r.path }

// Name returns the base name of the node Next just produced (empty for the
// root).
func (r *Reader) Name() string { return r.name }

// Target returns the symlink target of the most recently dispatched
// KindSymlink node.
func (r *Reader) Target() string { return r.target }

// Size returns the number of content bytes not yet read off the most
// recently dispatched KindRegular/KindExecutable node. It equals the full
// declared length until Read starts draining it.
func (r *Reader) Size() uint64 { return r.remaining }

// Done reports whether the archive's single root node has been fully
// consumed. Once true, every subsequent Next call returns io.EOF.
func (r *Reader) Done() bool { return r.err == io.EOF }

func (r *Reader) joinPath(name string) string {
	parts := make([]string, 0, len(r.pathStack)+1)
	parts = append(parts, r.pathStack...)
	parts = append(parts, name)

	return path.Join(parts...)
}

// endDirectory closes a directory whose own ")" tag Next just consumed from
// the lookahead slot. A directory counts toward depth while it is still
// open, so depth > 1 here means some other directory still encloses it,
// i.e. this one was itself wrapped in an "entry" when it was opened and
// owes a second ")" for that wrapper — the same test Writer.Close uses
// (post-decrement depth > 0) applied before decrementing instead of after.
func (r *Reader) endDirectory() error {
	nested := r.depth > 1

	if nested {
		r.pathStack = r.pathStack[:len(r.pathStack)-1]

		if err := r.expect(TagClose); err != nil {
			return err
		}
	}

	r.depth--

	if r.depth == 0 && r.err == nil {
		r.err = io.EOF
	}

	return io.EOF
}

// endNode consumes a node's own closing ")" and, when the node is not the
// archive root, the enclosing entry wrapper's closing ")" as well. When the
// node it closes is the archive root itself (depth == 0, e.g. a top-level
// regular file or symlink with no wrapping directory), it also marks the
// stream as exhausted so a subsequent Next call reports a clean io.EOF
// instead of trying to parse a second root node out of an empty reader.
func (r *Reader) endNode() error {
	if err := r.expect(TagClose); err != nil {
		return err
	}

	if r.depth > 0 {
		if err := r.expect(TagClose); err != nil {
			return err
		}
	} else if r.err == nil {
		r.err = io.EOF
	}

	return nil
}

func (r *Reader) fetch() (string, error) {
	if r.hasLookahead {
		r.hasLookahead = false

		return r.lookahead, nil
	}

	return r.readString(64)
}

func (r *Reader) expect(t Tag) error {
	s, err := r.fetch()
	if err != nil {
		return err
	}

	if s != t.String() {
		r.lookahead = s
		r.hasLookahead = true

		return r.fail(&MissingTagError{Tag: t})
	}

	return nil
}

// readString reads a framed byte string and returns it as-is, without
// requiring valid UTF-8: entry names and symlink targets are arbitrary
// filesystem bytes on most platforms, and Go strings (unlike wire.ReadString's
// contract) don't need to be valid UTF-8 to carry them faithfully.
func (r *Reader) readString(max int) (string, error) {
	b, err := wire.ReadBytes(r.r, uint64(max))
	if err != nil {
		return "", r.fail(err)
	}

	return string(b), nil
}

func (r *Reader) skipPadding(n uint64) error {
	if n == 0 {
		return nil
	}

	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:n]); err != nil {
		return r.fail(err)
	}

	for _, b := range buf[:n] {
		if b != 0 {
			return r.fail(&BadPaddingError{Err: wire.ErrBadPadding})
		}
	}

	return nil
}

func (r *Reader) fail(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}

	if r.err == nil {
		r.err = err
	}

	return r.err
}
