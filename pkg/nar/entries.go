package nar

import (
	"fmt"
	"io"

	"github.com/nar-community/go-nar/pkg/wire"
)

// Deserializer parses a NAR stream's leading magic header and then exposes
// its single root node for traversal, either via the lazy Entries iterator
// or, for callers who want to stream a regular file's content directly
// without Entries materializing it, via the low-level Reader.
type Deserializer struct {
	r      *Reader
	params Parameters
	used   bool
}

// Open reads and validates the NAR magic header off r and returns a
// Deserializer positioned at the start of the archive's root node.
func Open(r io.Reader, params Parameters) (*Deserializer, error) {
	magic, err := wire.ReadString(r, uint64(len(Magic)))
	if err != nil || magic != Magic {
		return nil, ErrInvalidMagic
	}

	return &Deserializer{r: NewReader(r), params: params}, nil
}

// Entries returns a lazy, forward-only iterator over every node in the
// archive in pre-order. It may be called only once per Deserializer; a
// second call returns an iterator whose Err reports ErrEntriesAlreadyRead.
func (d *Deserializer) Entries() *EntryIter {
	if d.used {
		return &EntryIter{err: ErrEntriesAlreadyRead}
	}

	d.used = true

	return &EntryIter{d: d}
}

// Reader exposes the low-level streaming Reader directly, for callers who
// want to read a regular file's content without Entries reading it fully
// into memory first. Like Entries, it may only be claimed once.
func (d *Deserializer) Reader() (*Reader, error) {
	if d.used {
		return nil, ErrEntriesAlreadyRead
	}

	d.used = true

	return d.r, nil
}

// Unpack drives Entries to completion, materializing every node under dst.
func (d *Deserializer) Unpack(dst string) error {
	it := d.Entries()

	for it.Next() {
		if err := it.Entry().UnpackIn(dst); err != nil {
			return err
		}
	}

	return it.Err()
}

// EntryIter is a pull-based iterator over the nodes of an archive, produced
// by Deserializer.Entries. Go has no generator/coroutine primitive
// equivalent to the async `try_parse` in original_source/src/de.rs, so the
// lazy, resumable traversal that source gets from genawaiter is realized
// here as an explicit loop over the low-level Reader's token-at-a-time
// state machine instead.
type EntryIter struct {
	d     *Deserializer
	entry Entry
	err   error
	done  bool
}

// Next advances to the next node and reports whether one was produced. It
// returns false both on exhaustion (Err returns nil) and on a parse error
// (Err reports it).
func (it *EntryIter) Next() bool {
	if it.err != nil || it.done {
		return false
	}

	for {
		kind, err := it.d.r.Next()
		if err == nil {
			entry, buildErr := it.buildEntry(kind)
			if buildErr != nil {
				it.err = buildErr
				return false
			}

			it.entry = entry

			return true
		}

		if err == io.EOF {
			if it.d.r.Done() {
				it.done = true
				return false
			}

			// A nested directory just closed; its parent's entry loop
			// continues with the next sibling (or its own close).
			continue
		}

		it.err = err

		return false
	}
}

// Entry returns the node Next just produced.
func (it *EntryIter) Entry() Entry { return it.entry }

// Err returns the first error encountered, if any, after Next returns false.
func (it *EntryIter) Err() error { return it.err }

func (it *EntryIter) buildEntry(kind NodeKind) (Entry, error) {
	e := Entry{
		path:   it.d.r.Path(),
		kind:   kind,
		params: it.d.params,
	}

	switch kind {
	case KindSymlink:
		e.target = it.d.r.Target()
	case KindRegular, KindExecutable:
		data, err := readAll(it.d.r, it.d.params.MaxFileSize)
		if err != nil {
			return Entry{}, &IoAtError{Path: e.path, Err: err}
		}

		e.data = data
	}

	return e, nil
}

// readAll reads a regular file node's full content into memory, rejecting
// it up front if its declared size exceeds max (0 meaning unbounded).
func readAll(r *Reader, max uint64) ([]byte, error) {
	size := r.Size()
	if max != 0 && size > max {
		return nil, fmt.Errorf("nar: file size %d exceeds maximum %d", size, max)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// Entry describes one node of an archive as produced by EntryIter: its
// path, kind, and (for regular files and symlinks) content or target.
// Regular file content is read fully into memory at yield time.
type Entry struct {
	path   string
	kind   NodeKind
	target string
	data   []byte
	params Parameters
}

// Path returns the entry's path relative to the archive root (empty for
// the root itself).
func (e Entry) Path() string { return e.path }

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.kind == KindDirectory }

// IsFile reports whether the entry is a regular file, executable or not.
func (e Entry) IsFile() bool { return e.kind == KindRegular || e.kind == KindExecutable }

// IsExecutable reports whether the entry is a regular file with its
// executable bit set.
func (e Entry) IsExecutable() bool { return e.kind == KindExecutable }

// IsSymlink reports whether the entry is a symlink.
func (e Entry) IsSymlink() bool { return e.kind == KindSymlink }

// Target returns the symlink target; empty for non-symlinks.
func (e Entry) Target() string { return e.target }

// Data returns the regular file's content; nil for non-files.
func (e Entry) Data() []byte { return e.data }
