package nar

import (
	"errors"
	"fmt"
)

// ErrInvalidMagic is returned when a stream does not begin with the NAR
// magic header.
var ErrInvalidMagic = errors.New("nar: not a valid NAR archive")

// ErrEntriesAlreadyRead is returned by Entries when called more than once on
// the same Deserializer; the underlying reader is single-pass and
// forward-only.
var ErrEntriesAlreadyRead = errors.New("nar: entries already consumed from this reader")

// ErrInvalidDirEntry is returned when a directory's entry loop encounters a
// tag that is neither "entry" nor the closing ")".
var ErrInvalidDirEntry = errors.New("nar: invalid directory entry")

// BadPaddingError wraps wire.ErrBadPadding with NAR context.
type BadPaddingError struct {
	Err error
}

func (e *BadPaddingError) Error() string { return fmt.Sprintf("nar: bad padding: %v", e.Err) }
func (e *BadPaddingError) Unwrap() error { return e.Err }

// MissingTagError is returned when an expected tag is absent.
type MissingTagError struct {
	Tag Tag
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("nar: missing %q tag", e.Tag)
}

// InvalidTagError is returned when a tag's presence is structurally wrong,
// e.g. an "executable" marker not followed by the mandatory empty tag.
type InvalidTagError struct {
	Tag Tag
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("nar: invalid %q tag", e.Tag)
}

// UnknownFileTypeError is returned when a node's type tag is not one of
// "regular", "symlink", or "directory".
type UnknownFileTypeError struct {
	Type string
}

func (e *UnknownFileTypeError) Error() string {
	return fmt.Sprintf("nar: unrecognized file type tag %q", e.Type)
}

// UnrecognizedFileTypeError is returned by the serializer when a filesystem
// entry is not a regular file, symlink, or directory (e.g. a device, FIFO,
// or socket).
type UnrecognizedFileTypeError struct {
	Path string
}

func (e *UnrecognizedFileTypeError) Error() string {
	return fmt.Sprintf("nar: unrecognized file type at %q", e.Path)
}

// InvalidDirEntryNameError is returned when a directory entry's name is
// empty, ".", "..", or "~".
type InvalidDirEntryNameError struct {
	Name string
}

func (e *InvalidDirEntryNameError) Error() string {
	if e.Name == "" {
		return "nar: directory entry name is empty"
	}

	return fmt.Sprintf("nar: invalid directory entry name %q", e.Name)
}

// InvalidDirEntryCharError is returned when a directory entry's name
// contains a forbidden character (currently only '/').
type InvalidDirEntryCharError struct {
	Name string
	Char rune
}

func (e *InvalidDirEntryCharError) Error() string {
	return fmt.Sprintf("nar: invalid character %q in directory entry name %q", e.Char, e.Name)
}

// InvalidPathComponentError is returned by the unpacker when an entry's
// relative path, once joined onto a destination root, would escape it via
// an absolute or parent-directory component.
type InvalidPathComponentError struct {
	Path string
}

func (e *InvalidPathComponentError) Error() string {
	return fmt.Sprintf("nar: invalid path component in %q", e.Path)
}

// IoAtError wraps an I/O error with the filesystem path being operated on
// when it occurred.
type IoAtError struct {
	Err  error
	Path string
}

func (e *IoAtError) Error() string {
	return fmt.Sprintf("nar: i/o error at %q: %v", e.Path, e.Err)
}

func (e *IoAtError) Unwrap() error { return e.Err }
