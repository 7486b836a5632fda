package nar

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ToWriter serializes the filesystem entry at path to w as a NAR stream.
// path is confirmed to exist via lstat before anything is written; a broken
// symlink still serializes, since its target is never followed.
func ToWriter(w io.Writer, path string) error {
	if _, err := os.Lstat(path); err != nil {
		return err
	}

	nw := NewWriter(w)

	return encodeEntry(nw, path)
}

// ToVec serializes the filesystem entry at path and returns the resulting
// NAR bytes.
func ToVec(path string) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToWriter(&buf, path); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// encodeEntry writes one node (and, for directories, recurses into its
// children) for the filesystem entry at path. It is used both for the
// archive root and, via Entry, for every descendant.
func encodeEntry(w *Writer, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}

		return w.Symlink(target)

	case info.IsDir():
		return encodeDirectory(w, path)

	case info.Mode().IsRegular():
		return encodeRegular(w, path, info)

	default:
		return &UnrecognizedFileTypeError{Path: path}
	}
}

func encodeDirectory(w *Writer, path string) error {
	if err := w.Directory(); err != nil {
		return err
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name()
	}

	// Invariant: siblings are emitted in ascending byte-lexicographic order
	// of their names, regardless of the order the filesystem returned them
	// in.
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		if err := validateEntryName(name); err != nil {
			return err
		}

		if err := w.Entry(name); err != nil {
			return err
		}

		if err := encodeEntry(w, filepath.Join(path, name)); err != nil {
			return err
		}
	}

	return w.Close()
}

func encodeRegular(w *Writer, path string, info fs.FileInfo) error {
	executable := info.Mode()&0o111 != 0
	size := uint64(info.Size())

	if err := w.Regular(executable, size); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	written, err := io.Copy(w, f)
	if err != nil {
		return err
	}

	if uint64(written) != size {
		return fmt.Errorf("nar: %s changed size while being read (declared %d, read %d)", path, size, written)
	}

	return w.Close()
}

// validateEntryName rejects names the decoder would itself refuse, so an
// archive this package writes is always readable by its own reader: a
// directory entry name must be non-empty, must not be ".", "..", or "~",
// and must not contain '/'.
func validateEntryName(name string) error {
	switch name {
	case "":
		return &InvalidDirEntryNameError{Name: name}
	case ".", "..", "~":
		return &InvalidDirEntryNameError{Name: name}
	}

	for _, r := range name {
		if r == '/' {
			return &InvalidDirEntryCharError{Name: name, Char: r}
		}
	}

	return nil
}
