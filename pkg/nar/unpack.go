package nar

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// epoch is the canonical "zeroed" timestamp CanonicalizeMtime resets a
// node to; shared by the unix and non-unix implementations.
var epoch = time.Unix(0, 0)

// Parameters configures how a Deserializer materializes entries: whether
// timestamps and extended attributes are stripped during UnpackIn, and an
// optional ceiling on regular file size. The zero value disables both
// canonicalization passes and sets no cap; DefaultParameters matches
// original_source/src/de.rs's own Default impl.
type Parameters struct {
	// CanonicalizeMtime resets a node's mtime to the Unix epoch once it has
	// been written, so two unpacks of the same archive produce
	// byte-for-byte identical metadata regardless of when they ran.
	CanonicalizeMtime bool

	// RemoveXattrs strips every extended attribute a node picks up from
	// its containing filesystem (inherited ACLs, security labels) so the
	// unpacked tree reflects only what the archive itself describes.
	RemoveXattrs bool

	// MaxFileSize caps how large a single regular file's content may be
	// before EntryIter refuses to materialize it into memory. Zero means
	// unbounded.
	MaxFileSize uint64
}

// DefaultParameters returns the conservative default: both canonicalization
// passes enabled, no size cap.
func DefaultParameters() Parameters {
	return Parameters{
		CanonicalizeMtime: true,
		RemoveXattrs:      true,
	}
}

// UnpackIn materializes the entry at dst/e.Path() (or dst itself for the
// archive root). It rejects any path whose components would escape dst,
// then applies the configured mtime/xattr canonicalization and, if the
// parent directory already looked canonicalized before this entry was
// written, resets the parent's mtime to the epoch again afterward.
func (e Entry) UnpackIn(dst string) error {
	target := dst
	if e.path != "" {
		target = filepath.Join(dst, e.path)
	}

	if err := checkPathComponents(e.path); err != nil {
		return err
	}

	parent := filepath.Dir(target)
	recanonicalizeParent := e.path != "" && parentLooksCanonicalized(parent)

	var err error

	switch {
	case e.IsDir():
		err = unpackDir(target)
	case e.IsFile():
		err = unpackFile(target, e.IsExecutable(), e.data)
	case e.IsSymlink():
		err = unpackSymlink(target, e.target)
	}

	if err != nil {
		return &IoAtError{Path: target, Err: err}
	}

	if e.params.RemoveXattrs {
		if err := removeXattrs(target); err != nil {
			return &IoAtError{Path: target, Err: err}
		}
	}

	if e.params.CanonicalizeMtime {
		if err := canonicalizeMtime(target); err != nil {
			return &IoAtError{Path: target, Err: err}
		}
	}

	if recanonicalizeParent {
		if err := canonicalizeMtime(parent); err != nil {
			return &IoAtError{Path: parent, Err: err}
		}
	}

	return nil
}

// checkPathComponents rejects an entry path containing an absolute root or
// a ".." component, either of which would let an archive write outside the
// destination it's being unpacked into.
func checkPathComponents(p string) error {
	if p == "" {
		return nil
	}

	if filepath.IsAbs(p) {
		return &InvalidPathComponentError{Path: p}
	}

	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return &InvalidPathComponentError{Path: p}
		}
	}

	return nil
}

// parentLooksCanonicalized reports whether dir's metadata already carries
// the zero-creation-time marker canonicalizeMtime leaves behind, our proxy
// for "this directory was already canonicalized by an earlier UnpackIn call
// in this same tree and should be restored to that state afterward".
func parentLooksCanonicalized(dir string) bool {
	zero, err := creationTimeIsZero(dir)

	return err == nil && zero
}

func unpackDir(dst string) error {
	if err := os.Mkdir(dst, 0o755); err != nil {
		if os.IsExist(err) {
			if info, statErr := os.Lstat(dst); statErr == nil && info.IsDir() {
				return nil
			}
		}

		return err
	}

	return nil
}

func unpackFile(dst string, executable bool, data []byte) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	mode := os.FileMode(0o444)
	if executable {
		mode = 0o555
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)

	return err
}

func unpackSymlink(dst, target string) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	return os.Symlink(target, dst)
}
