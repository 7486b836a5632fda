//go:build unix

package nar

import (
	"os"
	"syscall"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"
)

// removeXattrs strips every extended attribute off path without following
// a trailing symlink, grounded on folbricht/desync's tar.go use of
// xattr.LList/xattr.LGet for the opposite (capture) direction.
func removeXattrs(path string) error {
	names, err := xattr.LList(path)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := xattr.LRemove(path, name); err != nil {
			return err
		}
	}

	return nil
}

// canonicalizeMtime resets path's mtime to the Unix epoch while preserving
// its atime, acting on a symlink itself rather than the target it points to.
// os.Chtimes always follows symlinks, so unix.Lutimes is used instead.
func canonicalizeMtime(path string) error {
	st, err := lstatT(path)
	if err != nil {
		return err
	}

	atime := unix.NsecToTimeval(st.Atim.Nano())
	mtime := unix.NsecToTimeval(0)

	return unix.Lutimes(path, []unix.Timeval{atime, mtime})
}

// creationTimeIsZero reports whether path's ctime (the closest unix analog
// to the creation time original_source/src/de.rs reads via
// FileTime::from_creation_time) reads as the epoch. The kernel does not
// let us set ctime directly, so in practice this almost never matches; it
// is carried over from the original source's own heuristic rather than
// invented here.
func creationTimeIsZero(path string) (bool, error) {
	st, err := lstatT(path)
	if err != nil {
		return false, err
	}

	return st.Ctim.Sec == 0 && st.Ctim.Nsec == 0, nil
}

func lstatT(path string) (*syscall.Stat_t, error) {
	var stat syscall.Stat_t
	if err := syscall.Lstat(path, &stat); err != nil {
		return nil, &os.PathError{Op: "lstat", Path: path, Err: err}
	}

	return &stat, nil
}
