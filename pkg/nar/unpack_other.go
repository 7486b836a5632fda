//go:build !unix

package nar

import "os"

// removeXattrs is a no-op outside unix: extended attributes are a
// unix-specific filesystem feature and github.com/pkg/xattr only
// implements the unix syscalls.
func removeXattrs(path string) error { return nil }

// canonicalizeMtime falls back to os.Chtimes, which follows symlinks
// rather than operating on them directly; a symlink's own mtime is left
// untouched on this platform.
func canonicalizeMtime(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	return os.Chtimes(path, info.ModTime(), epoch)
}

// creationTimeIsZero has no portable equivalent outside unix's ctime, so
// parent recanonicalization never fires here.
func creationTimeIsZero(path string) (bool, error) { return false, nil }
